package executors

import (
	"context"
	"errors"
	"time"

	"errortrail/src/metrics"

	logger "github.com/sirupsen/logrus"
)

type expirer interface {
	Expire(ctx context.Context, cutoff time.Time) (int64, error)
}

// Sweeper removes records older than the retention window on a fixed period,
// independently of incoming captures. It only runs when ERRORS_PRUNE_PERIOD is set.
type Sweeper struct {
	store     expirer
	retention time.Duration
	period    time.Duration
	now       func() time.Time
	metrics   *metrics.Metrics
}

func NewSweeper(store expirer, retention, period time.Duration, m *metrics.Metrics) *Sweeper {
	return &Sweeper{
		store:     store,
		retention: retention,
		period:    period,
		now:       time.Now,
		metrics:   m,
	}
}

// Enabled reports whether StartLoop has anything to do.
func (s *Sweeper) Enabled() bool { return s.period > 0 && s.retention > 0 }

// SweepOnce prunes once and returns the number of removed records.
func (s *Sweeper) SweepOnce(ctx context.Context) (int64, error) {
	if s.retention <= 0 {
		return 0, nil
	}
	removed, err := s.store.Expire(ctx, s.now().Add(-s.retention))
	if err != nil {
		if s.metrics != nil {
			s.metrics.StorageFailures.WithLabelValues("expire").Inc()
		}
		return 0, err
	}
	if s.metrics != nil {
		s.metrics.Expired.Add(float64(removed))
	}
	return removed, nil
}

// StartLoop sweeps every period until ctx is cancelled. Failed sweeps are
// logged and retried on the next tick.
func (s *Sweeper) StartLoop(ctx context.Context) error {
	if s.period <= 0 {
		return errors.New("sweep period must be positive")
	}
	if s.retention <= 0 {
		logger.Info("retention disabled, sweeper not started")
		return nil
	}

	ticker := time.NewTicker(s.period) // Set up a ticker that fires periodically
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("sweeper stopped")
			return nil

		case <-ticker.C:
			removed, err := s.SweepOnce(ctx)
			if err != nil {
				logger.WithError(err).Warn("sweep failed")
				continue
			}
			if removed > 0 {
				logger.WithField("removed", removed).Info("expired errors pruned")
			}
		}
	}
}
