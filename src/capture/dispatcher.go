package capture

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"errortrail/src/metrics"
	"errortrail/src/model"
	"errortrail/src/registry"

	logger "github.com/sirupsen/logrus"
)

// Store is the slice of the error repository the dispatcher needs.
type Store interface {
	StoreErrorAt(ctx context.Context, at time.Time, kind, message, stackTrace string) (uint, error)
	AppendHandlerCall(ctx context.Context, id uint, handlerName string) error
	Expire(ctx context.Context, cutoff time.Time) (int64, error)
}

// Notifier receives every record right after it is stored.
type Notifier interface {
	Publish(rec model.ErrorRecordResponse)
}

// Dispatcher is the single entry point for uncaught failures: it persists the
// failure, applies retention, then walks the matching handlers from most to
// least specific until one produces a response.
type Dispatcher struct {
	store     Store
	registry  *registry.Registry
	retention time.Duration
	now       func() time.Time
	metrics   *metrics.Metrics
	notifier  Notifier
}

type Option func(*Dispatcher)

func WithClock(now func() time.Time) Option { return func(d *Dispatcher) { d.now = now } }

func WithMetrics(m *metrics.Metrics) Option { return func(d *Dispatcher) { d.metrics = m } }

func WithNotifier(n Notifier) Option { return func(d *Dispatcher) { d.notifier = n } }

func NewDispatcher(store Store, reg *registry.Registry, retention time.Duration, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		store:     store,
		registry:  reg,
		retention: retention,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.metrics == nil {
		d.metrics = metrics.New()
	}
	return d
}

// Capture routes f through storage and resolution.
//
// The returned error is non-nil only when a handler failed with a different
// kind than f; the caller should answer with registry.GenericFailure() then.
// Every other path, storage failures included, yields a response.
func (d *Dispatcher) Capture(ctx context.Context, f *registry.Failure) (registry.Response, error) {
	log := logger.WithFields(map[string]interface{}{
		"kind":       f.Kind,
		"method":     f.Method,
		"path":       f.Path,
		"request_id": f.RequestID,
	})
	d.metrics.Captures.WithLabelValues(d.kindLabel(f.Kind)).Inc()

	capturedAt := d.now().UTC()
	id, err := d.store.StoreErrorAt(ctx, capturedAt, string(f.Kind), f.Message, f.StackTrace)
	if err != nil {
		// Without a record there is nothing to audit against: skip resolution.
		d.metrics.StorageFailures.WithLabelValues("store").Inc()
		log.WithError(err).Error("[capture] failed to persist error, answering with generic failure")
		return registry.GenericFailure(), nil
	}
	log = log.WithField("error_id", id)
	log.WithField("message", f.Message).Info("[capture] error recorded")

	if d.notifier != nil {
		d.notifier.Publish(model.ErrorRecordResponse{
			ID:           id,
			Timestamp:    model.FormatTimestamp(capturedAt),
			Kind:         string(f.Kind),
			Message:      f.Message,
			StackTrace:   f.StackTrace,
			HandlerCalls: []string{},
		})
	}

	d.expire(ctx, capturedAt, log)

	for _, candidate := range d.registry.Resolve(f) {
		d.recordAttempt(ctx, id, candidate.Name, log)

		result, err := d.invoke(ctx, candidate, f)
		switch {
		case err == nil && result.IsHandled():
			d.metrics.HandlerAttempts.WithLabelValues(candidate.Name, metrics.OutcomeHandled).Inc()
			log.WithField("handler", candidate.Name).Debug("[capture] handled")
			return result.Response(), nil

		case err == nil || registry.Declines(f, err):
			d.metrics.HandlerAttempts.WithLabelValues(candidate.Name, metrics.OutcomeDeclined).Inc()
			log.WithField("handler", candidate.Name).Debug("[capture] handler declined")

		default:
			d.metrics.HandlerAttempts.WithLabelValues(candidate.Name, metrics.OutcomeFailed).Inc()
			log.WithField("handler", candidate.Name).WithError(err).Error("[capture] handler failed")
			return registry.Response{}, fmt.Errorf("handler %q for error %d: %w", candidate.Name, id, err)
		}
	}

	d.recordAttempt(ctx, id, registry.UnhandledName, log)
	d.metrics.Unhandled.Inc()
	log.Error("[capture] no handler accepted the error")

	return registry.GenericFailure(), nil
}

func (d *Dispatcher) kindLabel(kind registry.Kind) string {
	if d.registry.Taxonomy().Known(kind) {
		return string(kind)
	}
	return metrics.OtherKind
}

// expire applies retention. Housekeeping never blocks error reporting, so a
// failure is only logged.
func (d *Dispatcher) expire(ctx context.Context, now time.Time, log *logger.Entry) {
	if d.retention <= 0 {
		return
	}

	removed, err := d.store.Expire(ctx, now.Add(-d.retention))
	if err != nil {
		d.metrics.StorageFailures.WithLabelValues("expire").Inc()
		log.WithError(err).Warn("[capture] failed to expire old errors")
		return
	}
	d.metrics.Expired.Add(float64(removed))
}

// recordAttempt appends to the audit trail before the handler runs, so a
// handler that crashes still leaves a trace.
func (d *Dispatcher) recordAttempt(ctx context.Context, id uint, name string, log *logger.Entry) {
	if err := d.store.AppendHandlerCall(ctx, id, name); err != nil {
		d.metrics.StorageFailures.WithLabelValues("append").Inc()
		log.WithField("handler", name).WithError(err).Warn("[capture] failed to record handler attempt")
	}
}

// invoke runs a handler, turning a panic into an error of kind Panic.
func (d *Dispatcher) invoke(ctx context.Context, c registry.Candidate, f *registry.Failure) (result registry.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = registry.Result{}
			err = &handlerPanic{value: r, stack: string(debug.Stack())}
		}
	}()
	return c.Handler(ctx, f)
}

type handlerPanic struct {
	value any
	stack string
}

func (p *handlerPanic) Error() string       { return fmt.Sprintf("handler panic: %v", p.value) }
func (p *handlerPanic) Kind() registry.Kind { return registry.Panic }
