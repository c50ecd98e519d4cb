package repository

import (
	"context"
	"errors"
	"time"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"errortrail/src/database"
	"errortrail/src/model"
)

// DefaultListLimit is used when GetErrors receives a limit below 1.
const DefaultListLimit = 10

// ExceptionRepository is the durable store of captured failures.
//
// Every mutating call runs inside its own transaction, so a failure in the
// middle of an operation never leaves a partial row behind and the connection
// is handed back to the pool on every exit path.
type ExceptionRepository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewExceptionRepository creates a new repository instance using the main database.
func NewExceptionRepository() *ExceptionRepository {
	logger.WithField("component", "ExceptionRepository").
		Debug("Creating new ExceptionRepository with MainDB")

	return NewExceptionRepositoryWithDB(database.MainDB)
}

func NewExceptionRepositoryWithDB(db *gorm.DB) *ExceptionRepository {
	return &ExceptionRepository{
		db:  db,
		now: time.Now,
	}
}

// WithClock overrides the clock used to stamp new records.
func (r *ExceptionRepository) WithClock(now func() time.Time) *ExceptionRepository {
	return &ExceptionRepository{db: r.db, now: now}
}

// Seed ensures the errors table exists. Safe to call repeatedly.
func (r *ExceptionRepository) Seed(ctx context.Context) error {
	return storageErr("seed", database.Seed(r.db.WithContext(ctx)))
}

// StoreError persists a new record with the current time and no handler calls,
// returning the identifier assigned by the store.
func (r *ExceptionRepository) StoreError(ctx context.Context, kind, message, stackTrace string) (uint, error) {
	return r.StoreErrorAt(ctx, r.now(), kind, message, stackTrace)
}

// StoreErrorAt is StoreError with the capture time chosen by the caller.
func (r *ExceptionRepository) StoreErrorAt(ctx context.Context, at time.Time, kind, message, stackTrace string) (uint, error) {
	rec := model.ErrorRecord{
		Timestamp:    at.UTC(),
		Kind:         kind,
		Message:      message,
		StackTrace:   stackTrace,
		HandlerCalls: model.HandlerCalls{},
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&rec).Error
	})
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo": "ExceptionRepository",
			"op":   "StoreError",
			"kind": kind,
		}).WithError(err).Error("Failed to persist error record")
		return 0, storageErr("store", err)
	}

	return rec.ID, nil
}

// AppendHandlerCall records that handlerName was attempted for record id.
//
// The read-modify-write is isolated per transaction only: two writers racing on
// the same id resolve last-writer-wins. Resolution is sequential per capture,
// so this cannot happen unless handler attempts are ever parallelized.
func (r *ExceptionRepository) AppendHandlerCall(ctx context.Context, id uint, handlerName string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec model.ErrorRecord
		if err := tx.First(&rec, id).Error; err != nil {
			return err
		}

		calls := append(model.HandlerCalls{}, rec.HandlerCalls...)
		calls = append(calls, handlerName)

		return tx.Model(&model.ErrorRecord{}).
			Where("id = ?", id).
			Update("handlerCalls", calls).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}

	return storageErr("append handler call", err)
}

// GetErrors returns the limit most recent records, newest first.
func (r *ExceptionRepository) GetErrors(ctx context.Context, limit int) ([]model.ErrorRecord, error) {
	if limit < 1 {
		limit = DefaultListLimit
	}

	var records []model.ErrorRecord
	err := r.db.WithContext(ctx).
		Order(clause.OrderBy{Columns: []clause.OrderByColumn{
			{Column: clause.Column{Name: "timestamp"}, Desc: true},
			{Column: clause.Column{Name: "id"}, Desc: true},
		}}).
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, storageErr("list", err)
	}

	return records, nil
}

// GetError looks up a single record. A missing record is reported as
// (nil, false, nil), never as an error.
func (r *ExceptionRepository) GetError(ctx context.Context, id uint) (*model.ErrorRecord, bool, error) {
	var rec model.ErrorRecord
	err := r.db.WithContext(ctx).First(&rec, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, storageErr("get", err)
	}

	return &rec, true, nil
}

// Expire deletes every record captured strictly before cutoff and reports how many were removed.
func (r *ExceptionRepository) Expire(ctx context.Context, cutoff time.Time) (int64, error) {
	var removed int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where(clause.Lt{Column: clause.Column{Name: "timestamp"}, Value: cutoff.UTC()}).
			Delete(&model.ErrorRecord{})
		removed = res.RowsAffected
		return res.Error
	})
	if err != nil {
		return 0, storageErr("expire", err)
	}

	if removed > 0 {
		logger.WithFields(map[string]interface{}{
			"repo":    "ExceptionRepository",
			"cutoff":  model.FormatTimestamp(cutoff),
			"removed": removed,
		}).Debug("Expired error records")
	}

	return removed, nil
}

// CountErrors returns the number of records currently stored.
func (r *ExceptionRepository) CountErrors(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.ErrorRecord{}).Count(&count).Error; err != nil {
		return 0, storageErr("count", err)
	}
	return count, nil
}
