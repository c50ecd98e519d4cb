package controller

import (
	"context"

	"errortrail/src/model"
)

type errorReader interface {
	GetErrors(ctx context.Context, limit int) ([]model.ErrorRecord, error)
	GetError(ctx context.Context, id uint) (*model.ErrorRecord, bool, error)
}

// ErrorsController is the read-only query surface over the error store.
// It serializes records; it never mutates them.
type ErrorsController struct {
	store        errorReader
	defaultLimit int
}

func NewErrorsController(store errorReader, defaultLimit int) *ErrorsController {
	if defaultLimit < 1 {
		defaultLimit = 10
	}
	return &ErrorsController{store: store, defaultLimit: defaultLimit}
}

// ListRecent returns up to limit records, newest first. A limit below 1
// falls back to the default. No upper bound is enforced here.
func (c *ErrorsController) ListRecent(ctx context.Context, limit int) ([]model.ErrorRecordResponse, error) {
	if limit < 1 {
		limit = c.defaultLimit
	}

	records, err := c.store.GetErrors(ctx, limit)
	if err != nil {
		return nil, err
	}

	out := make([]model.ErrorRecordResponse, 0, len(records))
	for i := range records {
		out = append(out, records[i].ToResponse())
	}
	return out, nil
}

// FetchOne returns the serialized record, or found=false when it does not exist.
func (c *ErrorsController) FetchOne(ctx context.Context, id uint) (*model.ErrorRecordResponse, bool, error) {
	rec, found, err := c.store.GetError(ctx, id)
	if err != nil || !found {
		return nil, false, err
	}

	resp := rec.ToResponse()
	return &resp, true, nil
}
