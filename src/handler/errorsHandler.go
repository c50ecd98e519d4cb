package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"errortrail/src/model"

	"github.com/go-chi/chi/v5"
	logger "github.com/sirupsen/logrus"
)

type errorReader interface {
	ListRecent(ctx context.Context, limit int) ([]model.ErrorRecordResponse, error)
	FetchOne(ctx context.Context, id uint) (*model.ErrorRecordResponse, bool, error)
}

// parseLimit reads ?limit=. Missing means 0 (the reader's default); values
// above maxLimit are clamped when maxLimit is positive.
func parseLimit(r *http.Request, maxLimit int) (int, bool) {
	limitParam := r.URL.Query().Get("limit")
	if limitParam == "" {
		return 0, true
	}

	limit, err := strconv.Atoi(limitParam)
	if err != nil || limit <= 0 {
		return 0, false
	}
	if maxLimit > 0 && limit > maxLimit {
		limit = maxLimit
	}
	return limit, true
}

func parseID(r *http.Request) (uint, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// ListErrorsHandler returns the most recent captured errors as JSON.
// Supports ?limit=N (default from the reader, clamped to maxLimit).
func ListErrorsHandler(reader errorReader, maxLimit int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, ok := parseLimit(r, maxLimit)
		if !ok {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}

		records, err := reader.ListRecent(r.Context(), limit)
		if err != nil {
			logger.WithError(err).Error("failed to list errors")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, records)
	}
}

// GetErrorHandler returns a single captured error as JSON, or 404.
func GetErrorHandler(reader errorReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseID(r)
		if !ok {
			http.Error(w, "invalid id", http.StatusBadRequest)
			return
		}

		record, found, err := reader.FetchOne(r.Context(), id)
		if err != nil {
			logger.WithError(err).WithField("error_id", id).Error("failed to fetch error")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		if !found {
			http.Error(w, "Not Found", http.StatusNotFound)
			return
		}

		writeJSON(w, record)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.WithError(err).Error("failed to encode errors response")
	}
}
