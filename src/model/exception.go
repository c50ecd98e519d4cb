package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// TimestampLayout is the fixed rendering used for every timestamp leaving the store.
const TimestampLayout = "2006-01-02 15:04:05"

// UnhandledMarker is appended to HandlerCalls when no registered handler accepted the failure.
const UnhandledMarker = "unhandled"

// ErrorRecord is one captured failure, persisted for auditing and debugging.
// The column names are part of the on-disk layout and must not change.
type ErrorRecord struct {
	ID uint `gorm:"column:id;primaryKey;autoIncrement" json:"id"`

	// Set once at capture time, always UTC.
	Timestamp time.Time `gorm:"column:timestamp;index" json:"timestamp"`

	// Error information
	Kind       string `gorm:"column:kind;type:text" json:"kind"`
	Message    string `gorm:"column:message;type:text" json:"message"`
	StackTrace string `gorm:"column:stackTrace;type:text" json:"stack_trace"`

	// Every handler attempted for this record, in attempt order.
	HandlerCalls HandlerCalls `gorm:"column:handlerCalls;type:text" json:"handler_calls"`
}

func (ErrorRecord) TableName() string { return "errors" }

// HandlerCalls is stored as a JSON encoded list of handler names.
type HandlerCalls []string

func (h HandlerCalls) Value() (driver.Value, error) {
	if h == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(h))
	if err != nil {
		return nil, fmt.Errorf("HandlerCalls: marshal: %w", err)
	}
	return string(b), nil
}

func (h *HandlerCalls) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*h = HandlerCalls{}
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("HandlerCalls: unsupported column type %T", src)
	}

	if len(raw) == 0 {
		*h = HandlerCalls{}
		return nil
	}

	var calls []string
	if err := json.Unmarshal(raw, &calls); err != nil {
		return fmt.Errorf("HandlerCalls: invalid json %q: %w", string(raw), err)
	}
	if calls == nil {
		calls = []string{}
	}
	*h = calls
	return nil
}

// ErrorRecordResponse is the serialized form handed to the HTTP boundary and the CLI.
type ErrorRecordResponse struct {
	ID           uint     `json:"id"`
	Timestamp    string   `json:"timestamp"`
	Kind         string   `json:"kind"`
	Message      string   `json:"message"`
	StackTrace   string   `json:"stack_trace"`
	HandlerCalls []string `json:"handler_calls"`
}

func (e *ErrorRecord) ToResponse() ErrorRecordResponse {
	calls := make([]string, len(e.HandlerCalls))
	copy(calls, e.HandlerCalls)

	return ErrorRecordResponse{
		ID:           e.ID,
		Timestamp:    FormatTimestamp(e.Timestamp),
		Kind:         e.Kind,
		Message:      e.Message,
		StackTrace:   e.StackTrace,
		HandlerCalls: calls,
	}
}

func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}
