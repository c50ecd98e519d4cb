package repository

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when an operation targets a record id that does not exist.
var ErrNotFound = errors.New("error record not found")

// StorageError wraps any failure of the underlying storage engine
// (I/O, corruption, lock contention, constraint violation).
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// IsStorageError reports whether err carries a StorageError anywhere in its chain.
func IsStorageError(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}

func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}
