package database

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownDriver     = errors.New("unknown database driver")
	ErrInvalidTable      = errors.New("invalid table name")
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	ErrInvalidEmbedding  = errors.New("invalid embedding blob")
	ErrTableNotFound     = errors.New("faces table not found")
)

// StorageError reports a failed schema, read or write operation against the store.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// NewStorageError wraps err as a StorageError. Returns nil if err is nil.
func NewStorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

// IsStorageError reports whether err is or wraps a StorageError.
func IsStorageError(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}
