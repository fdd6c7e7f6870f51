package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("article not found")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrInvalidWindow   = errors.New("invalid window")
)

// StorageError wraps a failure of the article or view event store.
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

// NewStorageError wraps err unless it is nil or already a domain sentinel.
func NewStorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrInvalidArgument) {
		return err
	}
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}
