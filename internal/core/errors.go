package core

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates the requested key is absent from the store.
// Benign in normal operation; the caller decides the semantics.
var ErrNotFound = errors.New("record not found")

// ErrAlreadyExists indicates a duplicate create. It signals a caller bug
// or a ticket/token replay and should be logged, not silently ignored.
var ErrAlreadyExists = errors.New("record already exists")

// DecodeError marks a corrupt or foreign entry in durable storage. Bulk
// operations (the sweep) log and skip these instead of aborting.
type DecodeError struct {
	Key     string
	Wrapped error
}

func (e DecodeError) Error() string {
	return fmt.Sprintf("decoding record '%s': %v", e.Key, e.Wrapped)
}

func (e DecodeError) Unwrap() error {
	return e.Wrapped
}

// StorageError wraps a failure of the underlying medium. The store never
// retries internally; retry policy belongs to the caller, who knows
// whether the operation is safe to repeat.
type StorageError struct {
	Op      string
	Key     string
	Wrapped error
}

func (e StorageError) Error() string {
	return fmt.Sprintf("storage %s '%s': %v", e.Op, e.Key, e.Wrapped)
}

func (e StorageError) Unwrap() error {
	return e.Wrapped
}
