package db

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when no recording has the requested id
	ErrNotFound = errors.New("recording not found")

	// ErrInvalidRecord is returned by Create for records that would break the table invariants
	ErrInvalidRecord = errors.New("invalid recording")

	// ErrInvalidValue is returned by UpdateField for unknown fields or empty values
	ErrInvalidValue = errors.New("invalid field value")

	// ErrFieldAlreadySet is returned when a transcript or summary would be overwritten
	ErrFieldAlreadySet = errors.New("field already set")
)

// StorageError reports that the underlying database could not complete an operation
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error during %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
