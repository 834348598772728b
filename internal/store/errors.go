package store

import (
	"errors"
	"fmt"
)

// NotFoundError is returned when an operation references a record id
// that does not exist. It is a local, recoverable condition - callers
// surface it to the user rather than treating it as fatal.
type NotFoundError struct {
	Kind string // "project" or "item"
	ID   string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

// IsNotFound returns true if the error is a NotFoundError.
// Uses errors.As to handle wrapped errors.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
