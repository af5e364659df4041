package core

import (
	"errors"
	"fmt"
)

// Validation errors are surfaced to the caller immediately and never retried.
var (
	ErrEmptyName         = errors.New("empty bill name")
	ErrNameTooLong       = errors.New("bill name too long (max 200 characters)")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInvalidDueDate    = errors.New("invalid due date")
	ErrInvalidCategory   = errors.New("invalid category")
	ErrInvalidRecurrence = errors.New("invalid recurrence: count and interval must be at least 1")
)

// NotFoundError reports an operation against an unknown bill id.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("bill not found: %s", e.ID)
}

// IsNotFound reports whether err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// StoreErrorKind classifies backing-store failures so callers can tell an
// idempotent "already exists" from a genuine write failure.
type StoreErrorKind string

const (
	StoreUnavailable   StoreErrorKind = "unavailable"
	StoreRejected      StoreErrorKind = "rejected"
	StoreAlreadyExists StoreErrorKind = "already_exists"
)

// StoreError wraps a backing-store failure. In-memory state is never rolled
// back when one of these is returned; the caller decides.
type StoreError struct {
	Op   string
	Kind StoreErrorKind
	Err  error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s (%s): %v", e.Op, e.Kind, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError builds a StoreError, defaulting the kind to unavailable.
func NewStoreError(op string, kind StoreErrorKind, err error) *StoreError {
	if kind == "" {
		kind = StoreUnavailable
	}
	return &StoreError{Op: op, Kind: kind, Err: err}
}

// IsAlreadyExists reports whether err is a store failure that means the
// write was a duplicate of existing state (treated as success when linking).
func IsAlreadyExists(err error) bool {
	var se *StoreError
	return errors.As(err, &se) && se.Kind == StoreAlreadyExists
}
