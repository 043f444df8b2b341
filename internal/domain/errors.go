package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrValidation        = errors.New("validation failed")
	ErrConflict          = errors.New("booking conflict")
	ErrNotFound          = errors.New("not found")
	ErrTransientStore    = errors.New("store temporarily unavailable")
	ErrInvalidTransition = errors.New("invalid state transition")
	ErrRateLimited       = errors.New("rate limit exceeded")
)

// ValidationError reports malformed or missing input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func NewValidationError(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// ConflictError reports that the requested slot is already claimed.
// ConflictingID is zero for stale-version conflicts.
type ConflictError struct {
	Reason          string
	ConflictingID   int64
	ConflictingDate time.Time
}

func (e *ConflictError) Error() string {
	if e.ConflictingID == 0 {
		return e.Reason
	}
	return fmt.Sprintf("%s (booking %d on %s)", e.Reason, e.ConflictingID, e.ConflictingDate.Format("2006-01-02"))
}

func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

type NotFoundError struct {
	Entity string
	ID     any
}

func (e *NotFoundError) Error() string {
	if e.ID == nil {
		return e.Entity + " not found"
	}
	return fmt.Sprintf("%s %v not found", e.Entity, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

func NewNotFoundError(entity string, id any) error {
	return &NotFoundError{Entity: entity, ID: id}
}

// TransientStoreError wraps a storage failure the caller may retry.
type TransientStoreError struct {
	Op  string
	Err error
}

func (e *TransientStoreError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransientStoreError) Unwrap() []error { return []error{ErrTransientStore, e.Err} }

type TransitionError struct {
	Entity string
	From   string
	To     string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s cannot move from %s to %s", e.Entity, e.From, e.To)
}

func (e *TransitionError) Is(target error) bool { return target == ErrInvalidTransition }

// ErrStaleVersion is returned when an optimistic update lost the race.
var ErrStaleVersion = &ConflictError{Reason: "record was modified concurrently, reload and retry"}
