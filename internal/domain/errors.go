// Package domain defines the core business entities and errors.
package domain

import (
	"errors"
	"fmt"
)

// Outcome sentinels. Every failure returned by the lifecycle engine wraps exactly
// one of these, and the API layer maps each of them to a single HTTP status.
var (
	// ErrInvalidInput is returned for malformed or missing fields and for
	// unrecognized status filters.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound is returned when no item exists for the requested ID.
	ErrNotFound = errors.New("item not found")

	// ErrForbidden is returned when a mutation targets a frozen (overdue) item.
	ErrForbidden = errors.New("operation forbidden")

	// ErrConflict is returned for duplicate open items and redundant status marks.
	ErrConflict = errors.New("conflict")
)

// Validation errors for item drafts. Both wrap ErrInvalidInput.
var (
	ErrEmptyDescription = fmt.Errorf("%w: description must not be null or empty", ErrInvalidInput)
	ErrDueTimeNotFuture = fmt.Errorf("%w: due date must be provided and must be in the future", ErrInvalidInput)
	ErrInvalidStatus    = fmt.Errorf("%w: invalid status", ErrInvalidInput)
)

// ValidationError describes a single invalid field.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError creates a ValidationError for the given field.
// If err is nil, ErrInvalidInput is wrapped.
func NewValidationError(field, message string, err error) *ValidationError {
	if err == nil {
		err = ErrInvalidInput
	}
	return &ValidationError{
		Field:   field,
		Message: message,
		Err:     err,
	}
}
