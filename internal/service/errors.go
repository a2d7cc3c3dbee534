package service

import (
	"errors"
	"fmt"

	"github.com/phrazzld/todo-api/internal/domain"
)

// ItemServiceError is a custom error type for item service errors.
// Message is safe to show to API clients; Err carries the cause.
type ItemServiceError struct {
	Operation string
	Message   string
	Err       error
}

// Error implements the error interface for ItemServiceError.
func (e *ItemServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("item service %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("item service %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ItemServiceError) Unwrap() error {
	return e.Err
}

// NewItemServiceError creates a new ItemServiceError.
func NewItemServiceError(operation, message string, err error) *ItemServiceError {
	return &ItemServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}

// IsClassified reports whether err wraps one of the domain outcome sentinels.
// Anything else is an unexpected failure.
func IsClassified(err error) bool {
	return errors.Is(err, domain.ErrInvalidInput) ||
		errors.Is(err, domain.ErrNotFound) ||
		errors.Is(err, domain.ErrForbidden) ||
		errors.Is(err, domain.ErrConflict)
}

// UserMessage returns the client-facing message for err. Unclassified
// failures get a generic message so store details never reach clients.
func UserMessage(err error) string {
	if !IsClassified(err) {
		return MsgUnexpectedFailure
	}
	var svcErr *ItemServiceError
	if errors.As(err, &svcErr) && svcErr.Message != "" {
		return svcErr.Message
	}
	return err.Error()
}
