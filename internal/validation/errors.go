// Package validation scores generated UI source for accessibility,
// performance and code quality.
package validation

import (
	"fmt"

	"github.com/jonathan/ui-builder/internal/apperr"
)

// Error represents a general validation error
type Error struct {
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("validation error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func invalidSource(format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	return &Error{Message: msg, Cause: apperr.InvalidInput("%s", msg)}
}
