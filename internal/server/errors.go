package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/jonathan/ui-builder/internal/apperr"
)

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	if err == nil {
		return http.StatusInternalServerError
	}
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		return http.StatusBadRequest
	}
	return apperr.HTTPStatus(apperr.KindOf(err))
}

// errorKind names the taxonomy kind reported to clients.
func errorKind(err error) apperr.Kind {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		return apperr.KindInvalidRequest
	}
	return apperr.KindOf(err)
}

// errorMessage hides internal causes from clients.
func errorMessage(err error) string {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		return extractValidationErrors(ve)
	}
	if apperr.KindOf(err) == apperr.KindInternal {
		return "internal error"
	}
	return err.Error()
}

// extractValidationErrors extracts validation error messages from validator errors.
func extractValidationErrors(errs validator.ValidationErrors) string {
	if len(errs) == 0 {
		return "validation error: invalid request"
	}
	// Return first validation error for simplicity
	fe := errs[0]
	if fe.Param() != "" {
		return fmt.Sprintf("validation error: %s - %s=%s", fe.Field(), fe.Tag(), fe.Param())
	}
	return fmt.Sprintf("validation error: %s - %s", fe.Field(), fe.Tag())
}
