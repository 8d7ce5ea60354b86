// Package apperr defines the error taxonomy shared by the orchestrator,
// its stages and the HTTP boundary.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for retry and reporting decisions.
type Kind string

const (
	KindInvalidRequest      Kind = "invalid_request"
	KindInvalidInput        Kind = "invalid_input"
	KindProviderUnavailable Kind = "provider_unavailable"
	KindRateLimited         Kind = "rate_limited"
	KindUnknownTarget       Kind = "unknown_target"
	KindNotFound            Kind = "not_found"
	KindInternal            Kind = "internal"
)

// Error is a classified error. Cause is optional.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports kind equality so errors.Is(err, apperr.NotFound("")) matches any not_found error.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// New creates an Error of the given kind.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind to an underlying error.
func Wrap(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

func InvalidRequest(format string, args ...any) *Error {
	return New(KindInvalidRequest, format, args...)
}

func InvalidInput(format string, args ...any) *Error {
	return New(KindInvalidInput, format, args...)
}

func ProviderUnavailable(cause error, format string, args ...any) *Error {
	return Wrap(KindProviderUnavailable, cause, format, args...)
}

func RateLimited(cause error, format string, args ...any) *Error {
	return Wrap(KindRateLimited, cause, format, args...)
}

func UnknownTarget(target string) *Error {
	return New(KindUnknownTarget, "unknown deployment target %q", target)
}

func NotFound(format string, args ...any) *Error {
	return New(KindNotFound, format, args...)
}

func Internal(cause error, format string, args ...any) *Error {
	return Wrap(KindInternal, cause, format, args...)
}

// KindOf returns the kind of the first classified error in the chain,
// or KindInternal when none is present.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Retryable reports whether a failure is transient.
func Retryable(err error) bool {
	switch KindOf(err) {
	case KindProviderUnavailable, KindRateLimited:
		return true
	default:
		return false
	}
}

// HTTPStatus maps a kind to the status code returned by the API.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindInvalidRequest, KindInvalidInput, KindUnknownTarget:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindProviderUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
