package types

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Kind classifies an error for propagation and HTTP mapping.
type Kind string

const (
	KindValidation  Kind = "validation"
	KindNotFound    Kind = "not_found"
	KindRateLimited Kind = "rate_limited"
	KindEngine      Kind = "engine_error"
	KindCache       Kind = "cache_error"
	KindExternalAPI Kind = "external_api_error"
	KindConfig      Kind = "config_error"
	KindInternal    Kind = "internal"
)

// HTTPStatus returns the HTTP status code a kind surfaces as.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindExternalAPI:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Error is a domain error with a kind, a human-readable message, and
// optional context for the JSON envelope.
type Error struct {
	Kind    Kind           `json:"code"`
	Message string         `json:"message"`
	Context map[string]any `json:"context,omitempty"`

	// RetryAfter is set for rate-limited errors.
	RetryAfter time.Duration `json:"-"`

	err error
}

// NewError creates a domain error of the given kind.
func NewError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// WrapError wraps err as a domain error of the given kind.
func WrapError(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, err: err}
}

// WithContext attaches a context key/value pair and returns the error.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// WithRetryAfter sets the retry-after hint for rate-limited errors.
func (e *Error) WithRetryAfter(d time.Duration) *Error {
	e.RetryAfter = d
	return e
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.err }

// KindOf extracts the kind from err, defaulting to internal.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}

// AsError converts err into a domain error, wrapping unknown errors as
// internal.
func AsError(err error) *Error {
	var de *Error
	if errors.As(err, &de) {
		return de
	}
	return WrapError(KindInternal, "internal error", err)
}
