package providers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrorKind classifies a provider error. The gateway's entire fallible
// surface maps onto three kinds: validation problems are caller defects and
// are never retried; timeouts and other upstream failures are candidates for
// retry on the next provider, subject to the auth carve-out in Retryable.
type ErrorKind string

const (
	// KindValidation marks a request that violates a precondition
	// (missing key, unknown model, schema violation).
	KindValidation ErrorKind = "validation"

	// KindTimeout marks an upstream call that exceeded its deadline.
	KindTimeout ErrorKind = "timeout"

	// KindInternal marks any other upstream failure: HTTP 5xx, connection
	// reset, malformed response, rate limit.
	KindInternal ErrorKind = "internal"
)

// Sentinel targets for errors.Is. They match any *Error of the same kind.
var (
	ErrValidation = &Error{Kind: KindValidation}
	ErrTimeout    = &Error{Kind: KindTimeout}
	ErrInternal   = &Error{Kind: KindInternal}
)

// Error is the structured error returned by every provider operation.
type Error struct {
	// Kind classifies the failure
	Kind ErrorKind

	// Provider is the provider name, when known
	Provider string

	// Message is the human-readable description
	Message string

	// Err is the underlying cause (if any)
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.Provider != "" {
		msg = fmt.Sprintf("provider %q: %s", e.Provider, msg)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying error for error chain support.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches kind-only sentinels, so errors.Is(err, ErrTimeout) works
// regardless of message or provider.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Provider == "" && t.Message == "" && t.Err == nil
}

// NewValidationError creates a non-retryable validation error.
func NewValidationError(message string) *Error {
	return &Error{Kind: KindValidation, Message: message}
}

// NewValidationErrorf creates a validation error with a formatted message.
func NewValidationErrorf(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// NewTimeoutError creates a retryable timeout error.
func NewTimeoutError(provider string, timeout time.Duration) *Error {
	return &Error{
		Kind:     KindTimeout,
		Provider: provider,
		Message:  fmt.Sprintf("request timed out after %s", timeout),
	}
}

// NewInternalError creates an internal error.
func NewInternalError(message string) *Error {
	return &Error{Kind: KindInternal, Message: message}
}

// NewInternalErrorf creates an internal error with a formatted message.
func NewInternalErrorf(format string, args ...any) *Error {
	return &Error{Kind: KindInternal, Message: fmt.Sprintf(format, args...)}
}

// WrapInternal wraps an underlying error as an internal provider error.
func WrapInternal(provider, message string, err error) *Error {
	return &Error{Kind: KindInternal, Provider: provider, Message: message, Err: err}
}

// KindOf returns the kind of err, or "" when err carries no taxonomy tag.
func KindOf(err error) ErrorKind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}

// authHints flag messages that indicate a key or configuration defect.
// Retrying those on the same provider list cannot succeed.
var authHints = []string{
	"invalid api key",
	"api key not configured",
	"not configured",
}

func hasAuthHint(msg string) bool {
	msg = strings.ToLower(msg)
	for _, hint := range authHints {
		if strings.Contains(msg, hint) {
			return true
		}
	}
	return false
}

// Retryable reports whether a failed call is worth repeating against the
// next provider in a fallback list.
//
// Classification is structural: validation errors are never retryable,
// timeouts always are, internal errors are retryable unless their message
// indicates an auth/configuration defect. Errors without a taxonomy tag fall
// back to the same message scan. Explicit cancellation is never retryable.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	var pe *Error
	if errors.As(err, &pe) {
		switch pe.Kind {
		case KindValidation:
			return false
		case KindTimeout:
			return true
		case KindInternal:
			return !hasAuthHint(pe.Error())
		}
	}

	return !hasAuthHint(err.Error())
}
