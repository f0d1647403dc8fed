// Package apperr is the error taxonomy shared by services, the socket hub and
// the HTTP handlers. Services return *Error values; transports translate them
// into a status code or an ERROR socket event.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for transport mapping.
type Kind string

const (
	KindNotFound    Kind = "NOT_FOUND"
	KindForbidden   Kind = "FORBIDDEN"
	KindConflict    Kind = "CONFLICT"
	KindGone        Kind = "GONE"
	KindLocked      Kind = "LOCKED"
	KindRateLimited Kind = "RATE_LIMITED"
	KindValidation  Kind = "VALIDATION_FAILED"
	KindUpstream    Kind = "UPSTREAM_FAILURE"
	KindInternal    Kind = "INTERNAL_ERROR"
)

// Error is the canonical error value.
//
// Message is safe to show to clients. Cause is for server-side logging only.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// Code is the machine-readable identifier sent to clients.
func (e *Error) Code() string { return string(e.Kind) }

// Wrap returns a copy of e carrying cause. errors.Is(copy, e) still holds.
func (e *Error) Wrap(cause error) *Error {
	return &Error{Kind: e.Kind, Message: e.Message, Cause: &wrapped{sentinel: e, cause: cause}}
}

// wrapped keeps the sentinel reachable through Unwrap for errors.Is.
type wrapped struct {
	sentinel *Error
	cause    error
}

func (w *wrapped) Error() string   { return w.cause.Error() }
func (w *wrapped) Unwrap() []error { return []error{w.sentinel, w.cause} }

// NotFound builds a 404 error for a named resource, e.g. NotFound("Room").
func NotFound(resource string) *Error {
	return &Error{Kind: KindNotFound, Message: resource + " not found"}
}

func Forbidden(msg string) *Error {
	return &Error{Kind: KindForbidden, Message: msg}
}

func Conflict(msg string) *Error {
	return &Error{Kind: KindConflict, Message: msg}
}

func Gone(msg string) *Error {
	return &Error{Kind: KindGone, Message: msg}
}

func Locked(msg string) *Error {
	return &Error{Kind: KindLocked, Message: msg}
}

func RateLimited(msg string) *Error {
	return &Error{Kind: KindRateLimited, Message: msg}
}

func Validation(msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg}
}

// Upstream reports a failure of an external dependency such as the media SFU.
func Upstream(msg string, cause error) *Error {
	return &Error{Kind: KindUpstream, Message: msg, Cause: cause}
}

// Internal wraps an unexpected failure. The cause is never sent to clients.
func Internal(cause error) *Error {
	return &Error{Kind: KindInternal, Message: "an unexpected error occurred", Cause: cause}
}

// From extracts an *Error from err's chain. Anything else becomes Internal.
func From(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Internal(err)
}

// Is reports whether err carries an *Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// HTTPStatus maps an error kind to its response status.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindForbidden:
		return http.StatusForbidden
	case KindConflict:
		return http.StatusConflict
	case KindGone:
		return http.StatusGone
	case KindLocked:
		return http.StatusLocked
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindValidation:
		return http.StatusBadRequest
	case KindUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
