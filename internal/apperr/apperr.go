// Package apperr defines the error kinds every service returns and how they
// map onto HTTP status codes.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	KindValidation      Kind = "validation_error"
	KindUnauthenticated Kind = "unauthenticated"
	KindForbidden       Kind = "forbidden"
	KindNotFound        Kind = "not_found"
	KindConflict        Kind = "conflict"
	KindNoOp            Kind = "no_op"
	KindInvalidState    Kind = "invalid_state"
	KindAlreadyGranted  Kind = "already_granted"
	KindPersistence     Kind = "persistence_error"
	KindInternal        Kind = "internal_error"
)

// Error carries a client-safe message. Err is the internal cause and is
// never serialized.
type Error struct {
	Kind    Kind
	Message string
	Details []string
	// Extra is merged into the JSON error body (e.g. upgrade_required).
	Extra map[string]any
	Err   error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on kind so callers can write errors.Is(err, apperr.ErrNotFound).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == "" && t.Kind == e.Kind
}

// Sentinels for errors.Is comparisons.
var (
	ErrValidation      = &Error{Kind: KindValidation}
	ErrUnauthenticated = &Error{Kind: KindUnauthenticated}
	ErrForbidden       = &Error{Kind: KindForbidden}
	ErrNotFound        = &Error{Kind: KindNotFound}
	ErrConflict        = &Error{Kind: KindConflict}
	ErrNoOp            = &Error{Kind: KindNoOp}
	ErrInvalidState    = &Error{Kind: KindInvalidState}
	ErrAlreadyGranted  = &Error{Kind: KindAlreadyGranted}
	ErrPersistence     = &Error{Kind: KindPersistence}
	ErrInternal        = &Error{Kind: KindInternal}
)

func Validation(msg string, details ...string) *Error {
	return &Error{Kind: KindValidation, Message: msg, Details: details}
}

func Unauthenticated(msg string, cause error) *Error {
	return &Error{Kind: KindUnauthenticated, Message: msg, Err: cause}
}

func Forbidden(msg string, extra map[string]any) *Error {
	return &Error{Kind: KindForbidden, Message: msg, Extra: extra}
}

func NotFound(msg string) *Error {
	return &Error{Kind: KindNotFound, Message: msg}
}

func Conflict(msg string) *Error {
	return &Error{Kind: KindConflict, Message: msg}
}

func NoOp(msg string) *Error {
	return &Error{Kind: KindNoOp, Message: msg}
}

func InvalidState(msg string) *Error {
	return &Error{Kind: KindInvalidState, Message: msg}
}

func AlreadyGranted(msg string) *Error {
	return &Error{Kind: KindAlreadyGranted, Message: msg}
}

func Persistence(msg string, cause error) *Error {
	return &Error{Kind: KindPersistence, Message: msg, Err: cause}
}

func Internal(msg string, cause error) *Error {
	return &Error{Kind: KindInternal, Message: msg, Err: cause}
}

// From unwraps err into an *Error, wrapping unknown errors as internal.
func From(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Internal("Internal server error", err)
}

// Status maps a kind to its HTTP status code.
func Status(kind Kind) int {
	switch kind {
	case KindValidation, KindNoOp, KindInvalidState, KindAlreadyGranted:
		return http.StatusBadRequest
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
