// Package apperr defines the error kinds surfaced by the order service and
// their mapping onto HTTP status codes.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	KindValidation  Kind = "validation"
	KindAuth        Kind = "unauthorized"
	KindForbidden   Kind = "forbidden"
	KindNotFound    Kind = "not_found"
	KindConflict    Kind = "conflict"
	KindUpstream    Kind = "upstream"
	KindPersistence Kind = "persistence"
)

// Error carries a stable kind, a caller-safe message and the wrapped cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

func Validation(format string, args ...any) error {
	return newError(KindValidation, nil, format, args...)
}

func Unauthorized(format string, args ...any) error {
	return newError(KindAuth, nil, format, args...)
}

func Forbidden(format string, args ...any) error {
	return newError(KindForbidden, nil, format, args...)
}

func NotFound(format string, args ...any) error {
	return newError(KindNotFound, nil, format, args...)
}

func Conflict(format string, args ...any) error {
	return newError(KindConflict, nil, format, args...)
}

func Upstream(err error, format string, args ...any) error {
	return newError(KindUpstream, err, format, args...)
}

func Persistence(err error, format string, args ...any) error {
	return newError(KindPersistence, err, format, args...)
}

// KindOf reports the kind of err. Errors that were never classified are
// treated as persistence failures so they map to a 500.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindPersistence
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// PublicMessage is the message safe to hand back to a caller.
func PublicMessage(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return "internal error"
	}
	switch e.Kind {
	case KindPersistence:
		return "internal error"
	case KindUpstream:
		return "payment gateway unavailable"
	default:
		return e.Message
	}
}

func HTTPStatus(kind Kind) int {
	switch kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuth:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
