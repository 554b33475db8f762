// Package apperr defines the error kinds surfaced by the review service.
// Handlers translate kinds to HTTP statuses; nothing below the HTTP layer
// knows about status codes except TransportError, which carries the
// upstream status of the generation service.
package apperr

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindUnknown Kind = iota
	KindUnauthenticated
	KindValidation
	KindQuotaExceeded
	KindForbidden
	KindNotFound
	KindConflict
	KindTransport
	KindPersistence
)

func (k Kind) String() string {
	switch k {
	case KindUnauthenticated:
		return "unauthenticated"
	case KindValidation:
		return "validation"
	case KindQuotaExceeded:
		return "quota_exceeded"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindTransport:
		return "transport"
	case KindPersistence:
		return "persistence"
	default:
		return "unknown"
	}
}

// Error is a classified, user-presentable error.
type Error struct {
	Kind    Kind
	Message string
	// Fields holds per-field messages for KindValidation.
	Fields map[string][]string
	// UpgradeRequired hints that a plan upgrade would lift the restriction.
	UpgradeRequired bool
	// StatusCode is the upstream status for KindTransport (0 when no response was received).
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// WithMessage replaces the user-facing message.
func (e *Error) WithMessage(msg string) *Error {
	e.Message = msg
	return e
}

func Unauthenticated(msg string) *Error {
	return &Error{Kind: KindUnauthenticated, Message: msg}
}

// Validation builds a field-keyed validation error.
func Validation(fields map[string][]string) *Error {
	return &Error{Kind: KindValidation, Message: "validation failed", Fields: fields}
}

// FieldError is a single-field shorthand for Validation.
func FieldError(field, msg string) *Error {
	return Validation(map[string][]string{field: {msg}})
}

// QuotaExceeded signals a plan limit; callers should offer an upgrade.
func QuotaExceeded(msg string) *Error {
	return &Error{Kind: KindQuotaExceeded, Message: msg, UpgradeRequired: true}
}

func Forbidden(msg string) *Error {
	return &Error{Kind: KindForbidden, Message: msg}
}

func NotFound(msg string) *Error {
	return &Error{Kind: KindNotFound, Message: msg}
}

func Conflict(msg string) *Error {
	return &Error{Kind: KindConflict, Message: msg}
}

// Transport reports a failed call to an external service, by default the generation service.
func Transport(statusCode int, err error) *Error {
	return &Error{Kind: KindTransport, Message: "Failed to review code. Please try again.", StatusCode: statusCode, Err: err}
}

// Persistence wraps a store failure.
func Persistence(err error) *Error {
	return &Error{Kind: KindPersistence, Message: "persistence error", Err: err}
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// As returns the *Error in err's chain, if any.
func As(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}
