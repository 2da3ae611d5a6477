// Package errs defines the error taxonomy shared by the ledger core, storage
// and transport layers.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies an error for callers that need to react to it (retry,
// map to a status code, surface to the user).
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindForbidden
	KindNotFound
	KindConflict
	KindUnauthenticated
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindUnauthenticated:
		return "unauthenticated"
	default:
		return "internal"
	}
}

// Error is a classified error. Err, when set, is the underlying cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind, so that
// errors.Is(err, &errs.Error{Kind: errs.KindNotFound}) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

func newf(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Validation reports input that breaks a business rule. Never retried.
func Validation(format string, args ...any) error {
	return newf(KindValidation, format, args...)
}

// Forbidden reports an authenticated caller acting outside its rights.
func Forbidden(format string, args ...any) error {
	return newf(KindForbidden, format, args...)
}

// NotFound reports a referenced entity that does not exist.
func NotFound(format string, args ...any) error {
	return newf(KindNotFound, format, args...)
}

// Conflict reports a state conflict such as a duplicate key.
func Conflict(format string, args ...any) error {
	return newf(KindConflict, format, args...)
}

// Unauthenticated reports a missing or invalid identity.
func Unauthenticated(format string, args ...any) error {
	return newf(KindUnauthenticated, format, args...)
}

// Internal wraps an unexpected failure (storage unavailable, driver error).
func Internal(err error, message string) error {
	return &Error{Kind: KindInternal, Message: message, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or
// KindInternal if there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsNotFound reports whether err is classified as not found.
func IsNotFound(err error) bool {
	return err != nil && KindOf(err) == KindNotFound
}
