// Package apperr carries the error taxonomy shared by every service layer.
// Errors are classified once, where they originate, and mapped to transport
// codes only at the edge.
package apperr

import (
	"context"
	"errors"
	"fmt"
)

type Kind int

const (
	KindPersistence Kind = iota
	KindValidation
	KindNotFound
	KindConflict
	KindUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "VALIDATION"
	case KindNotFound:
		return "NOT_FOUND"
	case KindConflict:
		return "CONFLICT"
	case KindUnavailable:
		return "UNAVAILABLE"
	default:
		return "PERSISTENCE"
	}
}

// Retryable reports whether a caller may repeat the same request unchanged.
func (k Kind) Retryable() bool {
	return k == KindUnavailable
}

type Error struct {
	Kind    Kind
	Message string
	Details string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Validation(message string) *Error { return New(KindValidation, message) }

func Validationf(format string, args ...any) *Error {
	return New(KindValidation, fmt.Sprintf(format, args...))
}

func NotFound(message string) *Error { return New(KindNotFound, message) }

func Conflict(message string) *Error { return New(KindConflict, message) }

// Persistence wraps a lower-layer failure. Deadline and cancellation errors
// are reclassified as Unavailable so callers know a retry is safe.
func Persistence(message string, err error) *Error {
	kind := KindPersistence
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		kind = KindUnavailable
	}
	return &Error{Kind: kind, Message: message, Err: err}
}

func Unavailable(message string, err error) *Error {
	return &Error{Kind: KindUnavailable, Message: message, Err: err}
}

// WithDetails returns a copy of e carrying extra context for the client.
func (e *Error) WithDetails(details string) *Error {
	cp := *e
	cp.Details = details
	return &cp
}

// Is matches sentinel errors by identity of the original pointer or, for
// copies made by WithDetails, by kind and message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e == t || (e.Kind == t.Kind && e.Message == t.Message && t.Err == nil && t.Details == "")
}

// KindOf classifies any error. Unclassified errors are persistence failures.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return KindUnavailable
	}
	return KindPersistence
}
