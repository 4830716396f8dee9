package services

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failed operation. Every error leaving the core is
// one of these four kinds; callers decide what to do with them, the core
// never retries.
type ErrorKind int

const (
	// KindValidation is a malformed or missing input, rejected before any mutation.
	KindValidation ErrorKind = iota + 1
	// KindNotFound is an unknown account, request or credit, rejected before any mutation.
	KindNotFound
	// KindPrecondition is a state that forbids the operation (insufficient
	// balance, wrong workflow status, same-account transfer), rejected before
	// any mutation.
	KindPrecondition
	// KindInternal is a storage or atomicity failure; the whole unit of work
	// has been rolled back.
	KindInternal
)

// Error is the typed failure surfaced by every core operation.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Validationf builds a KindValidation error.
func Validationf(format string, args ...any) error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// NotFoundf builds a KindNotFound error.
func NotFoundf(format string, args ...any) error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// Preconditionf builds a KindPrecondition error.
func Preconditionf(format string, args ...any) error {
	return &Error{Kind: KindPrecondition, Message: fmt.Sprintf(format, args...)}
}

// Internalf wraps a storage failure.
func Internalf(err error, format string, args ...any) error {
	return &Error{Kind: KindInternal, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the kind of err, defaulting to KindInternal for untyped
// errors so nothing leaks out unclassified.
func KindOf(err error) ErrorKind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}
