// Package apperr provides the structured error type used across memoryd.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for client-facing translation and retry policy.
type Kind string

const (
	// Validation indicates the caller supplied invalid arguments.
	Validation Kind = "VALIDATION"
	// NotFound indicates the referenced record does not exist.
	NotFound Kind = "NOT_FOUND"
	// NotReady indicates the embedding subsystem has not finished loading.
	NotReady Kind = "NOT_READY"
	// Database indicates the storage layer failed.
	Database Kind = "DATABASE"
	// Embedding indicates the embedding subsystem failed to produce a vector.
	Embedding Kind = "EMBEDDING"
	// Indexing indicates the code-indexing pipeline failed.
	Indexing Kind = "INDEXING"
	// DimensionMismatch indicates an embedding's length does not match the
	// active model dimension.
	DimensionMismatch Kind = "DIMENSION_MISMATCH"
	// Internal indicates an unexpected internal failure.
	Internal Kind = "INTERNAL"
)

// Error is the structured error type for memoryd. It carries enough context
// for logging, client translation, and errors.Is/As chaining.
type Error struct {
	// Kind classifies the error.
	Kind Kind

	// Code is a stable machine-readable identifier, e.g. "memory_not_found".
	Code string

	// Message is the human-readable description.
	Message string

	// Details carries structured context (field names, ids, counts).
	Details map[string]string

	// Cause is the underlying error, if any.
	Cause error

	// Retryable indicates whether the caller may retry the operation as-is.
	Retryable bool
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap supports errors.Is/errors.As against the wrapped cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is enables errors.Is(err, target) to match by Code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithDetail adds a key-value detail and returns the error for chaining.
func (e *Error) WithDetail(key, value string) *Error {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// New constructs an Error of the given kind.
func New(kind Kind, code, message string, cause error) *Error {
	return &Error{
		Kind:      kind,
		Code:      code,
		Message:   message,
		Cause:     cause,
		Retryable: kind == Database,
	}
}

// Validationf builds a Validation error with a formatted message.
func Validationf(code, format string, args ...any) *Error {
	return New(Validation, code, fmt.Sprintf(format, args...), nil)
}

// NotFoundf builds a NotFound error with a formatted message.
func NotFoundf(code, format string, args ...any) *Error {
	return New(NotFound, code, fmt.Sprintf(format, args...), nil)
}

// Wrap creates an Error of the given kind from an existing error. Returns
// nil if err is nil.
func Wrap(kind Kind, code string, err error) *Error {
	if err == nil {
		return nil
	}
	return New(kind, code, err.Error(), err)
}

// KindOf extracts the Kind from err, returning Internal if err is not an
// *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// IsRetryable reports whether err is an *Error flagged retryable.
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable
	}
	return false
}
