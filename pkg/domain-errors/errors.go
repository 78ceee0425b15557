// Package dErrors provides coded domain errors shared by services and handlers.
//
// Services translate store-level sentinel errors into coded errors here;
// handlers translate codes into HTTP status via pkg/platform/httputil.
package dErrors

import (
	"errors"
	"fmt"
)

// Code classifies a domain error for transport mapping and caller handling.
type Code string

const (
	// CodeValidation marks malformed or semantically invalid input.
	CodeValidation Code = "validation_error"
	// CodeBadRequest marks structurally broken requests (unparseable body, bad id).
	CodeBadRequest Code = "bad_request"
	// CodeNotFound marks a missing entity.
	CodeNotFound Code = "not_found"
	// CodeConflict marks a uniqueness or concurrent-update conflict.
	CodeConflict Code = "conflict"
	// CodeDuplicate marks a content-hash duplicate; the caller should resolve
	// to the original entity rather than retry.
	CodeDuplicate Code = "duplicate"
	// CodeInvalidTransition marks an illegal state-machine transition. These are
	// internal defect signals and are not surfaced verbatim to end users.
	CodeInvalidTransition Code = "invalid_transition"
	// CodeInvariantViolation marks a broken aggregate invariant at construction.
	CodeInvariantViolation Code = "invariant_violation"
	// CodeForbidden marks an operation the actor may not perform.
	CodeForbidden Code = "forbidden"
	// CodeInternal marks unexpected infrastructure failure.
	CodeInternal Code = "internal_error"
)

// Error is a coded domain error with an optional wrapped cause.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New constructs a coded error.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf constructs a coded error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, cause: err}
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// CodeOf extracts the code from err, defaulting to CodeInternal.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}
