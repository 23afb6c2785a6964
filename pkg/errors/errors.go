package errors

import (
	"errors"
	"fmt"
)

// Standard error codes shared across packages. Adapters and domain
// packages define their own codes but should reuse these where the
// situation matches.
const (
	CodeNotFound   = "NOT_FOUND"
	CodeInvalid    = "INVALID"
	CodeConflict   = "CONFLICT"
	CodeInternal   = "INTERNAL"
	CodeTimeout    = "TIMEOUT"
	CodeUnavail    = "UNAVAILABLE"
	CodePermission = "PERMISSION_DENIED"
)

// AppError is the structured error type used throughout the module. It
// carries a stable machine-readable code, a human message, and an
// optional wrapped cause.
type AppError struct {
	Code    string
	Message string
	Cause   error
}

// New creates an AppError with the given code, message and optional cause.
func New(code, message string, cause error) *AppError {
	return &AppError{Code: code, Message: message, Cause: cause}
}

// NotFound creates an AppError with CodeNotFound.
func NotFound(message string, cause error) *AppError {
	return New(CodeNotFound, message, cause)
}

// Invalid creates an AppError with CodeInvalid.
func Invalid(message string, cause error) *AppError {
	return New(CodeInvalid, message, cause)
}

// Conflict creates an AppError with CodeConflict.
func Conflict(message string, cause error) *AppError {
	return New(CodeConflict, message, cause)
}

// Internal creates an AppError with CodeInternal.
func Internal(message string, cause error) *AppError {
	return New(CodeInternal, message, cause)
}

// Timeout creates an AppError with CodeTimeout.
func Timeout(message string, cause error) *AppError {
	return New(CodeTimeout, message, cause)
}

// Unavailable creates an AppError with CodeUnavail.
func Unavailable(message string, cause error) *AppError {
	return New(CodeUnavail, message, cause)
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the wrapped cause to errors.Is/errors.As.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Wrap attaches a message to an existing error without discarding its
// code if it is already an AppError; otherwise it creates a new
// CodeInternal error.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	var ae *AppError
	if errors.As(err, &ae) {
		return New(ae.Code, message+": "+ae.Message, ae.Cause)
	}
	return New(CodeInternal, message, err)
}

// Code returns the code of an AppError, or CodeInternal if err is not one.
func Code(err error) string {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return CodeInternal
}

// Is reports whether err is an AppError with the given code.
func Is(err error, code string) bool {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Code == code
	}
	return false
}
