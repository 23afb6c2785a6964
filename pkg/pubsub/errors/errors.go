// Package errors defines the PubSub-specific error kinds layered on top
// of pkg/errors's AppError: ConfigurationError, AllocationError,
// TransportError, DecodeError, SecurityError, ApplicationError and
// SafetyError.
package errors

import "github.com/fieldbus-systems/opcua-pubsub/pkg/errors"

const (
	CodeConfiguration = "PUBSUB_CONFIGURATION"
	CodeAllocation    = "PUBSUB_ALLOCATION"
	CodeTransport     = "PUBSUB_TRANSPORT"
	CodeDecode        = "PUBSUB_DECODE"
	CodeSecurity      = "PUBSUB_SECURITY"
	CodeApplication   = "PUBSUB_APPLICATION"
	CodeSafety        = "PUBSUB_SAFETY"
)

// Configuration reports a malformed or invalid configuration detected at
// build or start time. No worker is started when this occurs.
func Configuration(message string, cause error) *errors.AppError {
	return errors.New(CodeConfiguration, message, cause)
}

// Allocation reports an allocator returning none; callers surface this
// as a boolean false from the triggering operation.
func Allocation(message string, cause error) *errors.AppError {
	return errors.New(CodeAllocation, message, cause)
}

// Transport reports a socket send/recv failure. The current tick is
// abandoned; the worker continues on the next tick.
func Transport(message string, cause error) *errors.AppError {
	return errors.New(CodeTransport, message, cause)
}

// Decode reports a rejected network message. The caller drops it
// silently after logging; it is never propagated further.
func Decode(message string, cause error) *errors.AppError {
	return errors.New(CodeDecode, message, cause)
}

// Security reports a missing key, signature mismatch or replay.
// Dispatched via the signature-failure callback; the DSM is dropped.
func Security(message string, cause error) *errors.AppError {
	return errors.New(CodeSecurity, message, cause)
}

// Application reports a sink/provider callback returning false or
// timing out. The scheduler continues.
func Application(message string, cause error) *errors.AppError {
	return errors.New(CodeApplication, message, cause)
}

// Safety reports the Safety Layer's byte-status going non-zero.
// Returned from UAM cycle; the caller decides how to react.
func Safety(message string, cause error) *errors.AppError {
	return errors.New(CodeSafety, message, cause)
}

// Is reports whether err carries the given PubSub error code.
func Is(err error, code string) bool {
	return errors.Code(err) == code
}
