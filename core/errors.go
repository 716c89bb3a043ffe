package core

import "fmt"

// ErrorCode is the machine-readable tag carried by every Error produced
// by this library. Callers should branch on codes (or errors.Is against
// the sentinel values below) rather than on message text.
type ErrorCode string

const (
	CodePoolClosed              ErrorCode = "pool_closed"
	CodePoolTimedOut            ErrorCode = "pool_timed_out"
	CodePositionalOutOfBounds   ErrorCode = "positional_parameter_out_of_bounds"
	CodePositionalValueNotBound ErrorCode = "positional_parameter_value_not_supplied"
	CodeNamedParameterNotFound  ErrorCode = "named_parameter_not_found"
	CodeNamedValueNotBound      ErrorCode = "named_parameter_value_not_supplied"
	CodeNoEncoderForType        ErrorCode = "no_encoder_for_type"
)

// Error is the tagged error value exposed by the pool and the statement
// engine: a stable code plus a human message, optionally wrapping a cause.
type Error struct {
	Code    ErrorCode
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Code)
	}
	return string(e.Code) + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.cause }

// Is matches any *Error carrying the same code, so
// errors.Is(err, core.ErrPoolClosed) works regardless of message detail.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// NewError builds a tagged error with a formatted message.
func NewError(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WrapError builds a tagged error that wraps an underlying cause.
func WrapError(code ErrorCode, cause error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), cause: cause}
}

// Sentinel values for errors.Is comparisons.
var (
	ErrPoolClosed   = &Error{Code: CodePoolClosed, Message: "pool is closed"}
	ErrPoolTimedOut = &Error{Code: CodePoolTimedOut, Message: "timed out waiting for a connection"}
)
