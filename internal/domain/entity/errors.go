package entity

import (
	"errors"
	"fmt"
)

// ErrorCode classifies failures surfaced to callers of the verification
// service. Inbound adapters map these to their transport's status codes.
type ErrorCode string

const (
	CodeUnauthenticated    ErrorCode = "unauthenticated"
	CodeInvalidArgument    ErrorCode = "invalid-argument"
	CodeNotFound           ErrorCode = "not-found"
	CodeFailedPrecondition ErrorCode = "failed-precondition"
	CodeInternal           ErrorCode = "internal"
)

// CodedError is an error carrying a structured code and a human-readable
// message. Internal errors wrap the original cause for diagnostics.
type CodedError struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *CodedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s", e.Message, e.Err)
	}
	return e.Message
}

func (e *CodedError) Unwrap() error {
	return e.Err
}

// Errorf creates a CodedError with a formatted message.
func Errorf(code ErrorCode, format string, args ...any) *CodedError {
	return &CodedError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Internalf wraps an unexpected failure as an internal error, preserving the
// original message for diagnostics.
func Internalf(err error, format string, args ...any) *CodedError {
	return &CodedError{Code: CodeInternal, Message: fmt.Sprintf(format, args...), Err: err}
}

// CodeOf extracts the error code from err. Errors without a code are
// classified as internal.
func CodeOf(err error) ErrorCode {
	var coded *CodedError
	if errors.As(err, &coded) {
		return coded.Code
	}
	return CodeInternal
}
