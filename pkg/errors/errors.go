// Package errors provides structured error types for pypi-updater.
//
// Every failure that can surface in a run summary carries a [Code] so the
// CLI and the report can classify it without string matching:
//
//   - PARSE_ERROR, FILE_READ_ERROR: a declaration file could not be used
//   - GRAPH_ERROR: include directives form a cycle
//   - NETWORK_ERROR, TIMEOUT, RATE_LIMITED: registry failures
//   - WRITE_ERROR: an updated file could not be written back
//   - COMPILE_ERROR: the lock compilation script failed
//   - INVALID_*: bad flags or configuration
//
// # Usage
//
//	err := errors.New(errors.ErrCodeGraph, "include cycle between %s", strings.Join(files, ", "))
//	if errors.Is(err, errors.ErrCodeGraph) {
//	    // skip the files named in the cycle
//	}
//
//	err = errors.Wrap(errors.ErrCodeWrite, origErr, "write %s", path)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input validation errors
	ErrCodeInvalidInput  Code = "INVALID_INPUT"
	ErrCodeInvalidConfig Code = "INVALID_CONFIG"
	ErrCodeInvalidFormat Code = "INVALID_FORMAT"

	// Declaration file errors
	ErrCodeParse    Code = "PARSE_ERROR"
	ErrCodeFileRead Code = "FILE_READ_ERROR"
	ErrCodeGraph    Code = "GRAPH_ERROR"
	ErrCodeWrite    Code = "WRITE_ERROR"

	// Registry errors
	ErrCodePackageNotFound Code = "PACKAGE_NOT_FOUND"
	ErrCodeNetwork         Code = "NETWORK_ERROR"
	ErrCodeTimeout         Code = "TIMEOUT"
	ErrCodeRateLimited     Code = "RATE_LIMITED"
	ErrCodeInvalidVersion  Code = "INVALID_VERSION"

	// External tooling
	ErrCodeCompile Code = "COMPILE_ERROR"

	// Internal errors
	ErrCodeInternal Code = "INTERNAL_ERROR"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// Is reports whether err has the given error code.
// It checks the outermost *Error in the chain.
func Is(err error, code Code) bool {
	return GetCode(err) == code
}

// GetCode extracts the error code from an error, if available.
// A [RateLimitedError] reports [ErrCodeRateLimited].
// Returns empty string for uncoded errors.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	var rl *RateLimitedError
	if errors.As(err, &rl) {
		return rl.Code()
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		if e.Cause != nil {
			return fmt.Sprintf("%s: %s", e.Message, UserMessage(e.Cause))
		}
		return e.Message
	}
	return err.Error()
}

// RateLimitedError is returned when the registry answers 429.
type RateLimitedError struct {
	RetryAfter int // Seconds to wait before retrying, 0 if unknown
}

func (e *RateLimitedError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited: retry after %d seconds", e.RetryAfter)
	}
	return "rate limited"
}

// Code returns the error code for this error type.
func (e *RateLimitedError) Code() Code {
	return ErrCodeRateLimited
}
