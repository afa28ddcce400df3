// Package errors provides structured error types for masonry.
//
// Everything around the layout engine (feed loading, configuration, cache
// backends, the session API) reports failures as *Error values carrying a
// machine-readable [Code]. The engine itself never returns errors; it logs
// and degrades instead.
//
// # Error Codes
//
// INVALID_* codes are caller mistakes: the CLI exits with status 2 and the
// HTTP API answers 400. *NOT_FOUND codes answer 404. [Code.Status] holds the
// full mapping.
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidFeed, "item %d has no key", i)
//	if errors.Is(err, errors.ErrCodeInvalidFeed) {
//	    // Handle validation error
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeCache, origErr, "failed to read %s", key)
package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input validation errors
	ErrCodeInvalidInput  Code = "INVALID_INPUT"
	ErrCodeInvalidFeed   Code = "INVALID_FEED"
	ErrCodeInvalidConfig Code = "INVALID_CONFIG"
	ErrCodeInvalidFormat Code = "INVALID_FORMAT"
	ErrCodeInvalidPath   Code = "INVALID_PATH"

	// Resource not found errors
	ErrCodeNotFound        Code = "NOT_FOUND"
	ErrCodeFileNotFound    Code = "FILE_NOT_FOUND"
	ErrCodeSessionNotFound Code = "SESSION_NOT_FOUND"

	// Backend errors
	ErrCodeCache   Code = "CACHE_ERROR"
	ErrCodeTimeout Code = "TIMEOUT"

	// Internal errors
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
)

// Error is a coded error with an optional cause.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New creates an Error with a formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates an Error around cause.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether the first *Error in err's chain has code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode returns the code of the first *Error in err's chain, or "".
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage is the message without code or cause for coded errors, and
// err.Error() otherwise.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// Invalid reports whether c is one of the INVALID_* input codes.
func (c Code) Invalid() bool {
	return strings.HasPrefix(string(c), "INVALID_")
}

// Status is the HTTP status the session API answers c with. The empty code
// and unknown codes are internal errors.
func (c Code) Status() int {
	switch {
	case c.Invalid():
		return http.StatusBadRequest
	case c == ErrCodeNotFound, c == ErrCodeFileNotFound, c == ErrCodeSessionNotFound:
		return http.StatusNotFound
	case c == ErrCodeTimeout:
		return http.StatusGatewayTimeout
	case c == ErrCodeUnsupported:
		return http.StatusNotImplemented
	case c == ErrCodeCache:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// HTTPStatus is GetCode(err).Status().
func HTTPStatus(err error) int {
	return GetCode(err).Status()
}
