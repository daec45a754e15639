// Package apperrors provides coded errors shared by services and handlers.
//
// Services return coded errors; handlers map them to HTTP statuses:
//
//	if errors.Is(err, apperrors.ErrNotFound) { ... }
//	utils.SendJSONError(w, apperrors.Message(err), apperrors.HTTPStatus(err))
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code is a machine-readable error class.
type Code string

const (
	CodeUnauthorized  Code = "UNAUTHORIZED"
	CodeValidation    Code = "VALIDATION"
	CodeNotFound      Code = "NOT_FOUND"
	CodeConflict      Code = "CONFLICT"
	CodeRateLimited   Code = "RATE_LIMITED"
	CodeUpstream      Code = "UPSTREAM"
	CodeConfiguration Code = "CONFIGURATION"
	CodeInternal      Code = "INTERNAL"
)

// HTTPStatus returns the status code a handler responds with for c.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeValidation:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Error is a coded error with a client-facing message.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Is matches any *Error carrying the same code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// WithCause returns a copy of e wrapping err.
func (e *Error) WithCause(err error) *Error {
	return &Error{Code: e.Code, Message: e.Message, cause: err}
}

var (
	ErrUnauthorized  = &Error{Code: CodeUnauthorized, Message: "Unauthorized"}
	ErrValidation    = &Error{Code: CodeValidation, Message: "validation error"}
	ErrNotFound      = &Error{Code: CodeNotFound, Message: "not found"}
	ErrConflict      = &Error{Code: CodeConflict, Message: "conflict"}
	ErrRateLimited   = &Error{Code: CodeRateLimited, Message: "Rate limit exceeded. Try again shortly."}
	ErrUpstream      = &Error{Code: CodeUpstream, Message: "upstream failure"}
	ErrConfiguration = &Error{Code: CodeConfiguration, Message: "server misconfigured"}
	ErrInternal      = &Error{Code: CodeInternal, Message: "internal error"}
)

func Unauthorized(msg string) *Error { return &Error{Code: CodeUnauthorized, Message: msg} }

func Validation(msg string) *Error { return &Error{Code: CodeValidation, Message: msg} }

func NotFound(msg string) *Error { return &Error{Code: CodeNotFound, Message: msg} }

func Conflict(msg string) *Error { return &Error{Code: CodeConflict, Message: msg} }

func Configuration(msg string) *Error { return &Error{Code: CodeConfiguration, Message: msg} }

// Upstream surfaces msg from a failed external call.
func Upstream(msg string) *Error { return &Error{Code: CodeUpstream, Message: msg} }

func Upstreamf(format string, args ...any) *Error {
	return &Error{Code: CodeUpstream, Message: fmt.Sprintf(format, args...)}
}

// Internal hides cause behind msg.
func Internal(msg string, cause error) *Error {
	return &Error{Code: CodeInternal, Message: msg, cause: cause}
}

// HTTPStatus maps any error to a status code; uncoded errors are 500.
func HTTPStatus(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Code.HTTPStatus()
	}
	return http.StatusInternalServerError
}

// Message returns the client-facing message. Internal causes are not exposed.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "Unknown error"
}
