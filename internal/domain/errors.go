package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode classifies a failure for the API boundary.
type ErrorCode string

const (
	CodeUnauthenticated   ErrorCode = "unauthenticated"
	CodeInvalidRequest    ErrorCode = "invalid_request"
	CodeNotFound          ErrorCode = "not_found"
	CodeForbidden         ErrorCode = "forbidden"
	CodeExtractionFailed  ErrorCode = "extraction_failed"
	CodePersistenceFailed ErrorCode = "persistence_failed"
	CodeInternal          ErrorCode = "internal"
)

// Error carries a classification code alongside a caller-safe message. The
// wrapped cause stays internal; handlers decide whether to expose it.
type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// E builds a classified error wrapping an optional cause.
func E(code ErrorCode, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Err: cause}
}

// Errf builds a classified error with a formatted message and no cause.
func Errf(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// CodeOf extracts the classification of err, defaulting to CodeInternal.
func CodeOf(err error) ErrorCode {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// MessageOf extracts the caller-safe message of err. Unclassified errors get a
// generic message so internal detail never leaks to clients.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return "An unexpected error occurred."
}

// HTTPStatus maps an error classification to a response status.
func (c ErrorCode) HTTPStatus() int {
	switch c {
	case CodeUnauthenticated:
		return http.StatusUnauthorized
	case CodeInvalidRequest:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
