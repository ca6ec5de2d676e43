package errors

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// ErrorCode represents a category of application error.
type ErrorCode string

const (
	// ErrCodeValidation indicates invalid input data (HTTP 400).
	ErrCodeValidation ErrorCode = "validation"
	// ErrCodeUnauthorized indicates missing or expired credentials (HTTP 401).
	ErrCodeUnauthorized ErrorCode = "unauthorized"
	// ErrCodeForbidden indicates insufficient permissions (HTTP 403).
	ErrCodeForbidden ErrorCode = "forbidden"
	// ErrCodeNotFound indicates a resource was not found (HTTP 404).
	ErrCodeNotFound ErrorCode = "not_found"
	// ErrCodeConflict indicates a conflict with existing data (HTTP 409).
	ErrCodeConflict ErrorCode = "conflict"
	// ErrCodeUnprocessable indicates semantically invalid data (HTTP 422).
	ErrCodeUnprocessable ErrorCode = "unprocessable"
	// ErrCodeInternal indicates a server-side failure (HTTP 5xx).
	ErrCodeInternal ErrorCode = "internal"
	// ErrCodeTimeout indicates the backend took too long to respond.
	ErrCodeTimeout ErrorCode = "timeout"
	// ErrCodeNetwork indicates the backend could not be reached at all.
	ErrCodeNetwork ErrorCode = "network"
)

// AppError is a structured application error with a code, a user-facing
// message, and an optional cause. It supports errors.Is and errors.As.
type AppError struct {
	// Code categorizes the error type.
	Code ErrorCode
	// Message is a human-readable error message.
	Message string
	// Cause is the underlying error (optional).
	Cause error
	// Status is the HTTP status that produced the error, when applicable.
	Status int
	// FieldErrors maps field names to validation messages, when the
	// backend reported them.
	FieldErrors map[string]string
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause, enabling errors.Is and errors.As.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Validation creates a new Validation error.
func Validation(message string) *AppError {
	return &AppError{Code: ErrCodeValidation, Message: message}
}

// Unauthorized creates a new Unauthorized error.
func Unauthorized(message string) *AppError {
	return &AppError{Code: ErrCodeUnauthorized, Message: message}
}

// Forbidden creates a new Forbidden error.
func Forbidden(message string) *AppError {
	return &AppError{Code: ErrCodeForbidden, Message: message}
}

// Internal creates a new Internal error.
func Internal(message string) *AppError {
	return &AppError{Code: ErrCodeInternal, Message: message}
}

// Internalf creates a new Internal error with formatted message.
func Internalf(format string, args ...any) *AppError {
	return &AppError{Code: ErrCodeInternal, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an existing error with an AppError, preserving the cause.
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{Code: code, Message: message, Cause: err}
}

// Wrapf wraps an existing error with an AppError and formatted message.
func Wrapf(err error, code ErrorCode, format string, args ...any) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...), Cause: err}
}

// FromStatus classifies a non-2xx HTTP status into an AppError.
// An empty message falls back to a generic description of the category.
func FromStatus(status int, message string) *AppError {
	code := ErrCodeInternal
	fallback := "unexpected server error"

	switch {
	case status == http.StatusBadRequest:
		code, fallback = ErrCodeValidation, "invalid request data"
	case status == http.StatusUnauthorized:
		code, fallback = ErrCodeUnauthorized, "session expired, sign in again"
	case status == http.StatusForbidden:
		code, fallback = ErrCodeForbidden, "access denied, insufficient permissions"
	case status == http.StatusNotFound:
		code, fallback = ErrCodeNotFound, "resource not found"
	case status == http.StatusConflict:
		code, fallback = ErrCodeConflict, "data conflict"
	case status == http.StatusUnprocessableEntity:
		code, fallback = ErrCodeUnprocessable, "unprocessable data"
	case status >= 500:
		code, fallback = ErrCodeInternal, "server error, try again later"
	}

	if message == "" {
		message = fallback
	}
	return &AppError{Code: code, Message: message, Status: status}
}

// FromTransport classifies a transport-level failure (no HTTP response).
func FromTransport(err error) *AppError {
	if err == nil {
		return nil
	}
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return Wrap(err, ErrCodeTimeout, "request timed out")
	case errors.As(err, &netErr) && netErr.Timeout():
		return Wrap(err, ErrCodeTimeout, "request timed out")
	default:
		return Wrap(err, ErrCodeNetwork, "network error, check your connection")
	}
}

// isCode checks if any error in the chain carries the given code, so a
// classified cause stays recognizable after it has been re-wrapped.
func isCode(err error, code ErrorCode) bool {
	for err != nil {
		var appErr *AppError
		if !errors.As(err, &appErr) {
			return false
		}
		if appErr.Code == code {
			return true
		}
		err = appErr.Cause
	}
	return false
}

// IsUnauthorized checks if an error is an Unauthorized error.
func IsUnauthorized(err error) bool {
	return isCode(err, ErrCodeUnauthorized)
}

// IsForbidden checks if an error is a Forbidden error.
func IsForbidden(err error) bool {
	return isCode(err, ErrCodeForbidden)
}

// IsValidation checks if an error is a Validation error.
func IsValidation(err error) bool {
	return isCode(err, ErrCodeValidation)
}

// IsNotFound checks if an error is a NotFound error.
func IsNotFound(err error) bool {
	return isCode(err, ErrCodeNotFound)
}

// IsConflict checks if an error is a Conflict error.
func IsConflict(err error) bool {
	return isCode(err, ErrCodeConflict)
}

// IsTimeout checks if an error is a Timeout error.
func IsTimeout(err error) bool {
	return isCode(err, ErrCodeTimeout)
}

// IsNetwork checks if an error is a Network error.
func IsNetwork(err error) bool {
	return isCode(err, ErrCodeNetwork)
}

// GetCode returns the ErrorCode from an error, or "" if not an AppError.
func GetCode(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// UserMessage extracts the user-facing message from an error, falling back
// to the supplied default for non-AppError values.
func UserMessage(err error, fallback string) string {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	return fallback
}
