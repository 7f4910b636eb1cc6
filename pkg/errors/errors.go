package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
)

// Error codes for the chat domain
const (
	CodeValidation         = "VALIDATION_ERROR"
	CodeRateLimited        = "RATE_LIMITED"
	CodeNotFound           = "NOT_FOUND"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeStorageFailure     = "STORAGE_FAILURE"
	CodeCancelled          = "CANCELLED"
	CodeInvariantViolation = "INVARIANT_VIOLATION"
)

// AppError represents an application error with HTTP status code and error code
type AppError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
	Err        error  `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithCause attaches the underlying cause to the error
func (e *AppError) WithCause(err error) *AppError {
	e.Err = err
	return e
}

// NewError creates a new application error
func NewError(statusCode int, code string, message string) *AppError {
	return &AppError{
		StatusCode: statusCode,
		Code:       code,
		Message:    message,
	}
}

// NewValidationError creates an error for malformed or missing input
func NewValidationError(message string) *AppError {
	return NewError(http.StatusBadRequest, CodeValidation, message)
}

// NewRateLimitedError signals that the sliding-window cap was exceeded
func NewRateLimitedError() *AppError {
	return NewError(http.StatusTooManyRequests, CodeRateLimited, "rate limit exceeded")
}

// NewNotFoundError creates an error for an absent message or user
func NewNotFoundError(message string) *AppError {
	return NewError(http.StatusNotFound, CodeNotFound, message)
}

// NewUnauthorizedError creates an error for a credential mismatch
func NewUnauthorizedError(message string) *AppError {
	return NewError(http.StatusUnauthorized, CodeUnauthorized, message)
}

// NewStorageError wraps a storage gateway failure; the cause is logged, never leaked
func NewStorageError(cause error) *AppError {
	return NewError(http.StatusInternalServerError, CodeStorageFailure, "storage operation failed").WithCause(cause)
}

// NewCancelledError marks an operation aborted by disconnect or shutdown
func NewCancelledError(cause error) *AppError {
	return NewError(http.StatusRequestTimeout, CodeCancelled, "operation cancelled").WithCause(cause)
}

// NewInvariantViolation marks a condition that is unreachable under correct
// transport behavior, such as a duplicate connection identifier
func NewInvariantViolation(message string) *AppError {
	return NewError(http.StatusInternalServerError, CodeInvariantViolation, message)
}

// Is checks if the target error is of type AppError with the same code
func Is(err error, code string) bool {
	var appErr *AppError
	if !stderrors.As(err, &appErr) {
		return false
	}
	return appErr.Code == code
}

// FromError converts any error to an AppError. Cancellation is preserved as
// CANCELLED rather than collapsed into a generic failure.
func FromError(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	if IsCancellation(err) {
		return NewCancelledError(err)
	}
	return NewError(http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
}

// IsCancellation reports whether err stems from context cancellation or deadline expiry
func IsCancellation(err error) bool {
	return stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded)
}
