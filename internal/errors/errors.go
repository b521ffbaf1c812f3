// Package errors defines the application error taxonomy shared by services and
// the HTTP layer: unauthorized, invalid argument, not found, internal and timeout,
// plus the storage-specific conflict/foreign key/canceled codes.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a category of application error.
type ErrorCode string

const (
	// ErrCodeUnauthorized indicates a missing or invalid credential.
	ErrCodeUnauthorized ErrorCode = "unauthorized"
	// ErrCodeValidation indicates a malformed or incomplete request (InvalidArgument).
	ErrCodeValidation ErrorCode = "validation"
	// ErrCodeNotFound indicates a referenced message or job does not exist.
	ErrCodeNotFound ErrorCode = "not_found"
	// ErrCodeConflict indicates a conflict with existing data (e.g., unique constraint violation).
	ErrCodeConflict ErrorCode = "conflict"
	// ErrCodeForeignKey indicates a foreign key constraint violation.
	ErrCodeForeignKey ErrorCode = "foreign_key"
	// ErrCodeInternal indicates a storage, network, or engine failure.
	ErrCodeInternal ErrorCode = "internal"
	// ErrCodeTimeout indicates a downstream engine or the store exceeded its time budget.
	ErrCodeTimeout ErrorCode = "timeout"
	// ErrCodeCanceled indicates the operation was canceled.
	ErrCodeCanceled ErrorCode = "canceled"
)

// AppError represents a structured application error with a code, message, and optional cause.
// It supports error wrapping and unwrapping for use with errors.Is and errors.As.
type AppError struct {
	Code    ErrorCode
	Message string
	Cause   error
	// Field is the specific field that caused the error (validation errors only).
	Field string
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

func newError(code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Unauthorized creates a new Unauthorized error.
func Unauthorized(message string) *AppError { return newError(ErrCodeUnauthorized, message) }

// Validation creates a new Validation (InvalidArgument) error.
func Validation(message string) *AppError { return newError(ErrCodeValidation, message) }

// Validationf creates a new Validation error with formatted message.
func Validationf(format string, args ...any) *AppError {
	return newError(ErrCodeValidation, fmt.Sprintf(format, args...))
}

// ValidationField creates a new Validation error for a specific field.
func ValidationField(field, message string) *AppError {
	return &AppError{Code: ErrCodeValidation, Message: message, Field: field}
}

// NotFound creates a new NotFound error.
func NotFound(message string) *AppError { return newError(ErrCodeNotFound, message) }

// NotFoundf creates a new NotFound error with formatted message.
func NotFoundf(format string, args ...any) *AppError {
	return newError(ErrCodeNotFound, fmt.Sprintf(format, args...))
}

// Internal creates a new Internal error.
func Internal(message string) *AppError { return newError(ErrCodeInternal, message) }

// Timeout creates a new Timeout error.
func Timeout(message string) *AppError { return newError(ErrCodeTimeout, message) }

// Wrap wraps an existing error with an AppError, preserving the cause.
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{Code: code, Message: message, Cause: err}
}

// Wrapf wraps an existing error with an AppError and formatted message.
func Wrapf(err error, code ErrorCode, format string, args ...any) *AppError {
	return Wrap(err, code, fmt.Sprintf(format, args...))
}

// isCode checks if an error has a specific error code.
func isCode(err error, code ErrorCode) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

// IsUnauthorized checks if an error is an Unauthorized error.
func IsUnauthorized(err error) bool { return isCode(err, ErrCodeUnauthorized) }

// IsValidation checks if an error is a Validation error.
func IsValidation(err error) bool { return isCode(err, ErrCodeValidation) }

// IsNotFound checks if an error is a NotFound error.
func IsNotFound(err error) bool { return isCode(err, ErrCodeNotFound) }

// IsConflict checks if an error is a Conflict error.
func IsConflict(err error) bool { return isCode(err, ErrCodeConflict) }

// IsForeignKey checks if an error is a ForeignKey error.
func IsForeignKey(err error) bool { return isCode(err, ErrCodeForeignKey) }

// IsInternal checks if an error is an Internal error.
func IsInternal(err error) bool { return isCode(err, ErrCodeInternal) }

// IsTimeout checks if an error is a Timeout error.
func IsTimeout(err error) bool { return isCode(err, ErrCodeTimeout) }

// IsCanceled checks if an error is a Canceled error.
func IsCanceled(err error) bool { return isCode(err, ErrCodeCanceled) }

// GetCode returns the outermost ErrorCode of err, or empty string if err carries no AppError.
func GetCode(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// GetField returns the Field from an error, or empty string if not an AppError or no field set.
func GetField(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Field
	}
	return ""
}
