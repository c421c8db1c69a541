package errors

import (
	"errors"
	"fmt"

	"github.com/civicconnect/portal/internal/domain/geo"
)

// ErrorCode represents a category of application error.
type ErrorCode string

const (
	// ErrCodeNotFound indicates a resource was not found.
	ErrCodeNotFound ErrorCode = "not_found"
	// ErrCodeConflict indicates a conflict with existing data (e.g., unique constraint violation).
	ErrCodeConflict ErrorCode = "conflict"
	// ErrCodeValidation indicates invalid input data.
	ErrCodeValidation ErrorCode = "validation"
	// ErrCodeInternal indicates an internal server error.
	ErrCodeInternal ErrorCode = "internal"
	// ErrCodeTimeout indicates a timeout occurred.
	ErrCodeTimeout ErrorCode = "timeout"
	// ErrCodeCanceled indicates the operation was canceled.
	ErrCodeCanceled ErrorCode = "canceled"

	// ErrCodeSessionUnavailable indicates there is no usable session for the caller.
	ErrCodeSessionUnavailable ErrorCode = "session_unavailable"
	// ErrCodeInsufficientRole indicates the session role is not permitted.
	ErrCodeInsufficientRole ErrorCode = "insufficient_role"
	// ErrCodeInvalidCredentials indicates the authentication service rejected a login.
	ErrCodeInvalidCredentials ErrorCode = "invalid_credentials"

	// Geolocation failures, one per geo.FailureKind.
	ErrCodeGeoCapabilityMissing   ErrorCode = "geo_capability_missing"
	ErrCodeGeoPermissionDenied    ErrorCode = "geo_permission_denied"
	ErrCodeGeoPositionUnavailable ErrorCode = "geo_position_unavailable"
	ErrCodeGeoTimeout             ErrorCode = "geo_timeout"
)

// AppError represents a structured application error with a code, message, and optional cause.
// It supports error wrapping and unwrapping for use with errors.Is and errors.As.
type AppError struct {
	// Code categorizes the error type
	Code ErrorCode
	// Message is a human-readable error message
	Message string
	// Cause is the underlying error that caused this error (optional)
	Cause error
	// Field is the specific field that caused the error (optional, for validation errors)
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

// NotFound creates a new NotFound error.
func NotFound(message string) *AppError { return newError(ErrCodeNotFound, message) }

// NotFoundf creates a new NotFound error with formatted message.
func NotFoundf(format string, args ...any) *AppError {
	return newError(ErrCodeNotFound, fmt.Sprintf(format, args...))
}

// Conflict creates a new Conflict error.
func Conflict(message string) *AppError { return newError(ErrCodeConflict, message) }

// Validation creates a new Validation error.
func Validation(message string) *AppError { return newError(ErrCodeValidation, message) }

// Validationf creates a new Validation error with formatted message.
func Validationf(format string, args ...any) *AppError {
	return newError(ErrCodeValidation, fmt.Sprintf(format, args...))
}

// ValidationField creates a new Validation error for a specific field.
func ValidationField(field, message string) *AppError {
	return &AppError{
		Code:    ErrCodeValidation,
		Message: message,
		Field:   field,
	}
}

// Internal creates a new Internal error.
func Internal(message string) *AppError { return newError(ErrCodeInternal, message) }

// SessionUnavailable creates a new SessionUnavailable error.
func SessionUnavailable(message string) *AppError { return newError(ErrCodeSessionUnavailable, message) }

// InsufficientRole creates a new InsufficientRole error.
func InsufficientRole(message string) *AppError { return newError(ErrCodeInsufficientRole, message) }

// Wrap wraps an existing error with an AppError, preserving the cause.
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// Wrapf wraps an existing error with an AppError and formatted message.
func Wrapf(err error, code ErrorCode, format string, args ...any) *AppError {
	return Wrap(err, code, fmt.Sprintf(format, args...))
}

// GeoCode returns the error code for a geolocation failure kind.
func GeoCode(kind geo.FailureKind) ErrorCode {
	switch kind {
	case geo.FailureCapabilityMissing:
		return ErrCodeGeoCapabilityMissing
	case geo.FailurePermissionDenied:
		return ErrCodeGeoPermissionDenied
	case geo.FailureTimeout:
		return ErrCodeGeoTimeout
	default:
		return ErrCodeGeoPositionUnavailable
	}
}

// Geo wraps a geolocation failure, using the user-facing message of its kind.
func Geo(err error) *AppError {
	if err == nil {
		return nil
	}
	kind := geo.KindOf(err)
	return &AppError{
		Code:    GeoCode(kind),
		Message: kind.Message(),
		Cause:   err,
	}
}

// isCode checks if an error has a specific error code.
func isCode(err error, code ErrorCode) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

// IsNotFound checks if an error is a NotFound error.
func IsNotFound(err error) bool { return isCode(err, ErrCodeNotFound) }

// IsConflict checks if an error is a Conflict error.
func IsConflict(err error) bool { return isCode(err, ErrCodeConflict) }

// IsValidation checks if an error is a Validation error.
func IsValidation(err error) bool { return isCode(err, ErrCodeValidation) }

// IsInternal checks if an error is an Internal error.
func IsInternal(err error) bool { return isCode(err, ErrCodeInternal) }

// IsTimeout checks if an error is a Timeout error.
func IsTimeout(err error) bool { return isCode(err, ErrCodeTimeout) }

// IsCanceled checks if an error is a Canceled error.
func IsCanceled(err error) bool { return isCode(err, ErrCodeCanceled) }

// IsSessionUnavailable checks if an error is a SessionUnavailable error.
func IsSessionUnavailable(err error) bool { return isCode(err, ErrCodeSessionUnavailable) }

// IsInsufficientRole checks if an error is an InsufficientRole error.
func IsInsufficientRole(err error) bool { return isCode(err, ErrCodeInsufficientRole) }

// GetCode returns the ErrorCode from an error, or empty string if not an AppError.
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
