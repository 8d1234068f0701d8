package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a category of client authentication error.
type ErrorCode string

const (
	// ErrCodeLogoutInProgress indicates a call was rejected because a secure
	// logout is running. Callers should not retry.
	ErrCodeLogoutInProgress ErrorCode = "logout_in_progress"
	// ErrCodeRestorationPending indicates a protected call arrived before
	// identity restoration began. Callers should retry once restoration
	// completes; this is not an authentication failure.
	ErrCodeRestorationPending ErrorCode = "restoration_pending"
	// ErrCodeUnauthenticated indicates no credential is available and
	// restoration already finished. Callers should route to login.
	ErrCodeUnauthenticated ErrorCode = "unauthenticated"
	// ErrCodeAuthorizationExpired indicates the server rejected the attached
	// credential. Absorbed by the refresh coordinator when refresh succeeds.
	ErrCodeAuthorizationExpired ErrorCode = "authorization_expired"
	// ErrCodeRefreshFailed indicates the credential refresh attempt failed;
	// secure logout has already run by the time callers see it.
	ErrCodeRefreshFailed ErrorCode = "refresh_failed"
	// ErrCodeForbidden indicates an authenticated but unauthorized call.
	ErrCodeForbidden ErrorCode = "forbidden"
	// ErrCodeValidation indicates invalid input or a disallowed state
	// transition.
	ErrCodeValidation ErrorCode = "validation"
	// ErrCodeUnavailable indicates the backend could not be reached or
	// returned a server-side failure.
	ErrCodeUnavailable ErrorCode = "unavailable"
	// ErrCodeInternal indicates an internal client error.
	ErrCodeInternal ErrorCode = "internal"
)

// AppError represents a structured client error with a code, message, and
// optional cause. It supports error wrapping and unwrapping for use with
// errors.Is and errors.As.
type AppError struct {
	// Code categorizes the error type
	Code ErrorCode
	// Message is a human-readable error message
	Message string
	// Cause is the underlying error that caused this error (optional)
	Cause error
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

// New creates an AppError with the given code and message.
func New(code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Newf creates an AppError with a formatted message.
func Newf(code ErrorCode, format string, args ...any) *AppError {
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// LogoutInProgress creates a new LogoutInProgress error.
func LogoutInProgress(message string) *AppError {
	return New(ErrCodeLogoutInProgress, message)
}

// RestorationPending creates a new RestorationPending error.
func RestorationPending(message string) *AppError {
	return New(ErrCodeRestorationPending, message)
}

// Unauthenticated creates a new Unauthenticated error.
func Unauthenticated(message string) *AppError {
	return New(ErrCodeUnauthenticated, message)
}

// AuthorizationExpired creates a new AuthorizationExpired error.
func AuthorizationExpired(message string) *AppError {
	return New(ErrCodeAuthorizationExpired, message)
}

// RefreshFailed creates a new RefreshFailed error.
func RefreshFailed(message string) *AppError {
	return New(ErrCodeRefreshFailed, message)
}

// Forbidden creates a new Forbidden error.
func Forbidden(message string) *AppError {
	return New(ErrCodeForbidden, message)
}

// Validation creates a new Validation error.
func Validation(message string) *AppError {
	return New(ErrCodeValidation, message)
}

// Unavailable creates a new Unavailable error.
func Unavailable(message string) *AppError {
	return New(ErrCodeUnavailable, message)
}

// Internal creates a new Internal error.
func Internal(message string) *AppError {
	return New(ErrCodeInternal, message)
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

// isCode checks if an error has a specific error code.
func isCode(err error, code ErrorCode) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

// IsLogoutInProgress checks if an error is a LogoutInProgress error.
func IsLogoutInProgress(err error) bool {
	return isCode(err, ErrCodeLogoutInProgress)
}

// IsRestorationPending checks if an error is a RestorationPending error.
func IsRestorationPending(err error) bool {
	return isCode(err, ErrCodeRestorationPending)
}

// IsUnauthenticated checks if an error is an Unauthenticated error.
func IsUnauthenticated(err error) bool {
	return isCode(err, ErrCodeUnauthenticated)
}

// IsAuthorizationExpired checks if an error is an AuthorizationExpired error.
func IsAuthorizationExpired(err error) bool {
	return isCode(err, ErrCodeAuthorizationExpired)
}

// IsRefreshFailed checks if an error is a RefreshFailed error.
func IsRefreshFailed(err error) bool {
	return isCode(err, ErrCodeRefreshFailed)
}

// IsForbidden checks if an error is a Forbidden error.
func IsForbidden(err error) bool {
	return isCode(err, ErrCodeForbidden)
}

// IsValidation checks if an error is a Validation error.
func IsValidation(err error) bool {
	return isCode(err, ErrCodeValidation)
}

// IsUnavailable checks if an error is an Unavailable error.
func IsUnavailable(err error) bool {
	return isCode(err, ErrCodeUnavailable)
}

// IsInternal checks if an error is an Internal error.
func IsInternal(err error) bool {
	return isCode(err, ErrCodeInternal)
}

// GetCode returns the ErrorCode from an error, or empty string if not an
// AppError.
func GetCode(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}
