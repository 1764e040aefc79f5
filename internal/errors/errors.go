// Package errors provides custom error types for the Pennywise API.
// All service-layer errors should use AppError to ensure consistent,
// secure error responses that never leak internal details to clients.
package errors

import "net/http"

// FieldIssue describes a single invalid field in a request payload.
type FieldIssue struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Type    string `json:"type"`
}

// AppError represents a structured application error with an error code,
// human-readable message, HTTP status code, and optional internal error.
type AppError struct {
	Code       string       `json:"code"`
	Message    string       `json:"message"`
	Details    []FieldIssue `json:"details,omitempty"`
	StatusCode int          `json:"-"`
	Internal   error        `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string { return e.Message }

// Unwrap returns the internal error for use with errors.Is/As.
func (e *AppError) Unwrap() error { return e.Internal }

// Wrap creates a new AppError with the same code/message/status but wraps an internal error.
func Wrap(sentinel *AppError, internal error) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    sentinel.Message,
		StatusCode: sentinel.StatusCode,
		Internal:   internal,
	}
}

// WithMessage creates a new AppError with a custom message.
func WithMessage(sentinel *AppError, message string) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    message,
		Details:    sentinel.Details,
		StatusCode: sentinel.StatusCode,
		Internal:   sentinel.Internal,
	}
}

// WithDetails creates a new AppError carrying per-field validation issues.
func WithDetails(sentinel *AppError, message string, details []FieldIssue) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    message,
		Details:    details,
		StatusCode: sentinel.StatusCode,
	}
}

// Authentication & authorization errors. Token failures are reported as 403,
// and login/registration failures as 400, to stay compatible with existing clients.
var (
	ErrUnauthorized       = &AppError{Code: "UNAUTHORIZED", Message: "Unauthorized", StatusCode: http.StatusForbidden}
	ErrInvalidToken       = &AppError{Code: "INVALID_TOKEN", Message: "Token is not valid", StatusCode: http.StatusForbidden}
	ErrInvalidCredentials = &AppError{Code: "INVALID_CREDENTIALS", Message: "Invalid credentials", StatusCode: http.StatusBadRequest}
)

// General errors.
var (
	ErrInvalidInput   = &AppError{Code: "INVALID_INPUT", Message: "Invalid input", StatusCode: http.StatusBadRequest}
	ErrNotFound       = &AppError{Code: "NOT_FOUND", Message: "Resource not found", StatusCode: http.StatusNotFound}
	ErrInternalServer = &AppError{Code: "INTERNAL_ERROR", Message: "An internal error occurred", StatusCode: http.StatusInternalServerError}
)

// User errors.
var (
	ErrUserNotFound   = &AppError{Code: "USER_NOT_FOUND", Message: "User not found", StatusCode: http.StatusNotFound}
	ErrDuplicateEmail = &AppError{Code: "DUPLICATE_EMAIL", Message: "User already exists", StatusCode: http.StatusBadRequest}
)

// Transaction errors.
var (
	ErrTransactionNotFound    = &AppError{Code: "TRANSACTION_NOT_FOUND", Message: "Transaction not found", StatusCode: http.StatusNotFound}
	ErrInvalidTransactionType = &AppError{Code: "INVALID_TRANSACTION_TYPE", Message: `Transaction type must be "Expense" or "Income".`, StatusCode: http.StatusBadRequest}
)

// Report delivery errors.
var (
	ErrInvalidReport  = &AppError{Code: "INVALID_REPORT", Message: "Report payload is missing or not valid base64", StatusCode: http.StatusBadRequest}
	ErrMissingEmail   = &AppError{Code: "INVALID_INPUT", Message: "User email is not defined", StatusCode: http.StatusBadRequest}
	ErrDeliveryFailed = &AppError{Code: "DELIVERY_FAILED", Message: "Error sending report via email", StatusCode: http.StatusInternalServerError}
)
