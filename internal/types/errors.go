package types

import (
	"fmt"
	"net/http"
)

// ErrorCode is a typed string for categorizing application errors.
type ErrorCode string

// Complete error code constants.
// All handlers MUST use these constants instead of hardcoded strings.
const (
	ErrCodeInvalidRequest ErrorCode = "INVALID_REQUEST"
	ErrCodeNotFound       ErrorCode = "NOT_FOUND"
	ErrCodeRateLimited    ErrorCode = "RATE_LIMITED"
	ErrCodeProviderError  ErrorCode = "PROVIDER_ERROR"
	ErrCodeTimeout        ErrorCode = "TIMEOUT"
	ErrCodeInternal       ErrorCode = "INTERNAL_ERROR"
)

// HTTPStatus maps an ErrorCode to its corresponding HTTP status code.
// Used by the API layer to translate AppErrors into HTTP responses.
// Returns 500 for unrecognized error codes as a safe default.
func (c ErrorCode) HTTPStatus() int {
	switch c {
	case ErrCodeInvalidRequest:
		return http.StatusBadRequest // 400
	case ErrCodeNotFound:
		return http.StatusNotFound // 404
	case ErrCodeRateLimited:
		return http.StatusTooManyRequests // 429
	case ErrCodeProviderError:
		return http.StatusBadGateway // 502
	case ErrCodeTimeout:
		return http.StatusGatewayTimeout // 504
	default:
		return http.StatusInternalServerError // 500
	}
}

// AppError is the standard application error type used throughout the service.
// All domain and handler errors should be expressed as AppError to enable
// consistent error formatting, HTTP status mapping, and error chain support.
type AppError struct {
	Code    ErrorCode      `json:"code"`
	Message string         `json:"message"`
	Err     error          `json:"-"`
	Details map[string]any `json:"details,omitempty"`

	// ProviderStatus carries the upstream HTTP status for PROVIDER_ERROR
	// responses when the upstream answered at all.
	ProviderStatus int `json:"providerStatus,omitempty"`

	// RetryAfterSeconds is surfaced on RATE_LIMITED responses.
	RetryAfterSeconds int `json:"retryAfterSeconds,omitempty"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/errors.As support.
func (e *AppError) Unwrap() error {
	return e.Err
}

// HTTPStatus returns the HTTP status code corresponding to this error's code.
func (e *AppError) HTTPStatus() int {
	return e.Code.HTTPStatus()
}

// WithDetails returns a copy of the error with the provided details merged in.
// This is useful for adding context without mutating the original error.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	merged := make(map[string]any, len(e.Details)+len(details))
	for k, v := range e.Details {
		merged[k] = v
	}
	for k, v := range details {
		merged[k] = v
	}
	cp := *e
	cp.Details = merged
	return &cp
}

// NewAppError creates a new AppError with the given code, message, and optional
// underlying error. This is the standard constructor for domain errors.
func NewAppError(code ErrorCode, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// NewAppErrorWithDetails creates a new AppError with the given code, message,
// underlying error, and structured details.
func NewAppErrorWithDetails(code ErrorCode, message string, err error, details map[string]any) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
		Details: details,
	}
}

// NewProviderError builds a PROVIDER_ERROR carrying the upstream status code.
// A status of zero means the upstream never produced an HTTP response.
func NewProviderError(provider string, status int, err error) *AppError {
	msg := fmt.Sprintf("%s request failed", provider)
	if err != nil {
		msg = fmt.Sprintf("%s request failed: %v", provider, err)
	}
	return &AppError{
		Code:           ErrCodeProviderError,
		Message:        msg,
		Err:            err,
		ProviderStatus: status,
	}
}
