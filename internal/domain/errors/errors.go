package errors

import (
	"errors"
	"fmt"
)

// Error types for the scoring pipeline
type ErrorType string

const (
	ErrorTypeValidation          ErrorType = "validation"
	ErrorTypeInternal            ErrorType = "internal"
	ErrorTypeRegistryUnavailable ErrorType = "registry_unavailable"
	ErrorTypeMLService           ErrorType = "ml_service"
	ErrorTypeRateLimited         ErrorType = "rate_limited"
)

// AppError represents a structured application error
type AppError struct {
	Type       ErrorType              `json:"type"`
	Code       string                 `json:"code"`
	Message    string                 `json:"message"`
	Details    map[string]interface{} `json:"details,omitempty"`
	Cause      error                  `json:"-"`
	Retryable  bool                   `json:"retryable"`
	StatusCode int                    `json:"status_code"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func (e *AppError) WithDetails(details map[string]interface{}) *AppError {
	e.Details = details
	return e
}

func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// Error constructors
func NewValidationError(code, message string) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       code,
		Message:    message,
		Retryable:  false,
		StatusCode: 400,
	}
}

func NewInternalError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Code:       "INTERNAL_ERROR",
		Message:    message,
		Retryable:  false,
		StatusCode: 500,
	}
}

// NewRegistryUnavailableError reports that the registry store or its cache
// could not be reached. It is fatal to the analysis in progress.
func NewRegistryUnavailableError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeRegistryUnavailable,
		Code:       "REGISTRY_UNAVAILABLE",
		Message:    message,
		Retryable:  false,
		StatusCode: 503,
	}
}

// NewMLServiceError reports a failed call to the scoring model. Callers
// degrade to two-signal scoring instead of failing.
func NewMLServiceError(code, message string) *AppError {
	return &AppError{
		Type:       ErrorTypeMLService,
		Code:       code,
		Message:    fmt.Sprintf("ml service error: %s", message),
		Retryable:  false,
		StatusCode: 502,
		Details:    map[string]interface{}{"service": "ml"},
	}
}

func NewRateLimitError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeRateLimited,
		Code:       "RATE_LIMIT_EXCEEDED",
		Message:    message,
		Retryable:  true,
		StatusCode: 429,
	}
}

// ML failure codes
const (
	CodeMLTimeout         = "ML_TIMEOUT"
	CodeMLBadStatus       = "ML_BAD_STATUS"
	CodeMLInvalidResponse = "ML_INVALID_RESPONSE"
	CodeMLUnreachable     = "ML_UNREACHABLE"
	CodeMLPanic           = "ML_PANIC"
)

// Predefined common errors
var (
	ErrAdviceTextRequired = NewValidationError("ADVICE_TEXT_REQUIRED", "Advice text is required")
)

// IsType checks if an error is of a specific type
func IsType(err error, errorType ErrorType) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == errorType
	}
	return false
}

// IsRetryable checks if an error is retryable
func IsRetryable(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Retryable
	}
	return false
}

// GetStatusCode extracts HTTP status code from error
func GetStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}
	return 500
}
