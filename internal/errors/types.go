package errors

import (
	"fmt"
	"net/http"
)

// ErrorType defines the category of the error
type ErrorType string

const (
	ErrorTypeValidation       ErrorType = "VALIDATION_ERROR"
	ErrorTypeUnsupportedInput ErrorType = "UNSUPPORTED_INPUT_ERROR"
	ErrorTypeFetch            ErrorType = "FETCH_ERROR"
	ErrorTypeExtraction       ErrorType = "EXTRACTION_ERROR"
	ErrorTypeLowConfidence    ErrorType = "LOW_CONFIDENCE_ERROR"
	ErrorTypePersistence      ErrorType = "PERSISTENCE_ERROR"
	ErrorTypeRateLimit        ErrorType = "RATE_LIMIT_ERROR"
	ErrorTypeNotFound         ErrorType = "NOT_FOUND_ERROR"
	ErrorTypeInternal         ErrorType = "INTERNAL_ERROR"
)

// AppError represents a structured error for the application
type AppError struct {
	Type          ErrorType `json:"type"`
	Message       string    `json:"message"`
	StatusCode    int       `json:"statusCode"`
	ErrorCode     string    `json:"errorCode"`
	IsOperational bool      `json:"isOperational"`
	Recovery      string    `json:"recoverySuggestion,omitempty"`
	Err           error     `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap exposes the wrapped cause for errors.Is/As.
func (e *AppError) Unwrap() error {
	return e.Err
}

// Code returns the application-specific error code
func (e *AppError) Code() string {
	return e.ErrorCode
}

// RecoverySuggestion returns the suggestion on how to recover from the error
func (e *AppError) RecoverySuggestion() string {
	return e.Recovery
}

// IsRetryable reports whether resubmitting the same input could plausibly
// succeed. Unsupported input never is; upstream hiccups usually are.
func (e *AppError) IsRetryable() bool {
	switch e.Type {
	case ErrorTypeRateLimit:
		return true
	case ErrorTypeFetch, ErrorTypeExtraction, ErrorTypePersistence:
		return e.StatusCode >= 500
	default:
		return false
	}
}

// NewValidationError creates a new validation error (400)
func NewValidationError(message string, errorCode string, suggestion string) *AppError {
	return &AppError{
		Type:          ErrorTypeValidation,
		Message:       message,
		StatusCode:    http.StatusBadRequest,
		ErrorCode:     errorCode,
		IsOperational: true,
		Recovery:      suggestion,
	}
}

// NewUnsupportedInputError creates an error for content the pipeline cannot
// handle (unknown platform, malformed URL). No external calls should follow.
func NewUnsupportedInputError(message string, errorCode string) *AppError {
	return &AppError{
		Type:          ErrorTypeUnsupportedInput,
		Message:       message,
		StatusCode:    http.StatusUnprocessableEntity,
		ErrorCode:     errorCode,
		IsOperational: true,
		Recovery:      "Submit a YouTube, Instagram, TikTok or plain web URL, or a photo.",
	}
}

// NewNotFoundError creates a new not found error (404)
func NewNotFoundError(message string, errorCode string, suggestion string) *AppError {
	return &AppError{
		Type:          ErrorTypeNotFound,
		Message:       message,
		StatusCode:    http.StatusNotFound,
		ErrorCode:     errorCode,
		IsOperational: true,
		Recovery:      suggestion,
	}
}

// NewRateLimitError creates a new rate limit error (429)
func NewRateLimitError(message string, errorCode string, suggestion string) *AppError {
	return &AppError{
		Type:          ErrorTypeRateLimit,
		Message:       message,
		StatusCode:    http.StatusTooManyRequests,
		ErrorCode:     errorCode,
		IsOperational: true,
		Recovery:      suggestion,
	}
}

// NewFetchError creates an error for a failed upstream fetch (metadata API,
// page scrape, caption download).
func NewFetchError(message string, errorCode string, err error) *AppError {
	return &AppError{
		Type:          ErrorTypeFetch,
		Message:       message,
		StatusCode:    http.StatusBadGateway,
		ErrorCode:     errorCode,
		IsOperational: true,
		Recovery:      "Verify the URL is accessible and try again later.",
		Err:           err,
	}
}

// NewExtractionError creates an error for a failed model invocation or an
// unusable model response.
func NewExtractionError(message string, errorCode string, err error) *AppError {
	return &AppError{
		Type:          ErrorTypeExtraction,
		Message:       message,
		StatusCode:    http.StatusInternalServerError,
		ErrorCode:     errorCode,
		IsOperational: true,
		Recovery:      "Try a source with clearer recipe content.",
		Err:           err,
	}
}

// NewLowConfidenceError creates an error for a parse that succeeded but fell
// below the acceptance threshold.
func NewLowConfidenceError(message string, errorCode string) *AppError {
	return &AppError{
		Type:          ErrorTypeLowConfidence,
		Message:       message,
		StatusCode:    http.StatusUnprocessableEntity,
		ErrorCode:     errorCode,
		IsOperational: true,
		Recovery:      "Retry with a source that shows the full recipe.",
	}
}

// NewPersistenceError creates an error for a failed database write.
func NewPersistenceError(message string, errorCode string, err error) *AppError {
	return &AppError{
		Type:          ErrorTypePersistence,
		Message:       message,
		StatusCode:    http.StatusInternalServerError,
		ErrorCode:     errorCode,
		IsOperational: true,
		Err:           err,
	}
}
