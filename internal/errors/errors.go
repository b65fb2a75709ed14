package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType represents different categories of errors
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeNetwork    ErrorType = "network"
	ErrorTypeProcessing ErrorType = "processing"
	ErrorTypeEncoding   ErrorType = "encoding"
	ErrorTypeTimeout    ErrorType = "timeout"
	ErrorTypeTooLarge   ErrorType = "too_large"
	ErrorTypeNotFound   ErrorType = "not_found"
	ErrorTypeInternal   ErrorType = "internal"
)

// AppError represents a structured application error
type AppError struct {
	Type       ErrorType `json:"type"`
	Message    string    `json:"message"`
	StatusCode int       `json:"status_code"`
	Cause      error     `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// statusByType is the HTTP status reported for each error type
var statusByType = map[ErrorType]int{
	ErrorTypeValidation: http.StatusBadRequest,
	ErrorTypeNetwork:    http.StatusBadGateway,
	ErrorTypeProcessing: http.StatusUnprocessableEntity,
	ErrorTypeEncoding:   http.StatusUnprocessableEntity,
	ErrorTypeTimeout:    http.StatusGatewayTimeout,
	ErrorTypeTooLarge:   http.StatusRequestEntityTooLarge,
	ErrorTypeNotFound:   http.StatusNotFound,
	ErrorTypeInternal:   http.StatusInternalServerError,
}

// New creates an AppError of the given type with its default status code
func New(errorType ErrorType, message string, cause error) *AppError {
	status, ok := statusByType[errorType]
	if !ok {
		status = http.StatusInternalServerError
	}
	return &AppError{Type: errorType, Message: message, StatusCode: status, Cause: cause}
}

// NewValidationError reports a bad request (400)
func NewValidationError(message string, cause error) *AppError {
	return New(ErrorTypeValidation, message, cause)
}

// NewNetworkError reports an upstream failure (502)
func NewNetworkError(message string, cause error) *AppError {
	return New(ErrorTypeNetwork, message, cause)
}

// NewProcessingError reports an image that could not be processed (422)
func NewProcessingError(message string, cause error) *AppError {
	return New(ErrorTypeProcessing, message, cause)
}

// NewEncodingError reports an output encoding failure (422)
func NewEncodingError(message string, cause error) *AppError {
	return New(ErrorTypeEncoding, message, cause)
}

// NewTooLargeError reports an input over a size limit (413)
func NewTooLargeError(message string, cause error) *AppError {
	return New(ErrorTypeTooLarge, message, cause)
}

func NewTimeoutError(message string, cause error) *AppError {
	return New(ErrorTypeTimeout, message, cause)
}

func NewInternalError(message string, cause error) *AppError {
	return New(ErrorTypeInternal, message, cause)
}

func NewNotFoundError(message string, cause error) *AppError {
	return New(ErrorTypeNotFound, message, cause)
}

// IsType checks if the error chain contains an AppError of a specific type
func IsType(err error, errorType ErrorType) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == errorType
	}
	return false
}

// GetStatusCode extracts the HTTP status code from an error
func GetStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}
	return http.StatusInternalServerError
}

// PublicMessage returns the client-facing text for err
func PublicMessage(err error) string {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return "internal server error"
	}
	if appErr.Cause != nil && appErr.Type != ErrorTypeInternal {
		return fmt.Sprintf("%s: %v", appErr.Message, appErr.Cause)
	}
	return appErr.Message
}
