package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorType represents different categories of errors
type ErrorType string

const (
	ErrorTypeValidation          ErrorType = "validation"
	ErrorTypeInvalidTrainingType ErrorType = "invalid_training_type"
	ErrorTypeCapacityExceeded    ErrorType = "capacity_exceeded"
	ErrorTypeInsufficientSamples ErrorType = "insufficient_samples"
	ErrorTypeMalformedModel      ErrorType = "malformed_model"
	ErrorTypeInvalidNumber       ErrorType = "invalid_number"
	ErrorTypeNetwork             ErrorType = "network"
	ErrorTypeProcessing          ErrorType = "processing"
	ErrorTypeTimeout             ErrorType = "timeout"
	ErrorTypeNotFound            ErrorType = "not_found"
	ErrorTypeInternal            ErrorType = "internal"
)

// AppError represents a structured application error
type AppError struct {
	Type       ErrorType `json:"type"`
	Message    string    `json:"message"`
	Details    string    `json:"details,omitempty"`
	StatusCode int       `json:"status_code"`
	Cause      error     `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Type, e.Message)
	if e.Details != "" {
		msg = fmt.Sprintf("%s [%s]", msg, e.Details)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s (caused by: %v)", msg, e.Cause)
	}
	return msg
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithDetails returns a copy of the error carrying the given details
func (e *AppError) WithDetails(details string) *AppError {
	cp := *e
	cp.Details = details
	return &cp
}

// WithStatus returns a copy of the error with a different HTTP status
func (e *AppError) WithStatus(status int) *AppError {
	cp := *e
	cp.StatusCode = status
	return &cp
}

func newError(t ErrorType, status int, message string, cause error) *AppError {
	return &AppError{
		Type:       t,
		Message:    message,
		StatusCode: status,
		Cause:      cause,
	}
}

// NewValidationError creates a new validation error
func NewValidationError(message string, cause error) *AppError {
	return newError(ErrorTypeValidation, http.StatusBadRequest, message, cause)
}

// NewInvalidTrainingTypeError is returned when a training label is not "ai" or "real"
func NewInvalidTrainingTypeError(label string) *AppError {
	return newError(ErrorTypeInvalidTrainingType, http.StatusBadRequest,
		fmt.Sprintf("invalid training type %q", label), nil)
}

// NewCapacityExceededError is returned when a corpus class would grow past its limit
func NewCapacityExceededError(label string, have, adding, max int) *AppError {
	return newError(ErrorTypeCapacityExceeded, http.StatusConflict,
		fmt.Sprintf("%s corpus holds %d of %d samples, cannot add %d", label, have, max, adding), nil)
}

// NewInsufficientSamplesError is a soft failure: the caller can add samples and retry
func NewInsufficientSamplesError(message string) *AppError {
	return newError(ErrorTypeInsufficientSamples, http.StatusConflict, message, nil)
}

// NewMalformedModelError creates a new malformed model error
func NewMalformedModelError(message string, cause error) *AppError {
	return newError(ErrorTypeMalformedModel, http.StatusUnprocessableEntity, message, cause)
}

// NewInvalidNumberError creates a new invalid number error
func NewInvalidNumberError(message string) *AppError {
	return newError(ErrorTypeInvalidNumber, http.StatusUnprocessableEntity, message, nil)
}

// NewNetworkError creates a new network error
func NewNetworkError(message string, cause error) *AppError {
	return newError(ErrorTypeNetwork, http.StatusBadGateway, message, cause)
}

// NewProcessingError creates a new processing error
func NewProcessingError(message string, cause error) *AppError {
	return newError(ErrorTypeProcessing, http.StatusUnprocessableEntity, message, cause)
}

// NewTimeoutError creates a new timeout error
func NewTimeoutError(message string, cause error) *AppError {
	return newError(ErrorTypeTimeout, http.StatusGatewayTimeout, message, cause)
}

// NewInternalError creates a new internal error
func NewInternalError(message string, cause error) *AppError {
	return newError(ErrorTypeInternal, http.StatusInternalServerError, message, cause)
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(message string, cause error) *AppError {
	return newError(ErrorTypeNotFound, http.StatusNotFound, message, cause)
}

// IsType checks if the error, or any error it wraps, is of a specific type
func IsType(err error, errorType ErrorType) bool {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Type == errorType
	}
	return false
}

// GetStatusCode extracts the HTTP status code from an error
func GetStatusCode(err error) int {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.StatusCode
	}
	return http.StatusInternalServerError
}
