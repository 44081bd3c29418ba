package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorType represents different categories of errors
type ErrorType string

const (
	ErrorTypeAnalysisFailure    ErrorType = "analysis_failure"
	ErrorTypeInvalidLiteral     ErrorType = "invalid_literal"
	ErrorTypeIncomparableValues ErrorType = "incomparable_values"
	ErrorTypeConfiguration      ErrorType = "configuration"
	ErrorTypeStorageFailure     ErrorType = "storage_failure"
	ErrorTypeDuplicateImage     ErrorType = "duplicate_image"
	ErrorTypeValidation         ErrorType = "validation"
	ErrorTypeNetwork            ErrorType = "network"
	ErrorTypeTimeout            ErrorType = "timeout"
	ErrorTypeNotFound           ErrorType = "not_found"
	ErrorTypeInternal           ErrorType = "internal"
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
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithDetails returns a copy of the error carrying extra detail text.
func (e *AppError) WithDetails(details string) *AppError {
	cp := *e
	cp.Details = details
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

// NewAnalysisFailure reports a tagger that could not produce a value for
// reasons unrelated to the image content.
func NewAnalysisFailure(message string, cause error) *AppError {
	return newError(ErrorTypeAnalysisFailure, http.StatusUnprocessableEntity, message, cause)
}

// NewInvalidLiteral reports user supplied text that does not parse into a tag value.
func NewInvalidLiteral(message string, cause error) *AppError {
	return newError(ErrorTypeInvalidLiteral, http.StatusBadRequest, message, cause)
}

// NewIncomparableValues reports a distance request between foreign values.
func NewIncomparableValues(message string, cause error) *AppError {
	return newError(ErrorTypeIncomparableValues, http.StatusUnprocessableEntity, message, cause)
}

// NewConfigurationError reports invalid analyzer or application parameters.
func NewConfigurationError(message string, cause error) *AppError {
	return newError(ErrorTypeConfiguration, http.StatusInternalServerError, message, cause)
}

// NewStorageFailure reports a pool, connection or query failure.
func NewStorageFailure(message string, cause error) *AppError {
	return newError(ErrorTypeStorageFailure, http.StatusInternalServerError, message, cause)
}

// NewDuplicateImage reports content that is already indexed.
func NewDuplicateImage(message string, cause error) *AppError {
	return newError(ErrorTypeDuplicateImage, http.StatusConflict, message, cause)
}

// NewValidationError creates a new validation error
func NewValidationError(message string, cause error) *AppError {
	return newError(ErrorTypeValidation, http.StatusBadRequest, message, cause)
}

// NewNetworkError creates a new network error
func NewNetworkError(message string, cause error) *AppError {
	return newError(ErrorTypeNetwork, http.StatusBadGateway, message, cause)
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

// IsType checks whether any error in the chain is an AppError of the given type
func IsType(err error, errorType ErrorType) bool {
	var appErr *AppError
	for err != nil {
		if !stderrors.As(err, &appErr) {
			return false
		}
		if appErr.Type == errorType {
			return true
		}
		err = appErr.Cause
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
