package http

import (
	"fmt"
	"net/http"
)

// Error codes exposed to API clients.
const (
	CodeValidation    = "VALIDATION_ERROR"
	CodeRateLimited   = "RATE_LIMITED"
	CodePlaceNotFound = "PLACE_NOT_FOUND"
	CodeDevOnly       = "DEV_ONLY_ENDPOINT"
	CodeNotFound      = "NOT_FOUND"
	CodeInternal      = "INTERNAL_ERROR"
)

// AppError represents application-level error with HTTP status.
type AppError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Field   string                 `json:"field,omitempty"`
	Params  map[string]interface{} `json:"params,omitempty"`
	Status  int                    `json:"-"`
	Err     error                  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns underlying error.
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates a new application error.
func NewAppError(code, field, message string, status int) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Field:   field,
		Status:  status,
	}
}

// WithParam sets a single error param.
func (e *AppError) WithParam(key string, value interface{}) *AppError {
	if e.Params == nil {
		e.Params = make(map[string]interface{})
	}
	e.Params[key] = value
	return e
}

// WithError wraps an underlying error.
func (e *AppError) WithError(err error) *AppError {
	e.Err = err
	return e
}

// ValidationFailed creates a 400 error, optionally bound to a field.
func ValidationFailed(field, message string) *AppError {
	return NewAppError(CodeValidation, field, message, http.StatusBadRequest)
}

// PlaceNotFound creates a 404 error for an unknown place.
func PlaceNotFound() *AppError {
	return NewAppError(CodePlaceNotFound, "", "Place not found", http.StatusNotFound)
}

// RateLimited creates a 429 error.
func RateLimited(message string) *AppError {
	return NewAppError(CodeRateLimited, "", message, http.StatusTooManyRequests)
}

// ForbiddenError creates a 403 error.
func ForbiddenError(code, message string) *AppError {
	return NewAppError(code, "", message, http.StatusForbidden)
}

// InternalError creates a 500 error.
func InternalError(message string) *AppError {
	return NewAppError(CodeInternal, "", message, http.StatusInternalServerError)
}
