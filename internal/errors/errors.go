package errors

import (
	"fmt"
	"net/http"
)

// FieldError is a single field-level validation message
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// APIError represents a standardized API error
type APIError struct {
	Code    ErrorCode    `json:"code"`
	Message string       `json:"message"`
	Fields  []FieldError `json:"errors,omitempty"`
	Details string       `json:"details,omitempty"`
	Status  int          `json:"-"`
	Err     error        `json:"-"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	if len(e.Fields) > 0 {
		return fmt.Sprintf("%s: %s (field: %s)", e.Code, e.Message, e.Fields[0].Field)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// NotFound creates a NOT_FOUND error
func NotFound(resource string) *APIError {
	return &APIError{
		Code:    ErrNotFound,
		Message: fmt.Sprintf("%s not found", resource),
		Status:  http.StatusNotFound,
	}
}

// Unauthorized creates an UNAUTHORIZED error
func Unauthorized(message string) *APIError {
	if message == "" {
		message = "authentication required"
	}
	return &APIError{
		Code:    ErrUnauthorized,
		Message: message,
		Status:  http.StatusUnauthorized,
	}
}

// Forbidden creates a FORBIDDEN error
func Forbidden(message string) *APIError {
	return &APIError{
		Code:    ErrForbidden,
		Message: message,
		Status:  http.StatusForbidden,
	}
}

// ValidationError creates a VALIDATION_ERROR for a single field
func ValidationError(field, message string) *APIError {
	return &APIError{
		Code:    ErrValidation,
		Message: message,
		Fields:  []FieldError{{Field: field, Message: message}},
		Status:  http.StatusBadRequest,
	}
}

// ValidationErrors creates a VALIDATION_ERROR carrying several field messages
func ValidationErrors(fields []FieldError) *APIError {
	message := "validation failed"
	if len(fields) == 1 {
		message = fields[0].Message
	}
	return &APIError{
		Code:    ErrValidation,
		Message: message,
		Fields:  fields,
		Status:  http.StatusBadRequest,
	}
}

// InvalidID creates an INVALID_ID error for a malformed identifier
func InvalidID(field string) *APIError {
	return &APIError{
		Code:    ErrInvalidID,
		Message: fmt.Sprintf("invalid %s", field),
		Fields:  []FieldError{{Field: field, Message: "malformed identifier"}},
		Status:  http.StatusBadRequest,
	}
}

// BadRequest creates a BAD_REQUEST error
func BadRequest(message string) *APIError {
	return &APIError{
		Code:    ErrBadRequest,
		Message: message,
		Status:  http.StatusBadRequest,
	}
}

// AlreadyExists creates an ALREADY_EXISTS error naming the duplicated field
func AlreadyExists(field string) *APIError {
	message := fmt.Sprintf("%s is already taken", field)
	return &APIError{
		Code:    ErrAlreadyExists,
		Message: message,
		Fields:  []FieldError{{Field: field, Message: message}},
		Status:  http.StatusBadRequest,
	}
}

// RateLimited creates a RATE_LIMITED error
func RateLimited(message string) *APIError {
	if message == "" {
		message = "rate limit exceeded"
	}
	return &APIError{
		Code:    ErrRateLimited,
		Message: message,
		Status:  http.StatusTooManyRequests,
	}
}

// InternalError creates an INTERNAL_ERROR wrapping the cause
func InternalError(message string, cause error) *APIError {
	return &APIError{
		Code:    ErrInternalError,
		Message: message,
		Status:  http.StatusInternalServerError,
		Err:     cause,
	}
}

// WithDetails adds additional details to an error
func (e *APIError) WithDetails(details string) *APIError {
	e.Details = details
	return e
}
