package errors

import "net/http"

// ErrorCode represents the type of error
type ErrorCode string

const (
	ErrNotFound      ErrorCode = "NOT_FOUND"
	ErrUnauthorized  ErrorCode = "UNAUTHORIZED"
	ErrForbidden     ErrorCode = "FORBIDDEN"
	ErrValidation    ErrorCode = "VALIDATION_ERROR"
	ErrInvalidID     ErrorCode = "INVALID_ID"
	ErrBadRequest    ErrorCode = "BAD_REQUEST"
	ErrAlreadyExists ErrorCode = "ALREADY_EXISTS"
	ErrRateLimited   ErrorCode = "RATE_LIMITED"
	ErrInternalError ErrorCode = "INTERNAL_ERROR"
)

// StatusCodeMap maps ErrorCode to HTTP status code.
// Uniqueness conflicts are reported as 400 with the offending field.
var StatusCodeMap = map[ErrorCode]int{
	ErrNotFound:      http.StatusNotFound,
	ErrUnauthorized:  http.StatusUnauthorized,
	ErrForbidden:     http.StatusForbidden,
	ErrValidation:    http.StatusBadRequest,
	ErrInvalidID:     http.StatusBadRequest,
	ErrBadRequest:    http.StatusBadRequest,
	ErrAlreadyExists: http.StatusBadRequest,
	ErrRateLimited:   http.StatusTooManyRequests,
	ErrInternalError: http.StatusInternalServerError,
}

// StatusCode returns the HTTP status code for this error code
func (e ErrorCode) StatusCode() int {
	if code, ok := StatusCodeMap[e]; ok {
		return code
	}
	return http.StatusInternalServerError
}
