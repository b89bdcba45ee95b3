package util

import (
	"net/http"

	apperrors "github.com/flexbase/flexbase/internal/errors"
	"github.com/flexbase/flexbase/internal/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ErrorResponse is the body of every failed API call
type ErrorResponse struct {
	Success bool                   `json:"success"`
	Code    string                 `json:"code"`
	Message string                 `json:"message,omitempty"`
	Errors  []apperrors.FieldError `json:"errors,omitempty"`
	Details string                 `json:"details,omitempty"`
	Stack   string                 `json:"stack,omitempty"`
}

// StatusOf returns the HTTP status for apiErr
func StatusOf(apiErr *apperrors.APIError) int {
	if apiErr.Status != 0 {
		return apiErr.Status
	}
	return apiErr.Code.StatusCode()
}

// RespondWithAPIError writes apiErr as the JSON error body. stack is only
// set in development.
func RespondWithAPIError(c *gin.Context, apiErr *apperrors.APIError, stack string) {
	status := StatusOf(apiErr)

	fields := []zap.Field{
		zap.String("code", string(apiErr.Code)),
		zap.String("message", apiErr.Message),
		zap.Int("status", status),
		zap.String("path", c.Request.URL.Path),
	}
	if apiErr.Err != nil {
		fields = append(fields, zap.Error(apiErr.Err))
	}
	if status >= http.StatusInternalServerError {
		logger.Log.Error("API error", fields...)
	} else {
		logger.Log.Debug("API error", fields...)
	}

	c.AbortWithStatusJSON(status, ErrorResponse{
		Success: false,
		Code:    string(apiErr.Code),
		Message: apiErr.Message,
		Errors:  apiErr.Fields,
		Details: apiErr.Details,
		Stack:   stack,
	})
}

// Fail records err on the request and aborts the chain. The error handler
// middleware renders it.
func Fail(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

// FailUnauthorized fails the request with a 401
func FailUnauthorized(c *gin.Context, message ...string) {
	msg := "authentication required"
	if len(message) > 0 && message[0] != "" {
		msg = message[0]
	}
	Fail(c, apperrors.Unauthorized(msg))
}

// OK sends a success body. The fields of data are merged beside "success".
func OK(c *gin.Context, status int, data gin.H) {
	body := gin.H{"success": true}
	for k, v := range data {
		body[k] = v
	}
	c.JSON(status, body)
}
