package middleware

import (
	"fmt"
	"runtime/debug"

	apperrors "github.com/flexbase/flexbase/internal/errors"
	"github.com/flexbase/flexbase/internal/logger"
	"github.com/flexbase/flexbase/internal/metrics"
	"github.com/flexbase/flexbase/internal/util"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	htmlPagesKey  = "html_pages"
	panicStackKey = "panic_stack"

	// ErrorTemplate renders failed page requests
	ErrorTemplate = "error.html"
)

// HTMLPages marks a route group as server-rendered so failures render the
// error page instead of JSON
func HTMLPages() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(htmlPagesKey, true)
		c.Next()
	}
}

// IsHTMLPage reports whether the request was marked by HTMLPages
func IsHTMLPage(c *gin.Context) bool {
	return c.GetBool(htmlPagesKey)
}

// ErrorHandler renders the last error recorded on the context once the rest
// of the chain has run. Nothing is written if a handler already responded.
// devMode adds the cause and panic stack to JSON bodies.
func ErrorHandler(devMode bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		apiErr := apperrors.From(c.Errors.Last().Err)
		metrics.RecordError(string(apiErr.Code), c.FullPath())

		var stack string
		if devMode {
			if apiErr.Err != nil && apiErr.Details == "" {
				withCause := *apiErr
				withCause.Details = apiErr.Err.Error()
				apiErr = &withCause
			}
			stack = c.GetString(panicStackKey)
		}

		if IsHTMLPage(c) {
			status := util.StatusOf(apiErr)
			c.HTML(status, ErrorTemplate, gin.H{
				"Title":       "Error",
				"Status":      status,
				"Message":     apiErr.Message,
				"CurrentUser": util.CurrentUser(c),
			})
			c.Abort()
			return
		}
		util.RespondWithAPIError(c, apiErr, stack)
	}
}

// Recovery turns a panic into a 500 rendered by ErrorHandler
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				stack := string(debug.Stack())
				logger.Log.Error("Panic recovered",
					zap.Any("panic", rec),
					zap.String("path", c.Request.URL.Path),
					logger.WithRequestID(c.GetString("request_id")),
					zap.String("stack", stack))

				c.Set(panicStackKey, stack)
				util.Fail(c, apperrors.InternalError("internal server error", fmt.Errorf("panic: %v", rec)))
			}
		}()
		c.Next()
	}
}
