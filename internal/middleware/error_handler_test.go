package middleware

import (
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	apperrors "github.com/flexbase/flexbase/internal/errors"
	"github.com/flexbase/flexbase/internal/repository"
	"github.com/flexbase/flexbase/internal/util"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func errorRouter(devMode bool) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RequestID(), ErrorHandler(devMode), Recovery())
	router.SetHTMLTemplate(template.Must(template.New(ErrorTemplate).Parse(`<h1>{{.Status}}</h1><p>{{.Message}}</p>`)))

	router.GET("/validation", func(c *gin.Context) {
		util.Fail(c, apperrors.ValidationErrors([]apperrors.FieldError{
			{Field: "caption", Message: "too long"},
			{Field: "tags", Message: "too many"},
		}))
	})
	router.GET("/missing", func(c *gin.Context) {
		util.Fail(c, repository.ErrNotFound)
	})
	router.GET("/internal", func(c *gin.Context) {
		util.Fail(c, errors.New("mongo: connection refused"))
	})
	router.GET("/panic", func(c *gin.Context) {
		panic("kaboom")
	})
	router.GET("/written", func(c *gin.Context) {
		_ = c.Error(errors.New("logged only"))
		c.JSON(http.StatusAccepted, gin.H{"ok": true})
	})
	router.GET("/page", HTMLPages(), func(c *gin.Context) {
		util.Fail(c, apperrors.NotFound("post"))
	})
	return router
}

func serve(t *testing.T, router http.Handler, path string) (*httptest.ResponseRecorder, util.ErrorResponse) {
	t.Helper()
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))

	var body util.ErrorResponse
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	}
	return w, body
}

func TestErrorHandlerJSON(t *testing.T) {
	router := errorRouter(false)

	w, body := serve(t, router, "/validation")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", body.Code)
	assert.Len(t, body.Errors, 2)
	assert.Equal(t, "caption", body.Errors[0].Field)

	w, body = serve(t, router, "/missing")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", body.Code)

	w, body = serve(t, router, "/internal")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "INTERNAL_ERROR", body.Code)
	assert.Empty(t, body.Details, "causes stay out of production bodies")

	w, _ = serve(t, router, "/written")
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.JSONEq(t, `{"ok":true}`, w.Body.String())
}

func TestErrorHandlerDevMode(t *testing.T) {
	router := errorRouter(true)

	_, body := serve(t, router, "/internal")
	assert.Equal(t, "mongo: connection refused", body.Details)

	w, body := serve(t, router, "/panic")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "panic: kaboom", body.Details)
	assert.Contains(t, body.Stack, "goroutine")
}

func TestRecoveryHidesStackInProduction(t *testing.T) {
	w, body := serve(t, errorRouter(false), "/panic")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "internal server error", body.Message)
	assert.Empty(t, body.Stack)
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
}

func TestErrorHandlerRendersPages(t *testing.T) {
	w, _ := serve(t, errorRouter(false), "/page")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Equal(t, "<h1>404</h1><p>post not found</p>", w.Body.String())
}

func TestRequestIDKeepsIncomingHeader(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RequestID())
	router.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString("request_id")) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Body.String())
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", strings.NewReader("")))
	assert.Len(t, w.Body.String(), 36)
}
