package util

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	apperrors "github.com/flexbase/flexbase/internal/errors"
	"github.com/flexbase/flexbase/internal/models"
	"github.com/flexbase/flexbase/internal/repository"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func testContext() (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/test", nil)
	return c, w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestParseHelpers(t *testing.T) {
	assert.Equal(t, 5, ParseInt(" 5 ", 1))
	assert.Equal(t, 1, ParseInt("five", 1))
	assert.Equal(t, []string{"nike", "jordan"}, ParseList(" nike, ,jordan,"))
	assert.Empty(t, ParseList(""))
	assert.True(t, ParseBool("on"))
	assert.True(t, ParseBool("TRUE"))
	assert.False(t, ParseBool(""))
	assert.False(t, ParseBool("nope"))
}

func TestRespondWithValidationError(t *testing.T) {
	c, w := testContext()
	RespondWithAPIError(c, apperrors.ValidationError("caption", "caption is required"), "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.True(t, c.IsAborted())
	body := decode(t, w)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "VALIDATION_ERROR", body["code"])
	fields := body["errors"].([]any)
	require.Len(t, fields, 1)
	assert.Equal(t, "caption", fields[0].(map[string]any)["field"])
	assert.NotContains(t, body, "stack")
}

func TestRespondWithRepositoryErrors(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{repository.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
		{repository.ErrInvalidID, http.StatusBadRequest, "INVALID_ID"},
		{&repository.DuplicateError{Field: "email"}, http.StatusBadRequest, "ALREADY_EXISTS"},
		{errors.New("disk on fire"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		c, w := testContext()
		RespondWithAPIError(c, apperrors.From(tt.err), "")
		assert.Equal(t, tt.status, w.Code)
		body := decode(t, w)
		assert.Equal(t, tt.code, body["code"])
		assert.NotContains(t, w.Body.String(), "disk on fire")
	}
}

func TestFailRecordsError(t *testing.T) {
	c, w := testContext()
	Fail(c, repository.ErrNotFound)

	assert.True(t, c.IsAborted())
	require.Len(t, c.Errors, 1)
	assert.ErrorIs(t, c.Errors.Last().Err, repository.ErrNotFound)
	assert.Equal(t, 0, w.Body.Len())
}

func TestOK(t *testing.T) {
	c, w := testContext()
	OK(c, http.StatusCreated, gin.H{"post": gin.H{"id": "1"}})

	assert.Equal(t, http.StatusCreated, w.Code)
	body := decode(t, w)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "1", body["post"].(map[string]any)["id"])
}

func TestUserContext(t *testing.T) {
	c, w := testContext()
	assert.Nil(t, CurrentUser(c))

	_, ok := GetUserFromContext(c)
	assert.False(t, ok)
	require.Len(t, c.Errors, 1)
	assert.Equal(t, http.StatusUnauthorized, apperrors.StatusOf(c.Errors.Last().Err))
	assert.Equal(t, 0, w.Body.Len())

	c, _ = testContext()
	user := &models.User{ID: primitive.NewObjectID(), Username: "kicks"}
	SetUser(c, user)

	got, ok := GetUserFromContext(c)
	require.True(t, ok)
	assert.Same(t, user, got)
	assert.Equal(t, user.ID.Hex(), c.GetString("user_id"))
}
