package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/flexbase/flexbase/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromTaxonomy(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   ErrorCode
	}{
		{"api error passes through", Forbidden("nope"), http.StatusForbidden, ErrForbidden},
		{"wrapped api error", fmt.Errorf("ctx: %w", Unauthorized("")), http.StatusUnauthorized, ErrUnauthorized},
		{"not found", fmt.Errorf("load: %w", repository.ErrNotFound), http.StatusNotFound, ErrNotFound},
		{"invalid id", repository.ErrInvalidID, http.StatusBadRequest, ErrInvalidID},
		{"duplicate", &repository.DuplicateError{Field: "email"}, http.StatusBadRequest, ErrAlreadyExists},
		{"self follow", repository.ErrSelfFollow, http.StatusBadRequest, ErrValidation},
		{"already in collection", repository.ErrAlreadyInCollection, http.StatusBadRequest, ErrValidation},
		{"unknown", stderrors.New("boom"), http.StatusInternalServerError, ErrInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := From(tt.err)
			require.NotNil(t, e)
			assert.Equal(t, tt.status, e.Status)
			assert.Equal(t, tt.code, e.Code)
			assert.Equal(t, tt.status, StatusOf(tt.err))
		})
	}
}

func TestFromNil(t *testing.T) {
	assert.Nil(t, From(nil))
}

func TestDuplicateCarriesField(t *testing.T) {
	e := From(&repository.DuplicateError{Field: "username"})
	require.Len(t, e.Fields, 1)
	assert.Equal(t, "username", e.Fields[0].Field)
	assert.Equal(t, "username is already taken", e.Message)
}

func TestInternalErrorKeepsCause(t *testing.T) {
	cause := stderrors.New("connection reset")
	e := From(cause)
	assert.Equal(t, "internal server error", e.Message)
	assert.ErrorIs(t, e, cause)
}

func TestStatusCodeMap(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, ErrValidation.StatusCode())
	assert.Equal(t, http.StatusInternalServerError, ErrorCode("UNKNOWN").StatusCode())
}
