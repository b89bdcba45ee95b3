package errors

import (
	"context"
	stderrors "errors"

	"github.com/flexbase/flexbase/internal/repository"
)

// From maps any error onto the API taxonomy. It is the single place where
// storage failures become client-facing errors; unknown errors become 500s
// that keep the cause for logging.
func From(err error) *APIError {
	if err == nil {
		return nil
	}

	var apiErr *APIError
	if stderrors.As(err, &apiErr) {
		return apiErr
	}

	var dup *repository.DuplicateError
	switch {
	case stderrors.As(err, &dup):
		e := AlreadyExists(dup.Field)
		e.Err = err
		return e
	case stderrors.Is(err, repository.ErrNotFound):
		e := NotFound("resource")
		e.Err = err
		return e
	case stderrors.Is(err, repository.ErrInvalidID):
		e := InvalidID("id")
		e.Err = err
		return e
	case stderrors.Is(err, repository.ErrSelfFollow):
		return ValidationError("userId", "you cannot follow yourself")
	case stderrors.Is(err, repository.ErrAlreadyInCollection):
		return ValidationError("postId", "post is already in this collection")
	case stderrors.Is(err, repository.ErrNotInCollection):
		return NotFound("post in collection")
	case stderrors.Is(err, repository.ErrInvalidInput):
		return BadRequest("invalid input")
	case stderrors.Is(err, context.DeadlineExceeded):
		return InternalError("request timed out", err)
	}

	return InternalError("internal server error", err)
}

// StatusOf returns the HTTP status an error will be reported with
func StatusOf(err error) int {
	e := From(err)
	if e.Status != 0 {
		return e.Status
	}
	return e.Code.StatusCode()
}
