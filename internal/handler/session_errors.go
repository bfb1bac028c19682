package handler

import (
	"errors"
	"net/http"

	"github.com/stemsi/kuis-backend/internal/model"
	"github.com/stemsi/kuis-backend/internal/response"
	"github.com/stemsi/kuis-backend/internal/service"
	"github.com/stemsi/kuis-backend/internal/session"
)

// sessionErrorCode maps engine and service errors onto API error codes.
// ErrAlreadySubmitted wraps ErrInvalidState, so it is matched first.
func sessionErrorCode(err error) (int, response.ErrCode) {
	switch {
	case errors.Is(err, session.ErrAlreadySubmitted):
		return http.StatusConflict, response.ErrAlreadySubmitted
	case errors.Is(err, session.ErrAlreadyCompleted):
		return http.StatusConflict, response.ErrAlreadyCompleted
	case errors.Is(err, session.ErrQuizUnavailable):
		return http.StatusNotFound, response.ErrQuizUnavailable
	case errors.Is(err, session.ErrUnknownQuestion):
		return http.StatusBadRequest, response.ErrUnknownQuestion
	case errors.Is(err, session.ErrInvalidOption):
		return http.StatusBadRequest, response.ErrInvalidOption
	case errors.Is(err, session.ErrInvalidState):
		return http.StatusConflict, response.ErrInvalidState
	case errors.Is(err, service.ErrNotQuizOwner):
		return http.StatusForbidden, response.ErrNotQuizOwner
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound, response.ErrNotFound
	default:
		return http.StatusInternalServerError, response.ErrInternal
	}
}
