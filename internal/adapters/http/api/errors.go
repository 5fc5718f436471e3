package api

import (
	"errors"
	"net/http"

	service "github.com/okian/kunstquiz/internal/app"
	"github.com/okian/kunstquiz/internal/domain/catalog"
	"github.com/okian/kunstquiz/internal/domain/filter"
	"github.com/okian/kunstquiz/internal/domain/round"
	"github.com/okian/kunstquiz/internal/domain/selection"
)

// ErrBadRequest marks a request body or parameter the API cannot use.
var ErrBadRequest = errors.New("bad request")

// statusFor maps domain errors to an HTTP status and a stable error code.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, service.ErrSessionNotFound):
		return http.StatusNotFound, "session_not_found"
	case errors.Is(err, service.ErrNoQuestion):
		return http.StatusNotFound, "no_question"
	case errors.Is(err, filter.ErrUnknownFilter):
		return http.StatusNotFound, "unknown_filter"
	case errors.Is(err, round.ErrInvalidTransition):
		return http.StatusConflict, "invalid_transition"
	case errors.Is(err, selection.ErrNoCandidates):
		return http.StatusUnprocessableEntity, "no_candidates"
	case errors.Is(err, service.ErrNotStarted):
		return http.StatusServiceUnavailable, "not_started"
	case errors.Is(err, catalog.ErrEmptyCatalog):
		return http.StatusInternalServerError, "empty_catalog"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
