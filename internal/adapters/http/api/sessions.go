package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	service "github.com/okian/kunstquiz/internal/app"
	"github.com/okian/kunstquiz/internal/domain/rating"
	"github.com/okian/kunstquiz/internal/domain/round"
	"github.com/okian/kunstquiz/internal/engine"
)

// SessionDependencies defines the interface for session operations.
type SessionDependencies interface {
	CreateSession(ctx context.Context, playerID string) (service.SessionInfo, error)
	CloseSession(ctx context.Context, sessionID string) error
	StartRound(ctx context.Context, sessionID, filterID string) (*engine.Question, error)
	CurrentQuestion(ctx context.Context, sessionID string) (*engine.Question, error)
	SubmitAnswer(ctx context.Context, sessionID, value string) (engine.Answer, error)
	Status(ctx context.Context, sessionID string) (service.Status, error)
	SwitchFilter(ctx context.Context, sessionID, filterID string) error
	Rating(ctx context.Context, sessionID string) (rating.Snapshot, error)
	ResetRating(ctx context.Context, sessionID string) (rating.Snapshot, error)
}

// SessionsHandler handles session, round and rating requests.
type SessionsHandler struct {
	deps SessionDependencies
}

// NewSessionsHandler creates a new sessions handler.
func NewSessionsHandler(deps SessionDependencies) *SessionsHandler {
	return &SessionsHandler{deps: deps}
}

type createSessionRequest struct {
	PlayerID string `json:"player_id"`
}

type filterRequest struct {
	Filter string `json:"filter"`
}

type answerRequest struct {
	Value string `json:"value"`
}

type roundResponse struct {
	Status   string           `json:"status"`
	Question *engine.Question `json:"question"`
}

// answerResponse carries the recorded answer; Error is set when the answer
// counted but the round could not continue.
type answerResponse struct {
	engine.Answer
	Error string `json:"error,omitempty"`
}

// HandleCreate handles POST /sessions.
func (h *SessionsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := decodeBody(r, &req, true); err != nil {
		writeError(w, err)
		return
	}
	info, err := h.deps.CreateSession(r.Context(), strings.TrimSpace(req.PlayerID))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, info)
}

// HandleClose handles DELETE /sessions/{sessionID}.
func (h *SessionsHandler) HandleClose(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.CloseSession(r.Context(), sessionID(r)); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleStartRound handles POST /sessions/{sessionID}/rounds.
func (h *SessionsHandler) HandleStartRound(w http.ResponseWriter, r *http.Request) {
	var req filterRequest
	if err := decodeBody(r, &req, true); err != nil {
		writeError(w, err)
		return
	}
	q, err := h.deps.StartRound(r.Context(), sessionID(r), strings.TrimSpace(req.Filter))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, roundResponse{Status: round.InProgress.String(), Question: q})
}

// HandleQuestion handles GET /sessions/{sessionID}/question.
func (h *SessionsHandler) HandleQuestion(w http.ResponseWriter, r *http.Request) {
	q, err := h.deps.CurrentQuestion(r.Context(), sessionID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

// HandleAnswer handles POST /sessions/{sessionID}/answers.
func (h *SessionsHandler) HandleAnswer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if err := decodeBody(r, &req, false); err != nil {
		writeError(w, err)
		return
	}
	if strings.TrimSpace(req.Value) == "" {
		writeError(w, fmt.Errorf("%w: missing value", ErrBadRequest))
		return
	}
	ans, err := h.deps.SubmitAnswer(r.Context(), sessionID(r), req.Value)
	if err != nil {
		if ans.CorrectValue == "" {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, answerResponse{Answer: ans, Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, answerResponse{Answer: ans})
}

// HandleStatus handles GET /sessions/{sessionID}/status.
func (h *SessionsHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	st, err := h.deps.Status(r.Context(), sessionID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// HandleSwitchFilter handles PUT /sessions/{sessionID}/filter.
func (h *SessionsHandler) HandleSwitchFilter(w http.ResponseWriter, r *http.Request) {
	var req filterRequest
	if err := decodeBody(r, &req, false); err != nil {
		writeError(w, err)
		return
	}
	id := strings.TrimSpace(req.Filter)
	if id == "" {
		writeError(w, fmt.Errorf("%w: missing filter", ErrBadRequest))
		return
	}
	if err := h.deps.SwitchFilter(r.Context(), sessionID(r), id); err != nil {
		writeError(w, err)
		return
	}
	st, err := h.deps.Status(r.Context(), sessionID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// HandleRating handles GET /sessions/{sessionID}/rating.
func (h *SessionsHandler) HandleRating(w http.ResponseWriter, r *http.Request) {
	snap, err := h.deps.Rating(r.Context(), sessionID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// HandleResetRating handles DELETE /sessions/{sessionID}/rating.
func (h *SessionsHandler) HandleResetRating(w http.ResponseWriter, r *http.Request) {
	snap, err := h.deps.ResetRating(r.Context(), sessionID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func sessionID(r *http.Request) string {
	return chi.URLParam(r, "sessionID")
}
