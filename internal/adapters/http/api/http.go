// Package api exposes the quiz service over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	service "github.com/okian/kunstquiz/internal/app"
	"github.com/okian/kunstquiz/internal/domain/catalog"
	"github.com/okian/kunstquiz/internal/domain/filter"
	"github.com/okian/kunstquiz/internal/domain/rating"
	"github.com/okian/kunstquiz/internal/engine"
	"github.com/okian/kunstquiz/pkg/logger"
)

// maxBodyBytes bounds request bodies; every body is a small JSON object.
const maxBodyBytes = 1 << 16

// Dependencies required by HTTP handlers.
type Dependencies interface {
	StatsProvider

	Filters() []filter.Spec
	View(ctx context.Context, filterID string) (*catalog.View, error)

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

// Server wires HTTP routes for the quiz API.
type Server struct {
	statsHandler    *StatsHandler
	filtersHandler  *FiltersHandler
	sessionsHandler *SessionsHandler
	corsOrigins     []string
	logger          logger.Logger
}

// NewServer creates a new API server with all handlers. An empty origin
// list allows any origin.
func NewServer(deps Dependencies, corsOrigins []string, log logger.Logger) *Server {
	if log == nil {
		log = logger.Nop()
	}
	return &Server{
		statsHandler:    NewStatsHandler(deps),
		filtersHandler:  NewFiltersHandler(deps),
		sessionsHandler: NewSessionsHandler(deps),
		corsOrigins:     corsOrigins,
		logger:          log,
	}
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	origins := s.corsOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	r.Use(MetricsMiddleware, LoggingMiddleware(s.logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
		ExposedHeaders: []string{"Content-Length"},
		MaxAge:         300,
	}))
	s.Register(r)
	return r
}

// Register attaches all HTTP routes to r.
func (s *Server) Register(r chi.Router) {
	r.Method(http.MethodGet, "/healthz", HandleHealth())
	r.Get("/stats", s.statsHandler.HandleStats)

	r.Route("/filters", func(fr chi.Router) {
		fr.Get("/", s.filtersHandler.HandleList)
		fr.Get("/{filterID}/view", s.filtersHandler.HandleView)
	})

	r.Route("/sessions", func(sr chi.Router) {
		h := s.sessionsHandler
		sr.Post("/", h.HandleCreate)
		sr.Route("/{sessionID}", func(one chi.Router) {
			one.Delete("/", h.HandleClose)
			one.Post("/rounds", h.HandleStartRound)
			one.Get("/question", h.HandleQuestion)
			one.Post("/answers", h.HandleAnswer)
			one.Get("/status", h.HandleStatus)
			one.Put("/filter", h.HandleSwitchFilter)
			one.Get("/rating", h.HandleRating)
			one.Delete("/rating", h.HandleResetRating)
		})
	})
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status, code := statusFor(err)
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// decodeBody reads a JSON object into v. An empty body is allowed when optional.
func decodeBody(r *http.Request, v any, optional bool) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if optional && errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("%w: %w", ErrBadRequest, err)
	}
	return nil
}
