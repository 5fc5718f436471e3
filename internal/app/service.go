// Package service hosts player sessions over one shared catalog and
// implements the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/kunstquiz/internal/adapters/mq/queue"
	"github.com/okian/kunstquiz/internal/adapters/mq/worker"
	"github.com/okian/kunstquiz/internal/adapters/repository"
	"github.com/okian/kunstquiz/internal/domain/catalog"
	"github.com/okian/kunstquiz/internal/domain/filter"
	"github.com/okian/kunstquiz/internal/domain/model"
	"github.com/okian/kunstquiz/internal/domain/rating"
	"github.com/okian/kunstquiz/internal/domain/round"
	"github.com/okian/kunstquiz/internal/domain/selection"
	"github.com/okian/kunstquiz/internal/engine"
	"github.com/okian/kunstquiz/pkg/logger"
	"github.com/okian/kunstquiz/pkg/metrics"
)

// SessionInfo describes a newly created session.
type SessionInfo struct {
	ID       string `json:"session_id"`
	PlayerID string `json:"player_id,omitempty"`
	Rating   int    `json:"rating"`
	Restored bool   `json:"restored"`
}

// Status is a session's round progress.
type Status struct {
	Status   round.Status   `json:"status"`
	Filter   string         `json:"filter"`
	Answered int            `json:"answered"`
	Total    int            `json:"total"`
	Rating   int            `json:"rating"`
	Summary  *round.Summary `json:"summary,omitempty"`
}

// session is one player's engine. Engines are single-threaded, so every
// call goes through mu.
type session struct {
	mu      sync.Mutex
	id      string
	player  string
	engine  *engine.Engine
	created time.Time
}

// Service implements the API dependencies for the quiz.
type Service struct {
	mu sync.RWMutex

	// Core components
	registry *filter.Registry
	catalog  *catalog.Catalog
	store    repository.Store
	ratings  *repository.Ratings
	queue    *queue.InMemoryQueue
	pool     *worker.Pool
	fetcher  worker.Fetcher

	// Configuration
	filters           []filter.Spec
	lookup            filter.Lookup
	dimensions        []string
	roundLength       int
	recencySize       int
	weightCap         float64
	rareBonus         float64
	maxRebuilds       int
	initialRating     int
	kCorrect          int
	kIncorrect        int
	baseline          float64
	prefetchWorkers   int
	prefetchQueueSize int
	prefetchTimeout   time.Duration
	seed              int64

	// State
	sessions map[string]*session
	created  int64
	started  bool
	cancel   context.CancelFunc

	// Logging
	logger logger.Logger
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		dimensions:        []string{model.DimensionGroup},
		roundLength:       round.DefaultLength,
		recencySize:       3,
		weightCap:         selection.DefaultWeightCap,
		rareBonus:         selection.DefaultRareBonus,
		maxRebuilds:       8,
		initialRating:     rating.DefaultInitial,
		kCorrect:          rating.DefaultKCorrect,
		kIncorrect:        rating.DefaultKIncorrect,
		baseline:          rating.DefaultBaseline,
		prefetchWorkers:   min(runtime.NumCPU(), 4),
		prefetchQueueSize: 256,
		prefetchTimeout:   3 * time.Second,
		sessions:          make(map[string]*session),
		logger:            logger.Nop(),
	}

	// Apply all options
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start builds the filter registry, catalog, rating store and prefetch pool.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	s.logger.Info(ctx, "starting quiz service...")

	registry, err := filter.NewRegistry(filter.Defaults()...)
	if err != nil {
		return fmt.Errorf("build filter registry: %w", err)
	}
	for _, spec := range s.filters {
		if err := registry.Register(spec); err != nil {
			return fmt.Errorf("register filter %q: %w", spec.ID, err)
		}
	}
	s.registry = registry
	s.catalog = catalog.New(registry,
		catalog.WithDimensions(s.dimensions...),
		catalog.WithLookup(s.lookup),
		catalog.WithLogger(s.logger.Named("catalog")),
	)

	if s.store == nil {
		s.store = repository.NewMemoryStore()
	}
	s.ratings = repository.NewRatings(s.store)

	if s.prefetchWorkers > 0 {
		if s.fetcher == nil {
			s.fetcher = worker.NewHTTPFetcher(&http.Client{Timeout: s.prefetchTimeout})
		}
		s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.prefetchQueueSize))
		s.pool = worker.NewPool(s.queue, s.fetcher,
			worker.WithWorkers(s.prefetchWorkers),
			worker.WithFetchTimeout(s.prefetchTimeout),
			worker.WithLogger(s.logger.Named("prefetch")),
		)
		poolCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		s.cancel = cancel
		s.pool.Start(poolCtx)
	}

	s.started = true
	s.logger.Info(ctx, "quiz service started",
		logger.Int("filters", len(registry.List())),
		logger.Strings("dimensions", s.dimensions),
		logger.Int("prefetchWorkers", s.prefetchWorkers),
	)
	return nil
}

// Stop disposes every session, drains prefetching and closes the store.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.logger.Info(ctx, "stopping quiz service...")

	for id, sess := range s.sessions {
		sess.mu.Lock()
		sess.engine.Dispose(ctx)
		sess.mu.Unlock()
		delete(s.sessions, id)
	}
	metrics.UpdateActiveSessions(0)

	var errs []error
	if s.pool != nil {
		errs = append(errs, s.pool.Shutdown(ctx))
		s.cancel()
	}
	if s.store != nil {
		errs = append(errs, s.store.Close())
	}

	s.started = false
	s.logger.Info(ctx, "quiz service stopped")
	return errors.Join(errs...)
}

// LoadCatalog replaces the shared catalog. Sessions keep their rating; rounds
// in progress finish on the view they started with.
func (s *Service) LoadCatalog(ctx context.Context, items []model.Item) (catalog.LoadStats, error) {
	cat, err := s.sharedCatalog()
	if err != nil {
		return catalog.LoadStats{}, err
	}
	return cat.Load(ctx, items)
}

// Filters lists the registered filter specs.
func (s *Service) Filters() []filter.Spec {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.registry == nil {
		return nil
	}
	return s.registry.List()
}

// View returns the filtered view for filterID.
func (s *Service) View(ctx context.Context, filterID string) (*catalog.View, error) {
	cat, err := s.sharedCatalog()
	if err != nil {
		return nil, err
	}
	return cat.View(ctx, filterID)
}

// CreateSession opens a session. A non-empty playerID restores and persists
// that player's rating.
func (s *Service) CreateSession(ctx context.Context, playerID string) (SessionInfo, error) {
	// Rating I/O happens outside s.mu.
	s.mu.RLock()
	ratings, ok := s.ratings, s.started
	s.mu.RUnlock()
	if !ok {
		return SessionInfo{}, ErrNotStarted
	}

	var (
		snapshot rating.Snapshot
		restored bool
	)
	if playerID != "" {
		snap, err := ratings.Load(ctx, playerID)
		switch {
		case err == nil:
			snapshot, restored = snap, true
		case errors.Is(err, repository.ErrNotFound):
		case errors.Is(err, rating.ErrInvalidSnapshot):
			s.logger.Warn(ctx, "discarding stored rating", logger.String("player", playerID), logger.Error(err))
		default:
			return SessionInfo{}, fmt.Errorf("load rating for %q: %w", playerID, err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return SessionInfo{}, ErrNotStarted
	}
	s.created++
	id := uuid.NewString()
	e := engine.New(s.catalog, s.engineOptions(id, playerID, s.created)...)
	if restored {
		if err := e.RestoreRating(snapshot); err != nil {
			return SessionInfo{}, fmt.Errorf("restore rating for %q: %w", playerID, err)
		}
	}
	s.sessions[id] = &session{id: id, player: playerID, engine: e, created: time.Now()}
	metrics.UpdateActiveSessions(len(s.sessions))

	s.logger.Info(ctx, "session created",
		logger.String("session", id),
		logger.String("player", playerID),
		logger.Bool("restored", restored),
		logger.Int("rating", e.Rating()),
	)
	return SessionInfo{ID: id, PlayerID: playerID, Rating: e.Rating(), Restored: restored}, nil
}

func (s *Service) engineOptions(id, playerID string, n int64) []engine.Option {
	opts := []engine.Option{
		engine.WithDimensions(s.dimensions...),
		engine.WithRoundLength(s.roundLength),
		engine.WithMaxRebuilds(s.maxRebuilds),
		engine.WithSelectorOptions(
			selection.WithRecencySize(s.recencySize),
			selection.WithWeighting(s.weightCap, s.rareBonus),
		),
		engine.WithRatingOptions(
			rating.WithInitial(s.initialRating),
			rating.WithKFactors(s.kCorrect, s.kIncorrect),
			rating.WithBaseline(s.baseline),
		),
		engine.WithLogger(s.logger.Named("engine").Named(id)),
	}
	if s.seed != 0 {
		opts = append(opts, engine.WithSeed(s.seed+n))
	}
	if s.pool != nil {
		opts = append(opts, engine.WithPrefetcher(s.pool))
	}
	if playerID != "" {
		ratings, log := s.ratings, s.logger
		opts = append(opts, engine.WithRatingListener(func(ctx context.Context, snap rating.Snapshot) {
			// A snapshot holding only the origin point is a reset; forget the player.
			if len(snap.History) <= 1 {
				if err := ratings.Delete(ctx, playerID); err != nil {
					log.Error(ctx, "failed to forget rating", logger.String("player", playerID), logger.Error(err))
				}
				return
			}
			if err := ratings.Save(ctx, playerID, snap); err != nil {
				log.Error(ctx, "failed to persist rating", logger.String("player", playerID), logger.Error(err))
			}
		}))
	}
	return opts
}

// CloseSession disposes a session.
func (s *Service) CloseSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	sess, ok := s.sessions[sessionID]
	if ok {
		delete(s.sessions, sessionID)
		metrics.UpdateActiveSessions(len(s.sessions))
	}
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}

	sess.mu.Lock()
	sess.engine.Dispose(ctx)
	sess.mu.Unlock()
	s.logger.Info(ctx, "session closed", logger.String("session", sessionID), logger.Duration("age", time.Since(sess.created)))
	return nil
}

// StartRound begins a round on filterID, or on the session's active filter when empty.
func (s *Service) StartRound(ctx context.Context, sessionID, filterID string) (*engine.Question, error) {
	var q *engine.Question
	err := s.withSession(sessionID, func(e *engine.Engine) error {
		var err error
		q, err = e.StartRound(ctx, filterID)
		return err
	})
	return q, err
}

// CurrentQuestion returns the question awaiting an answer.
func (s *Service) CurrentQuestion(_ context.Context, sessionID string) (*engine.Question, error) {
	var q *engine.Question
	err := s.withSession(sessionID, func(e *engine.Engine) error {
		cur, ok := e.CurrentQuestion()
		if !ok {
			return ErrNoQuestion
		}
		q = cur
		return nil
	})
	return q, err
}

// SubmitAnswer scores value against the current question.
func (s *Service) SubmitAnswer(ctx context.Context, sessionID, value string) (engine.Answer, error) {
	var ans engine.Answer
	err := s.withSession(sessionID, func(e *engine.Engine) error {
		var err error
		ans, err = e.SubmitAnswer(ctx, value)
		return err
	})
	return ans, err
}

// Status reports round progress; the summary is set once the round completed.
func (s *Service) Status(_ context.Context, sessionID string) (Status, error) {
	var st Status
	err := s.withSession(sessionID, func(e *engine.Engine) error {
		answered, total := e.Progress()
		st = Status{
			Status:   e.Status(),
			Filter:   e.ActiveFilter(),
			Answered: answered,
			Total:    total,
			Rating:   e.Rating(),
		}
		if st.Status == round.Complete {
			sum, err := e.Summary()
			if err != nil {
				return err
			}
			st.Summary = &sum
		}
		return nil
	})
	return st, err
}

// SwitchFilter makes filterID active and returns the session to Idle.
func (s *Service) SwitchFilter(ctx context.Context, sessionID, filterID string) error {
	return s.withSession(sessionID, func(e *engine.Engine) error {
		return e.SwitchFilter(ctx, filterID)
	})
}

// Rating returns the session's rating and history.
func (s *Service) Rating(_ context.Context, sessionID string) (rating.Snapshot, error) {
	var snap rating.Snapshot
	err := s.withSession(sessionID, func(e *engine.Engine) error {
		snap = e.RatingHistory()
		return nil
	})
	return snap, err
}

// ResetRating returns the session's rating to its initial value.
func (s *Service) ResetRating(ctx context.Context, sessionID string) (rating.Snapshot, error) {
	var snap rating.Snapshot
	err := s.withSession(sessionID, func(e *engine.Engine) error {
		if err := e.ResetRating(ctx); err != nil {
			return err
		}
		snap = e.RatingHistory()
		return nil
	})
	return snap, err
}

// AssetState reports the prefetch state of asset.
func (s *Service) AssetState(asset string) worker.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.pool == nil {
		return worker.Unknown
	}
	return s.pool.Warm(asset)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":         s.started,
		"sessions":        len(s.sessions),
		"dimensions":      s.dimensions,
		"roundLength":     s.roundLength,
		"prefetchWorkers": s.prefetchWorkers,
	}

	if s.started {
		stats["catalogVersion"] = s.catalog.Version()
		stats["catalogItems"] = s.catalog.Len()
		stats["filters"] = len(s.registry.List())
		if n, err := s.store.Count(context.Background()); err == nil {
			stats["storedRatings"] = n
		}
		if s.queue != nil {
			stats["prefetchQueueLength"] = s.queue.Len()
			metrics.UpdatePrefetchQueueSize(s.queue.Len())
		}
		metrics.UpdateActiveSessions(len(s.sessions))
	}

	return stats
}

// Sessions returns the number of open sessions.
func (s *Service) Sessions() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *Service) sharedCatalog() (*catalog.Catalog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	return s.catalog, nil
}

func (s *Service) withSession(id string, fn func(*engine.Engine) error) error {
	s.mu.RLock()
	started := s.started
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !started {
		return ErrNotStarted
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	err := fn(sess.engine)
	if errors.Is(err, engine.ErrDisposed) {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return err
}
