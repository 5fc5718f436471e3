// Package engine composes catalog, selection, distractors, round and rating
// into one player session.
//
// Lifecycle: New -> LoadCatalog (or a pre-loaded shared catalog) ->
// StartRound -> SubmitAnswer ... -> Dispose. An Engine is single-threaded;
// callers sharing one across goroutines must serialize access.
package engine

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/okian/kunstquiz/internal/domain/catalog"
	"github.com/okian/kunstquiz/internal/domain/distractor"
	"github.com/okian/kunstquiz/internal/domain/filter"
	"github.com/okian/kunstquiz/internal/domain/model"
	"github.com/okian/kunstquiz/internal/domain/rating"
	"github.com/okian/kunstquiz/internal/domain/round"
	"github.com/okian/kunstquiz/internal/domain/selection"
	"github.com/okian/kunstquiz/pkg/logger"
	"github.com/okian/kunstquiz/pkg/metrics"
)

const defaultMaxRebuilds = 8

// Question is what the player sees. The correct value is never exposed.
type Question struct {
	ItemID    string   `json:"item_id"`
	Subject   string   `json:"subject"`
	Asset     string   `json:"asset,omitempty"`
	Dimension string   `json:"dimension"`
	Options   []string `json:"options"`
	Number    int      `json:"number"`
	Total     int      `json:"total"`
	FilterID  string   `json:"filter"`
}

// Answer is the result of SubmitAnswer.
type Answer struct {
	IsCorrect    bool           `json:"is_correct"`
	CorrectValue string         `json:"correct_value"`
	RatingDelta  int            `json:"rating_delta"`
	Rating       int            `json:"rating"`
	RoundStatus  round.Status   `json:"status"`
	Summary      *round.Summary `json:"summary,omitempty"`
	Next         *Question      `json:"next,omitempty"`
}

// RatingListener receives the rating after every change, e.g. to persist it.
type RatingListener func(ctx context.Context, snapshot rating.Snapshot)

// Prefetcher warms assets ahead of display. Prefetch must not block; it
// reports whether the asset was accepted.
type Prefetcher interface {
	Prefetch(ctx context.Context, itemID, asset string) bool
}

type pending struct {
	question Question
	item     model.Item
	correct  string
}

// Engine is one player's quiz session.
type Engine struct {
	catalog      *catalog.Catalog
	rng          *rand.Rand
	dimensions   []string
	roundLength  int
	maxRebuilds  int
	selectorOpts []selection.Option
	ratingOpts   []rating.Option
	listener     RatingListener
	prefetcher   Prefetcher
	log          logger.Logger

	selector *selection.Selector
	tracker  *rating.Tracker
	round    *round.Round

	filterID string
	view     *catalog.View
	current  *pending
	disposed bool
}

// New creates an engine over cat. The catalog may be shared with other engines.
func New(cat *catalog.Catalog, opts ...Option) *Engine {
	e := &Engine{
		catalog:     cat,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())), //nolint:gosec // quiz draws, not crypto
		dimensions:  cat.Dimensions(),
		roundLength: round.DefaultLength,
		maxRebuilds: defaultMaxRebuilds,
		log:         logger.Nop(),
		filterID:    filter.AllID,
	}
	for _, opt := range opts {
		opt(e)
	}

	e.selector = selection.New(append([]selection.Option{
		selection.WithRand(e.rng),
		selection.WithLogger(e.log),
	}, e.selectorOpts...)...)
	e.tracker = rating.New(e.ratingOpts...)
	e.round = round.New(e.roundLength)
	return e
}

// LoadCatalog replaces the catalog contents. Any round in progress is
// abandoned and recency is forgotten.
func (e *Engine) LoadCatalog(ctx context.Context, items []model.Item) (catalog.LoadStats, error) {
	if e.disposed {
		return catalog.LoadStats{}, ErrDisposed
	}
	stats, err := e.catalog.Load(ctx, items)
	if err != nil {
		return stats, err
	}
	e.abandon(ctx, "catalog reloaded")
	e.selector.Reset()
	e.view = nil
	return stats, nil
}

// FilteredView returns the view for filterID.
func (e *Engine) FilteredView(ctx context.Context, filterID string) (*catalog.View, error) {
	if e.disposed {
		return nil, ErrDisposed
	}
	return e.catalog.View(ctx, filterID)
}

// StartRound begins a round on filterID, or on the active filter when empty.
// A round already in progress is abandoned.
func (e *Engine) StartRound(ctx context.Context, filterID string) (*Question, error) {
	if e.disposed {
		return nil, ErrDisposed
	}
	if filterID == "" {
		filterID = e.filterID
	}
	view, err := e.catalog.View(ctx, filterID)
	if err != nil {
		return nil, err
	}
	if view.Empty() {
		return nil, fmt.Errorf("%w: filter %q matches no item", selection.ErrNoCandidates, filterID)
	}

	e.abandon(ctx, "round restarted")
	e.filterID = filterID
	e.view = view
	e.round.Start(filterID)

	q, err := e.nextQuestion(ctx)
	if err != nil {
		e.round.Abandon()
		return nil, err
	}
	metrics.RecordRoundStarted(filterID)
	e.log.Info(ctx, "round started",
		logger.String("filter", filterID),
		logger.Int("items", view.Count()),
		logger.Int("keys", view.DistinctKeys))
	return q, nil
}

// CurrentQuestion returns the question awaiting an answer.
func (e *Engine) CurrentQuestion() (*Question, bool) {
	if e.disposed || e.current == nil {
		return nil, false
	}
	q := e.current.question
	return &q, true
}

// SubmitAnswer scores value against the current question, updates rating
// and round, and prepares the next question unless the round completed.
// When the next question cannot be built the round is abandoned and the
// answer is returned together with the error.
func (e *Engine) SubmitAnswer(ctx context.Context, value string) (Answer, error) {
	if e.disposed {
		return Answer{}, ErrDisposed
	}
	if e.round.Status() != round.InProgress || e.current == nil {
		return Answer{}, fmt.Errorf("%w: no question awaiting an answer (round %s)", round.ErrInvalidTransition, e.round.Status())
	}

	p := e.current
	selected := strings.TrimSpace(value)
	correct := strings.EqualFold(selected, p.correct)
	done, err := e.round.Record(round.Attempt{
		Item:          p.item,
		Dimension:     p.question.Dimension,
		CorrectValue:  p.correct,
		SelectedValue: selected,
		Correct:       correct,
	})
	if err != nil {
		return Answer{}, err
	}
	e.current = nil

	out := e.tracker.RecordOutcome(correct)
	metrics.RecordAnswer(correct, out.Value)
	e.emitRating(ctx)

	ans := Answer{
		IsCorrect:    correct,
		CorrectValue: p.correct,
		RatingDelta:  out.Delta,
		Rating:       out.Value,
		RoundStatus:  e.round.Status(),
	}

	if done {
		s, err := e.round.Summary()
		if err != nil {
			return ans, err
		}
		ans.Summary = &s
		metrics.RecordRoundCompleted(s.Perfect)
		e.log.Info(ctx, "round complete",
			logger.String("filter", s.FilterID),
			logger.Int("correct", s.Correct),
			logger.Bool("perfect", s.Perfect),
			logger.Int("rating", out.Value))
		return ans, nil
	}

	next, err := e.nextQuestion(ctx)
	if err != nil {
		e.abandon(ctx, "next question unavailable")
		ans.RoundStatus = e.round.Status()
		return ans, fmt.Errorf("build next question: %w", err)
	}
	ans.Next = next
	return ans, nil
}

// Status returns the round state.
func (e *Engine) Status() round.Status { return e.round.Status() }

// Progress returns answered and total attempts of the current round.
func (e *Engine) Progress() (answered, total int) {
	return e.round.Answered(), e.round.Length()
}

// Summary returns the result of a completed round.
func (e *Engine) Summary() (round.Summary, error) { return e.round.Summary() }

// Rating returns the current rating value.
func (e *Engine) Rating() int { return e.tracker.Value() }

// RatingHistory returns the rating and its history.
func (e *Engine) RatingHistory() rating.Snapshot { return e.tracker.Snapshot() }

// ActiveFilter returns the filter the next round starts on.
func (e *Engine) ActiveFilter() string { return e.filterID }

// SwitchFilter makes filterID active. A round in progress is abandoned and
// the engine returns to Idle.
func (e *Engine) SwitchFilter(ctx context.Context, filterID string) error {
	if e.disposed {
		return ErrDisposed
	}
	if _, err := e.catalog.View(ctx, filterID); err != nil {
		return err
	}
	e.abandon(ctx, "filter switched")
	e.filterID = filterID
	e.view = nil
	return nil
}

// ResetRating returns the rating to its initial value with a single history point.
func (e *Engine) ResetRating(ctx context.Context) error {
	if e.disposed {
		return ErrDisposed
	}
	e.tracker.Reset()
	e.emitRating(ctx)
	return nil
}

// RestoreRating replaces the rating with a previously emitted snapshot.
func (e *Engine) RestoreRating(s rating.Snapshot) error {
	if e.disposed {
		return ErrDisposed
	}
	return e.tracker.Restore(s)
}

// Dispose releases the session. Further calls return ErrDisposed.
func (e *Engine) Dispose(ctx context.Context) {
	if e.disposed {
		return
	}
	e.abandon(ctx, "disposed")
	e.selector.Reset()
	e.view = nil
	e.listener = nil
	e.prefetcher = nil
	e.disposed = true
}

// abandon drops an in-progress round.
func (e *Engine) abandon(ctx context.Context, reason string) {
	e.current = nil
	if e.round.Abandon() {
		metrics.RecordRoundAbandoned()
		e.log.Debug(ctx, "round abandoned", logger.String("reason", reason))
	}
}

// nextQuestion draws an askable item and builds its options. An item whose
// own values cover every catalog value of the dimension leaves no distractor;
// it is skipped and another drawn, up to maxRebuilds times.
func (e *Engine) nextQuestion(ctx context.Context) (*Question, error) {
	viable := e.viableDimensions()
	if len(viable) == 0 {
		return nil, fmt.Errorf("%w: no dimension has two distinct values", selection.ErrNoCandidates)
	}
	askable := func(it model.Item) bool { return len(askableDimensions(it, viable)) > 0 }

	for i := 0; i < e.maxRebuilds; i++ {
		item, err := e.selector.SelectNextWhere(e.view, askable)
		if err != nil {
			return nil, err
		}
		dims := askableDimensions(item, viable)
		dim := dims[e.rng.Intn(len(dims))]
		correct := item.Value(dim)

		// The item's other values are true too; never offer them as wrong.
		options, err := distractor.Generate(e.rng, e.catalog.DistinctValues(dim), correct, item.Values(dim)...)
		if errors.Is(err, distractor.ErrInsufficientOptions) {
			metrics.RecordQuestionRebuild()
			e.log.Debug(ctx, "question skipped",
				logger.String("item", item.ID), logger.String("dimension", dim))
			continue
		}
		if err != nil {
			return nil, err
		}

		q := Question{
			ItemID:    item.ID,
			Subject:   item.Subject,
			Asset:     item.Asset,
			Dimension: dim,
			Options:   options,
			Number:    e.round.Answered() + 1,
			Total:     e.round.Length(),
			FilterID:  e.filterID,
		}
		e.current = &pending{question: q, item: item, correct: correct}
		metrics.RecordQuestionServed(e.filterID, dim)
		e.offerPrefetch(ctx, item)
		return &q, nil
	}
	return nil, fmt.Errorf("%w: no question after %d attempts", selection.ErrNoCandidates, e.maxRebuilds)
}

// viableDimensions keeps the dimensions with at least two catalog-wide values.
func (e *Engine) viableDimensions() []string {
	out := make([]string, 0, len(e.dimensions))
	for _, d := range e.dimensions {
		if len(e.catalog.DistinctValues(d)) >= 2 {
			out = append(out, d)
		}
	}
	return out
}

func askableDimensions(it model.Item, viable []string) []string {
	var out []string
	for _, d := range viable {
		if it.HasValue(d) {
			out = append(out, d)
		}
	}
	return out
}

func (e *Engine) emitRating(ctx context.Context) {
	if e.listener != nil {
		e.listener(ctx, e.tracker.Snapshot())
	}
}

func (e *Engine) offerPrefetch(ctx context.Context, item model.Item) {
	if e.prefetcher == nil || item.Asset == "" {
		return
	}
	if !e.prefetcher.Prefetch(ctx, item.ID, item.Asset) {
		e.log.Debug(ctx, "asset prefetch dropped", logger.String("item", item.ID))
	}
}
