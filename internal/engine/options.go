package engine

import (
	"math/rand"

	"github.com/okian/kunstquiz/internal/domain/rating"
	"github.com/okian/kunstquiz/internal/domain/selection"
	"github.com/okian/kunstquiz/pkg/logger"
)

// Option configures an Engine.
type Option func(*Engine)

// WithRand injects the random source shared by selection, dimension choice
// and option shuffling.
func WithRand(rng *rand.Rand) Option {
	return func(e *Engine) {
		if rng != nil {
			e.rng = rng
		}
	}
}

// WithSeed seeds a private random source. Zero keeps the clock seed.
func WithSeed(seed int64) Option {
	return func(e *Engine) {
		if seed != 0 {
			e.rng = rand.New(rand.NewSource(seed)) //nolint:gosec // quiz draws, not crypto
		}
	}
}

// WithDimensions restricts the dimensions questions may ask about.
func WithDimensions(dims ...string) Option {
	return func(e *Engine) {
		if len(dims) > 0 {
			e.dimensions = append([]string(nil), dims...)
		}
	}
}

// WithRoundLength sets the number of attempts per round.
func WithRoundLength(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.roundLength = n
		}
	}
}

// WithSelectorOptions passes options to the weighted selector.
func WithSelectorOptions(opts ...selection.Option) Option {
	return func(e *Engine) {
		e.selectorOpts = append(e.selectorOpts, opts...)
	}
}

// WithRatingOptions passes options to the rating tracker.
func WithRatingOptions(opts ...rating.Option) Option {
	return func(e *Engine) {
		e.ratingOpts = append(e.ratingOpts, opts...)
	}
}

// WithRatingListener registers fn to receive a snapshot after every rating change.
func WithRatingListener(fn RatingListener) Option {
	return func(e *Engine) {
		e.listener = fn
	}
}

// WithPrefetcher offers each question's asset to p.
func WithPrefetcher(p Prefetcher) Option {
	return func(e *Engine) {
		e.prefetcher = p
	}
}

// WithMaxRebuilds bounds how many items may be skipped while building one question.
func WithMaxRebuilds(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxRebuilds = n
		}
	}
}

// WithLogger sets the engine logger.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}
