package selection

import (
	"math/rand"

	"github.com/okian/kunstquiz/internal/domain/recency"
	"github.com/okian/kunstquiz/pkg/logger"
)

// Option configures a Selector.
type Option func(*Selector)

// WithRand injects the random source, e.g. a seeded one in tests.
func WithRand(rng *rand.Rand) Option {
	return func(s *Selector) {
		if rng != nil {
			s.rng = rng
		}
	}
}

// WithRecencySize sets the recency window capacity.
func WithRecencySize(size int) Option {
	return func(s *Selector) {
		s.window = recency.New(recency.WithCapacity(size))
	}
}

// WithWeighting sets the weight cap and the bonus for rare keys.
func WithWeighting(weightCap, rareBonus float64) Option {
	return func(s *Selector) {
		if weightCap >= 1 {
			s.weightCap = weightCap
		}
		if rareBonus > 0 {
			s.rareBonus = rareBonus
		}
	}
}

// WithLogger sets the selector logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Selector) {
		if l != nil {
			s.log = l
		}
	}
}
