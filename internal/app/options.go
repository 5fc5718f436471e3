package service

import (
	"time"

	"github.com/okian/kunstquiz/internal/adapters/mq/worker"
	"github.com/okian/kunstquiz/internal/adapters/repository"
	"github.com/okian/kunstquiz/internal/domain/filter"
	"github.com/okian/kunstquiz/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithStore persists player ratings in store. The service closes it on Stop.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithFilters registers extra filter specs on top of the built-in ones.
// A spec reusing a built-in id replaces it.
func WithFilters(specs ...filter.Spec) Option {
	return func(s *Service) {
		s.filters = append(s.filters, specs...)
	}
}

// WithLookup sets the side lookup table consulted by lookup filters.
func WithLookup(l filter.Lookup) Option {
	return func(s *Service) {
		s.lookup = l
	}
}

// WithDimensions sets the attributes questions are asked about.
func WithDimensions(dims ...string) Option {
	return func(s *Service) {
		if len(dims) > 0 {
			s.dimensions = append([]string(nil), dims...)
		}
	}
}

// WithRoundLength sets the number of questions per round.
func WithRoundLength(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.roundLength = n
		}
	}
}

// WithRecencySize sets how many recent grouping keys are avoided.
func WithRecencySize(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.recencySize = n
		}
	}
}

// WithWeighting sets the selection weight cap and rare key bonus.
func WithWeighting(weightCap, rareBonus float64) Option {
	return func(s *Service) {
		s.weightCap, s.rareBonus = weightCap, rareBonus
	}
}

// WithMaxRebuilds bounds question rebuild attempts.
func WithMaxRebuilds(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxRebuilds = n
		}
	}
}

// WithRating sets the initial rating, K factors and expected-score baseline.
func WithRating(initial, kCorrect, kIncorrect int, baseline float64) Option {
	return func(s *Service) {
		s.initialRating = initial
		s.kCorrect, s.kIncorrect = kCorrect, kIncorrect
		s.baseline = baseline
	}
}

// WithPrefetch configures asset prefetching. Zero workers disables it.
func WithPrefetch(workers, queueSize int, timeout time.Duration) Option {
	return func(s *Service) {
		if workers >= 0 {
			s.prefetchWorkers = workers
		}
		if queueSize > 0 {
			s.prefetchQueueSize = queueSize
		}
		if timeout > 0 {
			s.prefetchTimeout = timeout
		}
	}
}

// WithFetcher replaces the HTTP asset fetcher used by prefetch workers.
func WithFetcher(f worker.Fetcher) Option {
	return func(s *Service) {
		if f != nil {
			s.fetcher = f
		}
	}
}

// WithSeed makes session randomness reproducible. Zero keeps time-based seeding.
func WithSeed(seed int64) Option {
	return func(s *Service) {
		s.seed = seed
	}
}
