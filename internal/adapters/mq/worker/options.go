package worker

import (
	"time"

	"github.com/okian/kunstquiz/pkg/logger"
)

// Option applies a configuration option to the Pool.
type Option func(*Pool)

// WithWorkers sets the number of workers draining the queue.
func WithWorkers(n int) Option {
	return func(p *Pool) {
		if n > 0 {
			p.workerCount = n
		}
	}
}

// WithFetchTimeout bounds one asset fetch.
func WithFetchTimeout(d time.Duration) Option {
	return func(p *Pool) {
		if d > 0 {
			p.fetchTimeout = d
		}
	}
}

// WithLogger sets a custom logger for the pool and its workers.
func WithLogger(l logger.Logger) Option {
	return func(p *Pool) {
		if l != nil {
			p.logger = l
		}
	}
}
