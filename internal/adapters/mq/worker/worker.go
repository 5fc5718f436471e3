// Package worker drains the prefetch queue and warms assets in the background.
package worker

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/okian/kunstquiz/internal/adapters/mq/queue"
	"github.com/okian/kunstquiz/pkg/logger"
	"github.com/okian/kunstquiz/pkg/metrics"
)

// Default pool configuration constants.
const (
	defaultWorkerCount  = 2
	defaultFetchTimeout = 3 * time.Second
	poolShutdownTimeout = 10 * time.Second
)

// State is the warm-up state of one asset.
type State int

const (
	// Unknown means the asset was never offered.
	Unknown State = iota
	// Pending means a job is queued or running.
	Pending
	// Ready means the asset was fetched successfully.
	Ready
	// Failed means the last fetch failed; a later offer retries it.
	Failed
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// worker processes jobs from the shared queue.
type worker struct {
	pool   *Pool
	name   string
	logger logger.Logger
	done   chan struct{}
}

func (w *worker) run(ctx context.Context) {
	defer close(w.done)

	jobs := w.pool.queue.Dequeue()
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.pool.shutdown:
			return
		case job, ok := <-jobs:
			if !ok {
				return
			}
			metrics.UpdatePrefetchQueueSize(w.pool.queue.Len())
			w.process(ctx, job)
		}
	}
}

func (w *worker) process(ctx context.Context, job queue.Job) {
	start := time.Now()
	fctx, cancel := context.WithTimeout(ctx, w.pool.fetchTimeout)
	err := w.pool.fetcher.Fetch(fctx, job.Asset)
	cancel()
	latency := float64(time.Since(start).Milliseconds())

	metrics.RecordPrefetchResult(err == nil, latency)
	if err != nil {
		w.pool.setState(job.Asset, Failed)
		w.logger.Warn(ctx, "asset prefetch failed",
			logger.String("job", job.ID),
			logger.String("item", job.ItemID),
			logger.Error(err))
		return
	}
	w.pool.setState(job.Asset, Ready)
	w.logger.Debug(ctx, "asset warmed",
		logger.String("item", job.ItemID),
		logger.Duration("queued", start.Sub(job.Enqueued)))
}

// Pool owns the prefetch workers and the per-asset state.
type Pool struct {
	queue        queue.Queue
	fetcher      Fetcher
	workerCount  int
	fetchTimeout time.Duration
	logger       logger.Logger

	mu     sync.RWMutex
	states map[string]State

	workers  []*worker
	started  bool
	shutdown chan struct{}
	once     sync.Once
}

// NewPool creates a prefetch pool over q using fetcher.
func NewPool(q queue.Queue, fetcher Fetcher, opts ...Option) *Pool {
	p := &Pool{
		queue:        q,
		fetcher:      fetcher,
		workerCount:  defaultWorkerCount,
		fetchTimeout: defaultFetchTimeout,
		logger:       logger.Nop(),
		states:       make(map[string]State),
		shutdown:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}

	p.workers = make([]*worker, p.workerCount)
	for i := range p.workers {
		name := "prefetch-" + strconv.Itoa(i)
		p.workers[i] = &worker{pool: p, name: name, logger: p.logger.Named(name), done: make(chan struct{})}
	}
	return p
}

// Start launches the workers.
func (p *Pool) Start(ctx context.Context) {
	p.started = true
	for _, w := range p.workers {
		go w.run(ctx)
	}
	metrics.UpdatePrefetchWorkers(len(p.workers))
	p.logger.Info(ctx, "prefetch workers started", logger.Int("workers", len(p.workers)))
}

// Prefetch offers an asset for warming without blocking. Assets already
// pending or ready are accepted without a new job.
func (p *Pool) Prefetch(ctx context.Context, itemID, asset string) bool {
	if asset == "" {
		return false
	}
	p.mu.Lock()
	switch p.states[asset] {
	case Pending, Ready:
		p.mu.Unlock()
		return true
	}
	p.states[asset] = Pending
	p.mu.Unlock()

	if err := p.queue.Enqueue(ctx, queue.NewJob(itemID, asset)); err != nil {
		p.mu.Lock()
		delete(p.states, asset)
		p.mu.Unlock()
		p.logger.Debug(ctx, "prefetch job dropped", logger.String("item", itemID), logger.Error(err))
		return false
	}
	return true
}

// Warm reports the warm-up state of asset.
func (p *Pool) Warm(asset string) State {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.states[asset]
}

func (p *Pool) setState(asset string, s State) {
	p.mu.Lock()
	p.states[asset] = s
	p.mu.Unlock()
}

// Shutdown closes the queue and waits for workers to stop.
func (p *Pool) Shutdown(ctx context.Context) error {
	var err error
	p.once.Do(func() {
		if cerr := p.queue.Close(); cerr != nil {
			p.logger.Error(ctx, "error closing prefetch queue", logger.Error(cerr))
		}
		close(p.shutdown)
		if !p.started {
			return
		}

		shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
		defer cancel()
		for _, w := range p.workers {
			select {
			case <-w.done:
			case <-shutdownCtx.Done():
				err = fmt.Errorf("prefetch shutdown timed out: %w", shutdownCtx.Err())
				p.logger.Warn(ctx, "worker shutdown timed out", logger.String("worker", w.name))
				return
			}
		}
		metrics.UpdatePrefetchWorkers(0)
	})
	return err
}
