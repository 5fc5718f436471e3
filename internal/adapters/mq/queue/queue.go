// Package queue holds pending asset prefetch jobs.
//
// Enqueue never blocks: a prefetch is a hint, so when the queue is full the
// job is dropped and the caller carries on.
package queue

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/kunstquiz/pkg/metrics"
)

const defaultCapacity = 256

// Job asks a worker to warm one asset.
type Job struct {
	ID       string
	ItemID   string
	Asset    string
	Enqueued time.Time
}

// NewJob stamps a job with a fresh ID and the current time.
func NewJob(itemID, asset string) Job {
	return Job{ID: uuid.NewString(), ItemID: itemID, Asset: asset, Enqueued: time.Now()}
}

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a job, failing with ErrFull or ErrClosed instead of blocking.
	Enqueue(ctx context.Context, j Job) error
	// Dequeue returns the channel workers read from. It is closed by Close.
	Dequeue() <-chan Job
	// Len returns the number of pending jobs.
	Len() int
	// Close stops accepting jobs. Pending jobs remain readable.
	Close() error
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	jobs     chan Job
	capacity int
	mu       sync.RWMutex
	closed   bool
}

// NewInMemoryQueue creates a queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{capacity: defaultCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.jobs = make(chan Job, q.capacity)
	metrics.UpdatePrefetchQueueSize(0)
	return q
}

// Enqueue adds j without blocking.
func (q *InMemoryQueue) Enqueue(ctx context.Context, j Job) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordPrefetchDropped("closed")
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		metrics.RecordPrefetchDropped("cancelled")
		return err
	}

	select {
	case q.jobs <- j:
		metrics.RecordPrefetchEnqueued()
		metrics.UpdatePrefetchQueueSize(len(q.jobs))
		return nil
	default:
		metrics.RecordPrefetchDropped("full")
		return ErrFull
	}
}

// Dequeue returns the receive side of the job channel.
func (q *InMemoryQueue) Dequeue() <-chan Job {
	return q.jobs
}

// Len returns the current number of queued jobs.
func (q *InMemoryQueue) Len() int {
	return len(q.jobs)
}

// Capacity returns the configured bound.
func (q *InMemoryQueue) Capacity() int {
	return q.capacity
}

// Close gracefully shuts down the queue.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.jobs)
	q.closed = true
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
