// Package repository persists small keyed documents, such as player rating
// snapshots, behind a minimal key-value interface.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/okian/kunstquiz/internal/domain/rating"
	"github.com/okian/kunstquiz/pkg/metrics"
)

// Store is a key-value store. Values are opaque bytes.
type Store interface {
	// Get returns the value for key or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Put creates or replaces the value for key.
	Put(ctx context.Context, key string, value []byte) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Count returns the number of stored keys.
	Count(ctx context.Context) (int, error)
	// Close releases resources.
	Close() error
}

const ratingPrefix = "rating:"

// Ratings stores rating snapshots per player on top of a Store.
type Ratings struct {
	store Store
}

// NewRatings wraps store.
func NewRatings(store Store) *Ratings {
	return &Ratings{store: store}
}

// Load returns the stored snapshot for player, or ErrNotFound.
func (r *Ratings) Load(ctx context.Context, player string) (rating.Snapshot, error) {
	raw, err := observe("get", func() ([]byte, error) { return r.store.Get(ctx, ratingPrefix+player) })
	if err != nil {
		return rating.Snapshot{}, err
	}
	var s rating.Snapshot
	if err := json.Unmarshal(raw, &s); err != nil {
		return rating.Snapshot{}, fmt.Errorf("decode rating for %s: %w", player, err)
	}
	if err := s.Validate(); err != nil {
		return rating.Snapshot{}, fmt.Errorf("stored rating for %s: %w", player, err)
	}
	return s, nil
}

// Save replaces the stored snapshot for player.
func (r *Ratings) Save(ctx context.Context, player string, s rating.Snapshot) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode rating for %s: %w", player, err)
	}
	_, err = observe("put", func() ([]byte, error) { return nil, r.store.Put(ctx, ratingPrefix+player, raw) })
	return err
}

// Delete forgets player's rating.
func (r *Ratings) Delete(ctx context.Context, player string) error {
	_, err := observe("delete", func() ([]byte, error) { return nil, r.store.Delete(ctx, ratingPrefix+player) })
	return err
}

// observe records latency and failures of one store call. A miss is not a failure.
func observe(op string, fn func() ([]byte, error)) ([]byte, error) {
	start := time.Now()
	out, err := fn()
	metrics.RecordStoreLatency(op, float64(time.Since(start).Microseconds())/1000)
	if err != nil && !errors.Is(err, ErrNotFound) {
		metrics.RecordStoreError(op)
	}
	return out, err
}
