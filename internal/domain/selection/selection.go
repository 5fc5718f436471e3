// Package selection picks the next quiz item from a filtered view.
//
// Keys with few items are favoured by an inverse-frequency weight so that a
// painter with three works shows up almost as often as one with three
// hundred, and the last few keys are skipped so the same painter does not
// come back twice in a row.
package selection

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/okian/kunstquiz/internal/domain/catalog"
	"github.com/okian/kunstquiz/internal/domain/model"
	"github.com/okian/kunstquiz/internal/domain/recency"
	"github.com/okian/kunstquiz/pkg/logger"
	"github.com/okian/kunstquiz/pkg/metrics"
)

// Weighting defaults.
const (
	DefaultWeightCap = 3.0
	DefaultRareBonus = 1.2
	// RareThreshold is the item count at or below which a key gets the bonus.
	RareThreshold = 2
)

// Weights maps a grouping key to its sampling weight.
type Weights map[string]float64

// ComputeWeights returns min((max/c)^(1/3), weightCap) per key, multiplied by
// rareBonus when the key has at most RareThreshold items. The bonus is
// applied after the cap.
func ComputeWeights(keyCounts map[string]int, weightCap, rareBonus float64) Weights {
	maxCount := 0
	for _, c := range keyCounts {
		if c > maxCount {
			maxCount = c
		}
	}
	w := make(Weights, len(keyCounts))
	for k, c := range keyCounts {
		if c <= 0 {
			continue
		}
		v := math.Min(math.Cbrt(float64(maxCount)/float64(c)), weightCap)
		if c <= RareThreshold {
			v *= rareBonus
		}
		w[k] = v
	}
	return w
}

type tableKey struct {
	filterID string
	version  uint64
}

// Selector draws items by weight while avoiding recent keys.
// It is not safe for concurrent use.
type Selector struct {
	rng       *rand.Rand
	window    *recency.Window
	weightCap float64
	rareBonus float64
	log       logger.Logger

	tableFor tableKey
	table    Weights
}

// New creates a selector. Without WithRand it seeds from the clock.
func New(opts ...Option) *Selector {
	s := &Selector{
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())), //nolint:gosec // quiz draws, not crypto
		window:    recency.New(),
		weightCap: DefaultWeightCap,
		rareBonus: DefaultRareBonus,
		log:       logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SelectNext draws the next item from view.
func (s *Selector) SelectNext(view *catalog.View) (model.Item, error) {
	return s.SelectNextWhere(view, nil)
}

// SelectNextWhere draws from the view items accepted by eligible (nil accepts all).
func (s *Selector) SelectNextWhere(view *catalog.View, eligible func(model.Item) bool) (model.Item, error) {
	if view == nil || view.Empty() {
		return model.Item{}, ErrNoCandidates
	}

	candidates := view.Items
	if eligible != nil {
		candidates = make([]model.Item, 0, len(view.Items))
		for _, it := range view.Items {
			if eligible(it) {
				candidates = append(candidates, it)
			}
		}
	}
	if len(candidates) == 0 {
		return model.Item{}, ErrNoCandidates
	}

	distinct := countKeys(candidates)
	if distinct <= 1 {
		// Weighting and recency are meaningless with a single key.
		return candidates[s.rng.Intn(len(candidates))], nil
	}

	pool := make([]model.Item, 0, len(candidates))
	for _, it := range candidates {
		if !s.window.Contains(it.GroupKey) {
			pool = append(pool, it)
		}
	}
	if len(pool) == 0 {
		s.window.Clear()
		metrics.RecordRecencyReset()
		s.log.Debug(context.Background(), "recency window cleared",
			logger.String("filter", view.FilterID), logger.Int("keys", distinct))
		pool = candidates
	}

	picked := s.draw(pool, s.weights(view))
	// At most distinct-1 keys are held back so at least one key stays drawable.
	s.window.Add(picked.GroupKey, distinct-1)
	return picked, nil
}

// draw walks cumulative weights against a uniform draw in [0, total).
func (s *Selector) draw(pool []model.Item, w Weights) model.Item {
	total := 0.0
	for _, it := range pool {
		total += w[it.GroupKey]
	}
	if total <= 0 {
		return pool[s.rng.Intn(len(pool))]
	}
	target := s.rng.Float64() * total
	cum := 0.0
	for _, it := range pool {
		cum += w[it.GroupKey]
		if cum >= target {
			return it
		}
	}
	return pool[len(pool)-1]
}

// weights returns the cached table for view, recomputing it when the view changed.
func (s *Selector) weights(view *catalog.View) Weights {
	key := tableKey{filterID: view.FilterID, version: view.Version}
	if s.table == nil || s.tableFor != key {
		s.table = ComputeWeights(view.KeyCounts, s.weightCap, s.rareBonus)
		s.tableFor = key
	}
	return s.table
}

// Weights exposes the weight table for view.
func (s *Selector) Weights(view *catalog.View) Weights {
	return s.weights(view)
}

// Recent returns the keys currently held back, newest first.
func (s *Selector) Recent() []string {
	return s.window.Keys()
}

// Reset forgets recent keys and the cached weight table.
func (s *Selector) Reset() {
	s.window.Clear()
	s.table = nil
	s.tableFor = tableKey{}
}

func countKeys(items []model.Item) int {
	seen := make(map[string]struct{})
	for _, it := range items {
		seen[it.GroupKey] = struct{}{}
	}
	return len(seen)
}
