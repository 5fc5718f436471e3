// Package catalog indexes the loaded item set and serves category-filtered views.
//
// Views are computed lazily per (filter, version) and cached until the next
// load or Invalidate. The catalog is shared by every session; reads take a
// read lock and only loads and cache fills write.
package catalog

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/okian/kunstquiz/internal/domain/filter"
	"github.com/okian/kunstquiz/internal/domain/model"
	"github.com/okian/kunstquiz/pkg/logger"
	"github.com/okian/kunstquiz/pkg/metrics"
)

// View is the filtered subset of the catalog plus its aggregates.
type View struct {
	FilterID     string
	Version      uint64
	Items        []model.Item
	KeyCounts    map[string]int
	DistinctKeys int
	MaxKeyCount  int
}

// Count returns the number of items in the view.
func (v *View) Count() int { return len(v.Items) }

// Empty reports whether the view has no items.
func (v *View) Empty() bool { return len(v.Items) == 0 }

// LoadStats reports how a Load call went.
type LoadStats struct {
	Version  uint64
	Usable   int
	Rejected int
}

// Catalog holds the working item set.
type Catalog struct {
	mu         sync.RWMutex
	registry   *filter.Registry
	dimensions []string
	lookup     filter.Lookup
	log        logger.Logger

	items    []model.Item
	version  uint64
	keyRank  map[string]int
	distinct map[string][]string
	views    map[string]*View
}

// New returns an empty catalog evaluating filters from registry.
func New(registry *filter.Registry, opts ...Option) *Catalog {
	c := &Catalog{
		registry:   registry,
		dimensions: []string{model.DimensionGroup},
		log:        logger.Nop(),
		views:      make(map[string]*View),
		distinct:   make(map[string][]string),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Load replaces the working set. Items without an ID, a grouping key, or a
// value for any configured dimension are dropped. When nothing usable
// remains the previous working set is kept and ErrEmptyCatalog returned.
func (c *Catalog) Load(ctx context.Context, items []model.Item) (LoadStats, error) {
	usable := make([]model.Item, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		if !c.usable(it) {
			continue
		}
		it.ID = strings.TrimSpace(it.ID)
		if _, dup := seen[it.ID]; dup {
			continue
		}
		seen[it.ID] = struct{}{}
		it.GroupKey = strings.TrimSpace(it.GroupKey)
		usable = append(usable, it)
	}
	rejected := len(items) - len(usable)
	if len(usable) == 0 {
		c.log.Warn(ctx, "catalog load rejected every item", logger.Int("rejected", rejected))
		return LoadStats{Rejected: rejected}, ErrEmptyCatalog
	}

	rank := rankKeys(usable)
	distinct := make(map[string][]string, len(c.dimensions))
	for _, d := range c.dimensions {
		distinct[d] = distinctValues(usable, d)
	}

	c.mu.Lock()
	c.items = usable
	c.version++
	c.keyRank = rank
	c.distinct = distinct
	c.views = make(map[string]*View)
	stats := LoadStats{Version: c.version, Usable: len(usable), Rejected: rejected}
	c.mu.Unlock()

	metrics.UpdateCatalog(stats.Usable, stats.Rejected)
	c.log.Info(ctx, "catalog loaded",
		logger.Int("usable", stats.Usable),
		logger.Int("rejected", stats.Rejected),
		logger.Int("keys", len(rank)),
		logger.Int64("version", int64(stats.Version)))
	return stats, nil
}

func (c *Catalog) usable(it model.Item) bool {
	if strings.TrimSpace(it.ID) == "" || strings.TrimSpace(it.GroupKey) == "" {
		return false
	}
	for _, d := range c.dimensions {
		if it.HasValue(d) {
			return true
		}
	}
	return false
}

// View returns the items matching filterID for the current version.
func (c *Catalog) View(ctx context.Context, filterID string) (*View, error) {
	matcher, err := c.registry.Matcher(filterID)
	if err != nil {
		return nil, err
	}

	c.mu.RLock()
	if v, ok := c.views[filterID]; ok {
		c.mu.RUnlock()
		metrics.RecordViewCache(true)
		return v, nil
	}
	items, version := c.items, c.version
	aux := filter.Aux{Lookup: c.lookup, KeyRank: c.keyRank}
	c.mu.RUnlock()
	if version == 0 {
		return nil, ErrEmptyCatalog
	}

	metrics.RecordViewCache(false)
	v := &View{FilterID: filterID, Version: version, KeyCounts: make(map[string]int)}
	for _, it := range items {
		if !matcher.Match(it, aux) {
			continue
		}
		v.Items = append(v.Items, it)
		v.KeyCounts[it.GroupKey]++
	}
	v.DistinctKeys = len(v.KeyCounts)
	for _, n := range v.KeyCounts {
		if n > v.MaxKeyCount {
			v.MaxKeyCount = n
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	// A concurrent load may have replaced the working set; do not cache a stale view.
	if c.version == version {
		if cached, ok := c.views[filterID]; ok {
			return cached, nil
		}
		c.views[filterID] = v
	}
	c.log.Debug(ctx, "filtered view built",
		logger.String("filter", filterID),
		logger.Int("items", v.Count()),
		logger.Int("keys", v.DistinctKeys))
	return v, nil
}

// Invalidate drops every cached view. The next View call recomputes.
func (c *Catalog) Invalidate() {
	c.mu.Lock()
	c.views = make(map[string]*View)
	c.mu.Unlock()
}

// DistinctValues returns the sorted catalog-wide distinct values of dimension.
func (c *Catalog) DistinctValues(dimension string) []string {
	c.mu.RLock()
	vs, ok := c.distinct[dimension]
	items := c.items
	c.mu.RUnlock()
	if ok {
		return vs
	}
	return distinctValues(items, dimension)
}

// Version increments on every successful load. Zero means nothing is loaded.
func (c *Catalog) Version() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.version
}

// Len returns the number of usable items.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Dimensions returns the configured question dimensions.
func (c *Catalog) Dimensions() []string {
	return append([]string(nil), c.dimensions...)
}

// Filters lists the registered filters.
func (c *Catalog) Filters() []filter.Spec {
	return c.registry.List()
}

// rankKeys orders grouping keys by item count, ties broken by key.
func rankKeys(items []model.Item) map[string]int {
	counts := make(map[string]int)
	for _, it := range items {
		counts[it.GroupKey]++
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})
	rank := make(map[string]int, len(keys))
	for i, k := range keys {
		rank[k] = i
	}
	return rank
}

// distinctValues collects each item's answer value for dimension. Values
// differing only in case keep the first spelling seen.
func distinctValues(items []model.Item, dimension string) []string {
	set := make(map[string]string)
	for _, it := range items {
		v := it.Value(dimension)
		if v == "" {
			continue
		}
		if key := strings.ToLower(v); set[key] == "" {
			set[key] = v
		}
	}
	out := make([]string, 0, len(set))
	for _, v := range set {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
