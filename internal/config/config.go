// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - New() builds a Config with defaults; Load(ctx) layers file, .env and env on top.
// - Validation failures wrap ErrInvalidConfig, read failures wrap ErrLoadConfig.
package config

import (
	"runtime"

	"github.com/okian/kunstquiz/internal/domain/filter"
)

// Store drivers understood by the service.
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
)

// Catalog formats understood by the source adapter.
const (
	FormatPaintings = "paintings"
	FormatHoldings  = "holdings"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat selects text or json log lines.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`
	// CORSOrigins lists browser origins allowed to call the API.
	CORSOrigins []string `koanf:"cors_origins"`

	// CatalogPath points at the JSON item file loaded at startup.
	CatalogPath string `koanf:"catalog_path"`
	// CatalogFormat is paintings or holdings.
	CatalogFormat string `koanf:"catalog_format"`
	// LookupPath optionally points at the artist side lookup table.
	LookupPath string `koanf:"lookup_path"`

	// Dimensions are the attributes questions may ask about. "group" asks for the grouping key.
	Dimensions []string `koanf:"dimensions"`
	// RoundLength is the number of attempts in one round.
	RoundLength int `koanf:"round_length"`
	// RecencySize bounds the recent grouping key window.
	RecencySize int `koanf:"recency_size"`
	// WeightCap caps the inverse frequency weight.
	WeightCap float64 `koanf:"weight_cap"`
	// RareBonus multiplies the weight of keys with at most two items.
	RareBonus float64 `koanf:"rare_bonus"`
	// MaxRebuilds bounds how many items are skipped while building one question.
	MaxRebuilds int `koanf:"max_rebuilds"`

	// InitialRating is the starting and reset rating value.
	InitialRating int `koanf:"initial_rating"`
	// KCorrect and KIncorrect scale the rating delta per outcome.
	KCorrect   int `koanf:"k_correct"`
	KIncorrect int `koanf:"k_incorrect"`
	// Baseline is the expected score used in the delta formula.
	Baseline float64 `koanf:"baseline"`

	// StoreDriver selects the rating snapshot store: memory or sqlite.
	StoreDriver string `koanf:"store_driver"`
	// StoreDSN is the sqlite database path when StoreDriver is sqlite.
	StoreDSN string `koanf:"store_dsn"`

	// PrefetchWorkers sets the number of asset warming workers. Zero disables prefetch.
	PrefetchWorkers int `koanf:"prefetch_workers"`
	// PrefetchQueueSize bounds pending prefetch jobs.
	PrefetchQueueSize int `koanf:"prefetch_queue_size"`
	// PrefetchTimeoutMS bounds one asset fetch.
	PrefetchTimeoutMS int `koanf:"prefetch_timeout_ms"`

	// Seed fixes the random source when non-zero.
	Seed int64 `koanf:"seed"`

	// Filters adds or overrides category filters by ID.
	Filters []FilterSpec `koanf:"filters"`
}

// FilterSpec is the file representation of a category filter.
type FilterSpec struct {
	ID     string   `koanf:"id"`
	Name   string   `koanf:"name"`
	Mode   string   `koanf:"mode"`
	Fields []string `koanf:"fields"`
	Values []string `koanf:"values"`
	Limit  int      `koanf:"limit"`
}

// FilterSpecs converts the configured filters to registry specs.
func (c *Config) FilterSpecs() []filter.Spec {
	out := make([]filter.Spec, 0, len(c.Filters))
	for _, f := range c.Filters {
		out = append(out, filter.Spec{
			ID:     f.ID,
			Name:   f.Name,
			Mode:   filter.Mode(f.Mode),
			Fields: f.Fields,
			Values: f.Values,
			Limit:  f.Limit,
		})
	}
	return out
}

// New creates a Config populated with defaults.
func New() *Config {
	workers := runtime.NumCPU()
	if workers > 4 {
		workers = 4
	}
	return &Config{
		LogLevel:          "info",
		LogFormat:         "text",
		Addr:              ":9080",
		CORSOrigins:       []string{"*"},
		CatalogFormat:     FormatPaintings,
		Dimensions:        []string{"group"},
		RoundLength:       10,
		RecencySize:       3,
		WeightCap:         3.0,
		RareBonus:         1.2,
		MaxRebuilds:       8,
		InitialRating:     800,
		KCorrect:          50,
		KIncorrect:        20,
		Baseline:          0.25,
		StoreDriver:       StoreMemory,
		StoreDSN:          "kunstquiz.db",
		PrefetchWorkers:   workers,
		PrefetchQueueSize: 256,
		PrefetchTimeoutMS: 3000,
	}
}
