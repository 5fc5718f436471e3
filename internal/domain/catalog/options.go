package catalog

import (
	"github.com/okian/kunstquiz/internal/domain/filter"
	"github.com/okian/kunstquiz/pkg/logger"
)

// Option configures a Catalog.
type Option func(*Catalog)

// WithDimensions sets the dimensions for which distinct values are precomputed.
func WithDimensions(dims ...string) Option {
	return func(c *Catalog) {
		if len(dims) > 0 {
			c.dimensions = append([]string(nil), dims...)
		}
	}
}

// WithLookup attaches the side lookup table consulted by lookup filters.
func WithLookup(l filter.Lookup) Option {
	return func(c *Catalog) { c.lookup = l }
}

// WithLogger sets the catalog logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Catalog) {
		if l != nil {
			c.log = l
		}
	}
}
