package catalog

import (
	"errors"

	"github.com/okian/kunstquiz/internal/domain/filter"
)

var (
	// ErrEmptyCatalog is returned when a load leaves no usable item.
	ErrEmptyCatalog = errors.New("catalog has no usable items")
	// ErrUnknownFilter is returned when a view is requested for an unregistered filter.
	ErrUnknownFilter = filter.ErrUnknownFilter
)
