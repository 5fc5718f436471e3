package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/okian/kunstquiz/internal/domain/catalog"
	"github.com/okian/kunstquiz/internal/domain/filter"
)

// FilterDependencies defines the interface for filter operations.
type FilterDependencies interface {
	Filters() []filter.Spec
	View(ctx context.Context, filterID string) (*catalog.View, error)
}

// FiltersHandler serves the filter registry and view aggregates.
type FiltersHandler struct {
	deps FilterDependencies
}

// NewFiltersHandler creates a new filters handler.
func NewFiltersHandler(deps FilterDependencies) *FiltersHandler {
	return &FiltersHandler{deps: deps}
}

type viewResponse struct {
	Filter       string         `json:"filter"`
	Version      uint64         `json:"version"`
	Count        int            `json:"count"`
	DistinctKeys int            `json:"distinct_keys"`
	MaxKeyCount  int            `json:"max_key_count"`
	KeyCounts    map[string]int `json:"key_counts"`
}

// HandleList handles GET /filters.
func (h *FiltersHandler) HandleList(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"filters": h.deps.Filters()})
}

// HandleView handles GET /filters/{filterID}/view.
func (h *FiltersHandler) HandleView(w http.ResponseWriter, r *http.Request) {
	v, err := h.deps.View(r.Context(), chi.URLParam(r, "filterID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewResponse{
		Filter:       v.FilterID,
		Version:      v.Version,
		Count:        v.Count(),
		DistinctKeys: v.DistinctKeys,
		MaxKeyCount:  v.MaxKeyCount,
		KeyCounts:    v.KeyCounts,
	})
}
