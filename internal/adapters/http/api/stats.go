package api

import (
	"fmt"
	"net/http"
	"strings"
)

// StatsProvider reports a snapshot of service counters.
type StatsProvider interface {
	GetStats() map[string]interface{}
}

// StatsHandler serves GET /stats.
type StatsHandler struct {
	provider StatsProvider
}

// NewStatsHandler creates a stats handler over provider.
func NewStatsHandler(provider StatsProvider) *StatsHandler {
	return &StatsHandler{provider: provider}
}

// HandleStats writes the full snapshot, or only the comma separated keys
// named by ?keys=. Asking for an unknown key is a bad request.
func (h *StatsHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats := h.provider.GetStats()
	keys := r.URL.Query().Get("keys")
	if keys == "" {
		writeJSON(w, http.StatusOK, stats)
		return
	}

	out := make(map[string]interface{})
	for _, key := range strings.Split(keys, ",") {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		v, ok := stats[key]
		if !ok {
			writeError(w, fmt.Errorf("%w: unknown stat %q", ErrBadRequest, key))
			return
		}
		out[key] = v
	}
	writeJSON(w, http.StatusOK, out)
}
