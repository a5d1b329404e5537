package handlers

import (
	"net/http"

	"photolog-backend/internal/stats"
)

// StatsHandler serves the outcome counters
type StatsHandler struct {
	store *stats.Store
}

// NewStatsHandler creates a new stats handler
func NewStatsHandler(store *stats.Store) *StatsHandler {
	return &StatsHandler{store: store}
}

// GetStats handles GET /api/v1/stats
func (h *StatsHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.store.Snapshot())
}
