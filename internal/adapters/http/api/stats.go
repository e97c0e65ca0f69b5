// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"

	"github.com/okian/gazefocus/internal/adapters/repository"
	service "github.com/okian/gazefocus/internal/app"
)

// StatsHandler handles stats requests.
type StatsHandler struct {
	tracker     Tracker
	journal     repository.Store
	calibration Calibration
}

type statsResponse struct {
	Tracker     service.Stats `json:"tracker"`
	Transitions int           `json:"transitions"`
	Calibrating bool          `json:"calibrating"`
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(tracker Tracker, journal repository.Store, cal Calibration) *StatsHandler {
	return &StatsHandler{tracker: tracker, journal: journal, calibration: cal}
}

// HandleStats handles GET /stats requests.
func (h *StatsHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	resp := statsResponse{Tracker: h.tracker.Stats()}
	if h.journal != nil {
		resp.Transitions = h.journal.Count(r.Context())
	}
	if h.calibration != nil {
		resp.Calibrating = h.calibration.InProgress()
	}
	writeJSON(w, http.StatusOK, resp)
}
