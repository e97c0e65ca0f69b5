// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"

	"github.com/okian/gazefocus/internal/domain/model"
	"github.com/okian/gazefocus/internal/domain/types"
)

// CandidatesHandler exposes the candidates scored on the last tick.
type CandidatesHandler struct {
	tracker Tracker
}

// NewCandidatesHandler creates a new candidates handler.
func NewCandidatesHandler(tracker Tracker) *CandidatesHandler {
	return &CandidatesHandler{tracker: tracker}
}

// HandleGetCandidates handles GET /candidates requests. Candidates are
// listed in registry order with their world-space bounds corners.
func (h *CandidatesHandler) HandleGetCandidates(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	scores := make(map[model.ObjectID]float64)
	for _, s := range h.tracker.CandidateResults() {
		scores[s.ID] = s.Score
	}
	geometry := h.tracker.Candidates()
	out := make([]types.Candidate, 0, len(geometry))
	for _, g := range geometry {
		c := types.Candidate{ObjectID: g.ID, Score: scores[g.ID]}
		for _, p := range g.Bounds.Corners(g.LocalToWorld) {
			c.Corners = append(c.Corners, types.VectorOf(p))
		}
		out = append(out, c)
	}
	writeJSON(w, http.StatusOK, out)
}
