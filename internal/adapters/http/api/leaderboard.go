// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"

	"github.com/okian/gazefocus/internal/adapters/repository"
	"github.com/okian/gazefocus/internal/domain/types"
)

// LeaderboardHandler ranks objects by accumulated focus dwell.
type LeaderboardHandler struct {
	journal  repository.Store
	maxLimit int
}

// NewLeaderboardHandler creates a new leaderboard handler.
func NewLeaderboardHandler(journal repository.Store, maxLimit int) *LeaderboardHandler {
	return &LeaderboardHandler{
		journal:  journal,
		maxLimit: maxLimit,
	}
}

// HandleGetLeaderboard handles GET /focus/top?limit=N requests.
func (h *LeaderboardHandler) HandleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_focus_top"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	n, err := parseLimit(op, r, h.maxLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	stats, err := h.journal.TopN(r.Context(), n)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	out := make([]types.Entry, 0, len(stats))
	for _, s := range stats {
		out = append(out, entryOf(s))
	}
	writeJSON(w, http.StatusOK, out)
}

func entryOf(s repository.ObjectStats) types.Entry {
	return types.Entry{
		Rank:         s.Rank,
		ObjectID:     s.ObjectID,
		Name:         s.Name,
		DwellSeconds: s.Dwell,
		Gains:        s.Gains,
		Focused:      s.Focused,
	}
}
