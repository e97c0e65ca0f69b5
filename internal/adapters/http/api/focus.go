// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"

	"github.com/okian/gazefocus/internal/adapters/repository"
	"github.com/okian/gazefocus/internal/domain/types"
)

// FocusHandler serves the current focus and the transition history.
type FocusHandler struct {
	tracker  Tracker
	journal  repository.Store
	maxLimit int
}

type focusResponse struct {
	HasFocus  bool          `json:"has_focus"`
	Focused   []types.Focus `json:"focused"`
	Timestamp float64       `json:"ts"`
	Gaze      types.Ray     `json:"gaze"`
}

// NewFocusHandler creates a new focus handler.
func NewFocusHandler(tracker Tracker, journal repository.Store, maxLimit int) *FocusHandler {
	return &FocusHandler{tracker: tracker, journal: journal, maxLimit: maxLimit}
}

// HandleGetFocus handles GET /focus requests.
func (h *FocusHandler) HandleGetFocus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	focused := h.tracker.FocusedObjects()
	sample := h.tracker.DeviceSample()
	resp := focusResponse{
		HasFocus:  len(focused) > 0,
		Focused:   make([]types.Focus, 0, len(focused)),
		Timestamp: sample.Timestamp,
		Gaze:      types.RayOf(sample.Gaze),
	}
	for _, f := range focused {
		resp.Focused = append(resp.Focused, types.Focus{
			ObjectID:    f.Object.ID(),
			Name:        f.Object.Name(),
			Score:       f.Score,
			AdjustedRay: types.RayOf(f.AdjustedRay),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleGetHistory handles GET /focus/history?limit=N requests.
func (h *FocusHandler) HandleGetHistory(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_focus_history"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	n, err := parseLimit(op, r, h.maxLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	entries, err := h.journal.Recent(r.Context(), n)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	out := make([]types.Transition, 0, len(entries))
	for _, e := range entries {
		out = append(out, types.Transition{
			Seq:       e.Seq,
			ObjectID:  e.ObjectID,
			Name:      e.Name,
			HasFocus:  e.HasFocus,
			Timestamp: e.Timestamp,
		})
	}
	writeJSON(w, http.StatusOK, out)
}
