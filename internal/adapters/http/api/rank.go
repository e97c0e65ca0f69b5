// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/okian/gazefocus/internal/adapters/repository"
	"github.com/okian/gazefocus/internal/domain/model"
)

// RankHandler returns the dwell ranking of one object.
type RankHandler struct {
	journal repository.Store
}

// NewRankHandler creates a new rank handler.
func NewRankHandler(journal repository.Store) *RankHandler {
	return &RankHandler{journal: journal}
}

// HandleGetRank handles GET /focus/objects/{object_id} requests.
func (h *RankHandler) HandleGetRank(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_focus_object"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	path := strings.TrimPrefix(r.URL.Path, "/focus/objects/")
	id, err := strconv.ParseUint(path, 10, 64)
	if path == "" || err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	stats, err := h.journal.Object(r.Context(), model.ObjectID(id))
	if err != nil {
		if isNotFound(err) {
			writeError(w, http.StatusNotFound, "not_found", Wrap(op, err))
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, entryOf(stats))
}
