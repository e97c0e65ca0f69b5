// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"strings"

	"github.com/okian/gazefocus/internal/adapters/calibration"
	"github.com/okian/gazefocus/internal/domain/dedupe"
)

// CalibrationHandler starts, inspects and aborts calibration sessions.
type CalibrationHandler struct {
	sessions Calibration
	dedupe   dedupe.Deduper
}

// calibrationRequest is the body of POST /calibration. Points are metres
// relative to the tracker origin; an empty list selects the default set.
type calibrationRequest struct {
	RequestID string              `json:"request_id"`
	Points    []calibration.Point `json:"points"`
}

func (c calibrationRequest) validate() error {
	for _, p := range c.Points {
		for _, v := range []float64{p.X, p.Y, p.Z} {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return errors.New("points must be finite")
			}
		}
	}
	return nil
}

type calibrationAck struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

// NewCalibrationHandler creates a new calibration handler. Either
// argument may be nil.
func NewCalibrationHandler(sessions Calibration, d dedupe.Deduper) *CalibrationHandler {
	return &CalibrationHandler{sessions: sessions, dedupe: d}
}

// HandleCalibration serves /calibration: GET returns the latest session,
// POST starts one and DELETE aborts the running one.
func (h *CalibrationHandler) HandleCalibration(w http.ResponseWriter, r *http.Request) {
	const op = "api.calibration"
	if h.sessions == nil {
		writeError(w, http.StatusServiceUnavailable, "unavailable", NewKind(op, ErrUnavailable))
		return
	}
	switch r.Method {
	case http.MethodGet:
		rep, ok := h.sessions.Last()
		if !ok {
			writeError(w, http.StatusNotFound, "not_found", NewKind(op, ErrNotFound))
			return
		}
		writeJSON(w, http.StatusOK, rep)
	case http.MethodPost:
		h.start(w, r)
	case http.MethodDelete:
		if !h.sessions.Abort(r.Context()) {
			writeError(w, http.StatusNotFound, "not_found", WrapKind(op, ErrNotFound, errors.New("no calibration running")))
			return
		}
		writeJSON(w, http.StatusAccepted, calibrationAck{Status: "aborting"})
	default:
		http.NotFound(w, r)
	}
}

func (h *CalibrationHandler) start(w http.ResponseWriter, r *http.Request) {
	const op = "api.start_calibration"
	var req calibrationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	key := strings.TrimSpace(req.RequestID)
	if key != "" && h.dedupe != nil {
		if id, seen := h.dedupe.Claim(r.Context(), key); seen {
			writeJSON(w, http.StatusOK, calibrationAck{ID: id, Status: "duplicate", Duplicate: true})
			return
		}
	}

	id, err := h.sessions.Start(r.Context(), req.Points, nil)
	if err != nil {
		if key != "" && h.dedupe != nil {
			h.dedupe.Release(r.Context(), key)
		}
		switch {
		case errors.Is(err, calibration.ErrInProgress):
			writeError(w, http.StatusConflict, "in_progress", WrapKind(op, ErrConflict, err))
		case errors.Is(err, calibration.ErrNoCalibrator):
			writeError(w, http.StatusServiceUnavailable, "unavailable", WrapKind(op, ErrUnavailable, err))
		default:
			writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		}
		return
	}
	if key != "" && h.dedupe != nil {
		h.dedupe.Bind(r.Context(), key, id)
	}
	writeJSON(w, http.StatusAccepted, calibrationAck{ID: id, Status: "accepted"})
}

// HandleGetSession handles GET /calibration/{id} requests.
func (h *CalibrationHandler) HandleGetSession(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_calibration"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	if h.sessions == nil {
		writeError(w, http.StatusServiceUnavailable, "unavailable", NewKind(op, ErrUnavailable))
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/calibration/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	rep, err := h.sessions.Get(id)
	if err != nil {
		if isNotFound(err) {
			writeError(w, http.StatusNotFound, "not_found", Wrap(op, err))
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, rep)
}
