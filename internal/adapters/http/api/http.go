// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/okian/gazefocus/internal/adapters/calibration"
	"github.com/okian/gazefocus/internal/adapters/repository"
	service "github.com/okian/gazefocus/internal/app"
	"github.com/okian/gazefocus/internal/domain/dedupe"
	"github.com/okian/gazefocus/internal/domain/model"
)

// DefaultMaxLimit caps list endpoints when no limit is configured.
const DefaultMaxLimit = 100

// Tracker is the read side of the gaze tracker.
type Tracker interface {
	FocusedObjects() []model.FocusedCandidate
	Candidates() []model.CandidateGeometry
	CandidateResults() []model.ScoredCandidate
	DeviceSample() model.DeviceSample
	Stats() service.Stats
}

// Calibration starts and inspects calibration sessions.
type Calibration interface {
	Start(ctx context.Context, points []calibration.Point, onDone func(calibration.Report)) (string, error)
	Last() (calibration.Report, bool)
	Get(id string) (calibration.Report, error)
	Abort(ctx context.Context) bool
	InProgress() bool
}

// Dependencies required by HTTP handlers. Calibration and Deduper may be
// nil; calibration routes then answer 503.
type Dependencies struct {
	Tracker     Tracker
	Journal     repository.Store
	Calibration Calibration
	Deduper     dedupe.Deduper
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	focusHandler       *FocusHandler
	candidatesHandler  *CandidatesHandler
	leaderboardHandler *LeaderboardHandler
	rankHandler        *RankHandler
	calibrationHandler *CalibrationHandler
}

// NewServer creates a new API server with all handlers. maxLimit <= 0
// selects DefaultMaxLimit.
func NewServer(deps Dependencies, maxLimit int) *Server {
	if maxLimit <= 0 {
		maxLimit = DefaultMaxLimit
	}
	return &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(deps.Tracker, deps.Journal, deps.Calibration),
		focusHandler:       NewFocusHandler(deps.Tracker, deps.Journal, maxLimit),
		candidatesHandler:  NewCandidatesHandler(deps.Tracker),
		leaderboardHandler: NewLeaderboardHandler(deps.Journal, maxLimit),
		rankHandler:        NewRankHandler(deps.Journal),
		calibrationHandler: NewCalibrationHandler(deps.Calibration, deps.Deduper),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/focus", MetricsMiddleware(s.focusHandler.HandleGetFocus, "focus"))
	mux.HandleFunc("/focus/history", MetricsMiddleware(s.focusHandler.HandleGetHistory, "focus_history"))
	mux.HandleFunc("/focus/top", MetricsMiddleware(s.leaderboardHandler.HandleGetLeaderboard, "focus_top"))
	mux.HandleFunc("/focus/objects/", MetricsMiddleware(s.rankHandler.HandleGetRank, "focus_object"))
	mux.HandleFunc("/candidates", MetricsMiddleware(s.candidatesHandler.HandleGetCandidates, "candidates"))
	mux.HandleFunc("/calibration", MetricsMiddleware(s.calibrationHandler.HandleCalibration, "calibration"))
	mux.HandleFunc("/calibration/", MetricsMiddleware(s.calibrationHandler.HandleGetSession, "calibration_session"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// parseLimit reads ?limit=N, which must be in [1, maxLimit].
func parseLimit(op string, r *http.Request, maxLimit int) (int, error) {
	n, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || n < 1 {
		return 0, NewKind(op, ErrBadRequest)
	}
	if n > maxLimit {
		return 0, WrapKind(op, ErrBadRequest, errors.New("limit exceeded"))
	}
	return n, nil
}

// isNotFound translates upstream not-found errors to 404.
func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, repository.ErrNotFound) ||
		errors.Is(err, calibration.ErrSessionNotFound)
}
