package main

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/gazefocus/internal/adapters/calibration"
	"github.com/okian/gazefocus/internal/adapters/http/api"
	"github.com/okian/gazefocus/internal/adapters/http/swagger"
	"github.com/okian/gazefocus/internal/adapters/repository"
	"github.com/okian/gazefocus/internal/adapters/scene"
	service "github.com/okian/gazefocus/internal/app"
	"github.com/okian/gazefocus/internal/config"
	"github.com/okian/gazefocus/internal/domain/dedupe"
	"github.com/okian/gazefocus/internal/domain/focus"
	"github.com/okian/gazefocus/internal/domain/geom"
	"github.com/okian/gazefocus/internal/domain/model"
	"github.com/okian/gazefocus/internal/domain/scoring"
	"github.com/okian/gazefocus/internal/domain/search"
	"github.com/okian/gazefocus/pkg/logger"
	"github.com/okian/gazefocus/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// HTTP server timeout constants.
const (
	readTimeout           = 10 * time.Second
	writeTimeout          = 10 * time.Second
	idleTimeout           = 60 * time.Second
	readHeaderTimeout     = 5 * time.Second
	shutdownTimeout       = 30 * time.Second
	systemMetricsInterval = 10 * time.Second
)

// Objects in the demo scene that never take focus; they only occlude.
var occluders = map[string]bool{"wall": true}

func main() {
	// Only the custom registry is exported.
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	defer func() {
		_ = logger.Sync()
	}()

	loggerInstance := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}

	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		loggerInstance.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	c, err := newComponents(ctx, cfg, loggerInstance)
	if err != nil {
		loggerInstance.Error(ctx, "failed to start tracker", logger.Error(err))
		return
	}

	go startSystemMetricsUpdater(ctx)

	source := scene.NewSweepSource(
		geom.V(0, cfg.ViewerHeight, 0),
		cfg.SweepAmplitudeDeg*math.Pi/180,
		cfg.SweepPeriod(),
	)
	tickDone := make(chan error, 1)
	go func() { tickDone <- c.tracker.Run(ctx, source, cfg.TickInterval()) }()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           c.mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		loggerInstance.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			loggerInstance.Error(ctx, "HTTP server failed", logger.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	loggerInstance.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		loggerInstance.Error(ctx, "server shutdown failed", logger.Error(err))
	}
	if err := <-tickDone; err != nil {
		loggerInstance.Warn(ctx, "tick loop ended early", logger.Error(err))
	}
	if err := c.close(shutdownCtx); err != nil {
		loggerInstance.Error(ctx, "tracker shutdown failed", logger.Error(err))
	}

	loggerInstance.Info(ctx, "server stopped")
}

// components is everything main owns between startup and shutdown.
type components struct {
	scene     *scene.Scene
	listeners *focus.Listeners
	tracker   *service.Tracker
	sessions  *calibration.Sessions
	mux       *http.ServeMux
}

func newComponents(ctx context.Context, cfg *config.Config, log logger.Logger) (*components, error) {
	world, err := scene.Build(scene.DemoSpecs())
	if err != nil {
		return nil, fmt.Errorf("build scene: %w", err)
	}

	listeners := focus.NewListeners()
	for _, obj := range world.Objects() {
		if occluders[obj.Name()] {
			continue
		}
		listeners.Register(obj.ID(), focusLogger(ctx, log, obj))
	}
	world.OnRemove(listeners.Remove)

	license, err := cfg.ReadLicense()
	if err != nil {
		return nil, err
	}

	engine := scoring.NewConeEngine()
	engine.HalfAngle = cfg.ScorerHalfAngleDeg * math.Pi / 180

	tracker, err := service.New(ctx, engine, world,
		service.WithLogger(log.Named("tracker")),
		service.WithCapacity(cfg.Capacity),
		service.WithThreadCount(cfg.ThreadCount),
		service.WithLicense(license),
		service.WithCandidateMemory(cfg.CandidateMemory()),
		service.WithFocusEpsilon(cfg.FocusEpsilon),
		service.WithListeners(listeners),
		service.WithJournal(repository.NewJournal(repository.WithHistorySize(cfg.FocusHistorySize))),
		service.WithEventQueueSize(cfg.FocusQueueSize),
		service.WithSearchOptions(
			search.WithRate(cfg.RaysPerSecond, cfg.MinRaysPerTick, cfg.MaxRaysPerTick),
			search.WithLayerMask(cfg.LayerMask),
			search.WithMaxDistance(cfg.RaycastLength),
		),
	)
	if err != nil {
		return nil, err
	}

	c := &components{scene: world, listeners: listeners, tracker: tracker}
	deps := api.Dependencies{
		Tracker: tracker,
		Journal: tracker.Journal(),
		Deduper: dedupe.NewInMemory(dedupe.WithMaxSize(cfg.DedupeSize)),
	}
	if cfg.SimulateCalibration {
		c.sessions = newSessions(cfg, log)
		deps.Calibration = c.sessions
	}

	c.mux = http.NewServeMux()
	swagger.Register(ctx, c.mux)
	api.NewServer(deps, cfg.APIMaxLimit).Register(ctx, c.mux)
	return c, nil
}

func newSessions(cfg *config.Config, log logger.Logger) *calibration.Sessions {
	points := make([]calibration.Point, 0, len(cfg.Points()))
	for _, p := range cfg.Points() {
		points = append(points, calibration.Point{X: p.X, Y: p.Y, Z: p.Z})
	}
	ms := func(n int) time.Duration { return time.Duration(n) * time.Millisecond }
	return calibration.NewSessions(calibration.NewSimulator(),
		calibration.WithSessionLogger(log.Named("calibration")),
		calibration.WithDefaultPoints(points),
		calibration.WithPollInterval(ms(cfg.CalibrationPollMS)),
		calibration.WithSettleDelay(ms(cfg.CalibrationSettleMS)),
		calibration.WithDispatcherOptions(
			calibration.WithIdleInterval(ms(cfg.CalibrationIdleMS)),
			calibration.WithJoinTimeout(ms(cfg.CalibrationJoinTimeoutMS)),
			calibration.WithDispatcherLogger(log.Named("calibration_worker")),
		),
	)
}

func (c *components) close(ctx context.Context) error {
	if c.sessions != nil {
		c.sessions.Close(ctx)
	}
	return c.tracker.Close(ctx)
}

func focusLogger(ctx context.Context, log logger.Logger, obj model.SceneObject) focus.Listener {
	id, name := obj.ID(), obj.Name()
	return focus.ListenerFunc(func(hasFocus bool) {
		log.Info(ctx, "gaze focus changed",
			logger.Uint64("object_id", uint64(id)),
			logger.String("object", name),
			logger.Bool("has_focus", hasFocus),
		)
	})
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())
}
