package calibration

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/gazefocus/pkg/logger"
)

// Default session timings.
const (
	defaultSettleDelay   = 1400 * time.Millisecond
	defaultStartupChecks = 10
	defaultStartupWait   = 100 * time.Millisecond
)

// DefaultPoints are target positions in metres relative to the tracker
// origin.
var DefaultPoints = []Point{
	{X: -0.3, Y: 0.15, Z: 1.2},
	{X: 0.3, Y: 0.15, Z: 1.2},
	{X: -0.3, Y: -0.15, Z: 1.2},
	{X: 0.3, Y: -0.15, Z: 1.2},
	{X: 0, Y: 0, Z: 1.2},
}

// SessionState is the progress of one calibration session.
type SessionState string

// Session states.
const (
	SessionRunning   SessionState = "running"
	SessionSucceeded SessionState = "succeeded"
	SessionFailed    SessionState = "failed"
	SessionAborted   SessionState = "aborted"
)

// StepReport records one finished command of a session.
type StepReport struct {
	Command string  `json:"command"`
	Point   *Point  `json:"point,omitempty"`
	Status  string  `json:"status"`
	Elapsed float64 `json:"elapsedMs"`
}

// Report describes a calibration session.
type Report struct {
	ID         string       `json:"id"`
	State      SessionState `json:"state"`
	StartedAt  time.Time    `json:"startedAt"`
	FinishedAt time.Time    `json:"finishedAt,omitempty"`
	Steps      []StepReport `json:"steps"`
	Success    bool         `json:"success"`
	Error      string       `json:"error,omitempty"`
	Stopped    bool         `json:"workerStopped"`
}

// SessionOption applies a configuration option to the Sessions runner.
type SessionOption func(*Sessions)

// WithPollInterval sets how often a pending result is polled.
func WithPollInterval(d time.Duration) SessionOption {
	return func(s *Sessions) {
		if d > 0 {
			s.poll = d
		}
	}
}

// WithSettleDelay sets the pause before collecting each point.
func WithSettleDelay(d time.Duration) SessionOption {
	return func(s *Sessions) {
		if d >= 0 {
			s.settle = d
		}
	}
}

// WithStartupWait sets how often and how long to wait for the worker to
// report Running.
func WithStartupWait(checks int, every time.Duration) SessionOption {
	return func(s *Sessions) {
		if checks > 0 && every > 0 {
			s.startupChecks, s.startupWait = checks, every
		}
	}
}

// WithDefaultPoints replaces DefaultPoints for sessions started without
// explicit points.
func WithDefaultPoints(points []Point) SessionOption {
	return func(s *Sessions) {
		if len(points) > 0 {
			s.points = append([]Point(nil), points...)
		}
	}
}

// WithDispatcherOptions forwards options to each session's dispatcher.
func WithDispatcherOptions(opts ...DispatcherOption) SessionOption {
	return func(s *Sessions) { s.dispatcherOpts = append(s.dispatcherOpts, opts...) }
}

// WithSessionLogger sets the session logger.
func WithSessionLogger(l logger.Logger) SessionOption {
	return func(s *Sessions) {
		if l != nil {
			s.logger = l
		}
	}
}

// Sessions drives calibration sessions one at a time. Each session gets a
// fresh dispatcher and runs Enter, Collect per point, Compute and Leave.
type Sessions struct {
	cal Calibrator

	mu         sync.Mutex
	inProgress bool
	current    *Report
	dispatcher *Dispatcher
	last       *Report
	cancel     context.CancelFunc
	wg         sync.WaitGroup

	poll           time.Duration
	settle         time.Duration
	startupChecks  int
	startupWait    time.Duration
	points         []Point
	dispatcherOpts []DispatcherOption
	logger         logger.Logger
}

// NewSessions creates a session runner over cal.
func NewSessions(cal Calibrator, opts ...SessionOption) *Sessions {
	s := &Sessions{
		cal:           cal,
		poll:          defaultPollInterval,
		settle:        defaultSettleDelay,
		startupChecks: defaultStartupChecks,
		startupWait:   defaultStartupWait,
		points:        DefaultPoints,
		logger:        logger.Default().Named("calibration"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// InProgress reports whether a session is running.
func (s *Sessions) InProgress() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inProgress
}

// Start begins a session in the background and returns its id. Nil points
// selects the default set. onDone, if set, receives the final report.
func (s *Sessions) Start(ctx context.Context, points []Point, onDone func(Report)) (string, error) {
	rep, sctx, err := s.begin(ctx)
	if err != nil {
		return "", err
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		final := s.perform(sctx, rep, points)
		if onDone != nil {
			onDone(final)
		}
	}()
	return rep.ID, nil
}

// Run performs a session synchronously.
func (s *Sessions) Run(ctx context.Context, points []Point) (Report, error) {
	rep, sctx, err := s.begin(ctx)
	if err != nil {
		return Report{}, err
	}
	return s.perform(sctx, rep, points), nil
}

func (s *Sessions) begin(ctx context.Context) (*Report, context.Context, error) {
	if s.cal == nil {
		return nil, nil, ErrNoCalibrator
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inProgress {
		s.logger.Info(ctx, "already performing calibration")
		return nil, nil, ErrInProgress
	}
	s.inProgress = true
	rep := &Report{ID: uuid.NewString(), State: SessionRunning, StartedAt: time.Now()}
	s.current = rep
	sctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	return rep, sctx, nil
}

// Last returns the most recent report: the running session if any,
// otherwise the last finished one.
func (s *Sessions) Last() (Report, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.current != nil:
		return cloneReport(s.current), true
	case s.last != nil:
		return cloneReport(s.last), true
	default:
		return Report{}, false
	}
}

// Get returns the report with id if it is the running or last session.
func (s *Sessions) Get(id string) (Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range []*Report{s.current, s.last} {
		if r != nil && r.ID == id {
			return cloneReport(r), nil
		}
	}
	return Report{}, ErrSessionNotFound
}

// Abort cancels the running session and stops its worker. The session
// finishes as aborted.
func (s *Sessions) Abort(ctx context.Context) bool {
	s.mu.Lock()
	cancel, d := s.cancel, s.dispatcher
	running := s.inProgress
	s.mu.Unlock()
	if !running {
		return false
	}
	if cancel != nil {
		cancel()
	}
	if d != nil {
		d.Stop(ctx)
	}
	return true
}

// Close aborts any running session and waits for background sessions.
func (s *Sessions) Close(ctx context.Context) {
	s.Abort(ctx)
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		s.logger.Warn(ctx, "calibration session did not finish before shutdown")
	}
}

func (s *Sessions) perform(ctx context.Context, rep *Report, points []Point) Report {
	if points == nil {
		points = s.points
	}
	defer s.cancelSession()
	log := s.logger

	d := NewDispatcher(s.cal, append([]DispatcherOption{WithDispatcherLogger(log)}, s.dispatcherOpts...)...)
	s.mu.Lock()
	s.dispatcher = d
	s.mu.Unlock()

	if err := d.Start(ctx); err != nil {
		return s.end(ctx, rep, d, SessionFailed, err.Error())
	}
	if !s.waitRunning(ctx, d) {
		log.Error(ctx, "failed to start calibration worker", logger.String("session", rep.ID))
		return s.end(ctx, rep, d, SessionFailed, ErrNotRunning.Error())
	}

	if _, err := s.step(ctx, rep, d.EnterCalibrationMode()); err != nil {
		return s.end(ctx, rep, d, SessionAborted, err.Error())
	}

	for _, p := range points {
		if err := sleepCtx(ctx, s.settle); err != nil {
			return s.end(ctx, rep, d, SessionAborted, err.Error())
		}
		st, err := s.step(ctx, rep, d.CollectData(DevicePoint(p.X, p.Y, p.Z)))
		if err != nil {
			return s.end(ctx, rep, d, SessionAborted, err.Error())
		}
		if st == StatusFailure {
			log.Info(ctx, "error gathering data for calibration point",
				logger.String("session", rep.ID),
				logger.Float64("x", p.X), logger.Float64("y", p.Y), logger.Float64("z", p.Z))
		}
	}

	compute, err := s.step(ctx, rep, d.ComputeAndApply())
	if err != nil {
		return s.end(ctx, rep, d, SessionAborted, err.Error())
	}
	if _, err := s.step(ctx, rep, d.LeaveCalibrationMode()); err != nil {
		return s.end(ctx, rep, d, SessionAborted, err.Error())
	}

	s.mu.Lock()
	rep.Success = compute == StatusSuccess
	s.mu.Unlock()
	state := SessionFailed
	if compute == StatusSuccess {
		state = SessionSucceeded
	}
	return s.end(ctx, rep, d, state, "")
}

// step waits for r and records it. A force-completed or rejected command
// ends the session.
func (s *Sessions) step(ctx context.Context, rep *Report, r *Result) (Status, error) {
	if err := r.Wait(ctx, s.poll); err != nil {
		return StatusFailure, err
	}
	if r.Elapsed() == stoppedElapsed {
		return StatusFailure, ErrNotRunning
	}
	st := StepReport{
		Command: r.Command().String(),
		Status:  r.Status().String(),
		Elapsed: float64(r.Elapsed().Microseconds()) / 1000,
	}
	if r.Command() == CommandCollect {
		p := r.Point()
		st.Point = &p
	}
	s.mu.Lock()
	rep.Steps = append(rep.Steps, st)
	s.mu.Unlock()
	s.logger.Debug(ctx, r.String())
	return r.Status(), nil
}

func (s *Sessions) waitRunning(ctx context.Context, d *Dispatcher) bool {
	for i := 0; i < s.startupChecks; i++ {
		if d.Running() {
			return true
		}
		if sleepCtx(ctx, s.startupWait) != nil {
			return false
		}
	}
	return d.Running()
}

func (s *Sessions) end(ctx context.Context, rep *Report, d *Dispatcher, state SessionState, msg string) Report {
	stopped := d.Stop(context.WithoutCancel(ctx))

	s.mu.Lock()
	defer s.mu.Unlock()
	rep.State = state
	rep.Error = msg
	rep.Stopped = stopped
	rep.FinishedAt = time.Now()
	s.last = rep
	s.current = nil
	s.dispatcher = nil
	s.inProgress = false

	s.logger.Info(ctx, "calibration finished",
		logger.String("session", rep.ID),
		logger.String("state", string(state)),
		logger.Bool("success", rep.Success),
		logger.Bool("worker_stopped", stopped),
	)
	return cloneReport(rep)
}

func (s *Sessions) cancelSession() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func cloneReport(r *Report) Report {
	out := *r
	out.Steps = append([]StepReport(nil), r.Steps...)
	return out
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
