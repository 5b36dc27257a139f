// Package session runs test sessions: it owns the sample buffer, the state
// machine, the warning monitor, and the analysis strategy of the one active
// session, and drives them from a fixed-cadence sampling tick.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ziademad02153/local-automation-Microwave-app/internal/analysis"
	"github.com/ziademad02153/local-automation-Microwave-app/internal/app/config"
	"github.com/ziademad02153/local-automation-Microwave-app/internal/buffer"
	"github.com/ziademad02153/local-automation-Microwave-app/internal/domain"
	"github.com/ziademad02153/local-automation-Microwave-app/internal/fsm"
	"github.com/ziademad02153/local-automation-Microwave-app/internal/metrics"
	"github.com/ziademad02153/local-automation-Microwave-app/internal/ports"
	"github.com/ziademad02153/local-automation-Microwave-app/internal/power"
	"github.com/ziademad02153/local-automation-Microwave-app/internal/sector"
)

const reportWriteTimeout = 5 * time.Second

// active is the state owned exclusively by one running test session.
// Discarded, never reused, once the session has been reported.
type active struct {
	id        uuid.UUID
	mode      config.ModeConfig
	weight    int
	buf       *buffer.Buffer
	monitor   *analysis.Monitor
	strategy  analysis.Analysis
	warnings  []domain.Warning
	startedAt time.Time
	elapsed   time.Duration // accumulated Running time
}

// Engine coordinates sampling, analysis, and the state machine. One periodic
// Tick drives sampling; commands arrive concurrently from the presentation
// adapters. Analysis only ever sees buffer snapshots, so it can never race
// the sampler.
type Engine struct {
	cfg      *config.Config
	logger   *zap.Logger
	driver   ports.Driver
	sink     ports.ReportSink // may be nil
	log      ports.SampleLog  // may be nil
	notifier *notifier

	machine  *fsm.Machine
	calc     *power.Calculator
	analyzer *analysis.Analyzer
	planner  *sector.Planner

	mu         sync.Mutex
	cur        *active
	lastReport *domain.Report
}

func NewEngine(cfg *config.Config, driver ports.Driver, opts ...Option) *Engine {
	e := &Engine{
		cfg:     cfg,
		logger:  zap.NewNop(),
		driver:  driver,
		machine: fsm.New(),
		planner: sector.NewPlanner(cfg.SectorDefinitions(), cfg.WeightCurve()),
	}
	e.calc = power.NewCalculator(cfg.ChannelSpecs())
	e.analyzer = analysis.NewAnalyzer(e.calc)

	var presenters []ports.Presenter
	for _, opt := range opts {
		if opt != nil {
			presenters = opt(e, presenters)
		}
	}
	e.notifier = newNotifier(presenters, e.logger)
	e.setStateGauge(e.machine.State())
	return e
}

// Option customizes an Engine at construction time.
type Option func(*Engine, []ports.Presenter) []ports.Presenter

func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine, p []ports.Presenter) []ports.Presenter {
		if logger != nil {
			e.logger = logger
		}
		return p
	}
}

func WithPresenter(pr ports.Presenter) Option {
	return func(e *Engine, p []ports.Presenter) []ports.Presenter {
		if pr != nil {
			p = append(p, pr)
		}
		return p
	}
}

func WithReportSink(sink ports.ReportSink) Option {
	return func(e *Engine, p []ports.Presenter) []ports.Presenter {
		e.sink = sink
		return p
	}
}

func WithSampleLog(log ports.SampleLog) Option {
	return func(e *Engine, p []ports.Presenter) []ports.Presenter {
		e.log = log
		return p
	}
}

// Run drives the engine from a fixed-interval ticker until ctx is cancelled.
func (e *Engine) Run(ctx context.Context) error {
	interval := e.cfg.Sampling.Interval.Duration
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	e.logger.Info("sampling loop started", zap.Duration("interval", interval))
	for {
		select {
		case <-ctx.Done():
			e.logger.Info("sampling loop stopped")
			return nil
		case now := <-ticker.C:
			if err := e.Tick(ctx, now); err != nil {
				e.logger.Error("tick failed", zap.Error(err))
			}
		}
	}
}

// Close releases the notifier. The driver is owned by the caller.
func (e *Engine) Close() {
	e.notifier.close()
}

// State returns the current operational state.
func (e *Engine) State() fsm.State {
	return e.machine.State()
}

// Start begins a new session in the named mode. For Defrost modes the sample
// weight is validated against the configured range and the sector plan is
// resolved here, once; it is never re-evaluated mid-session.
func (e *Engine) Start(modeName string, weightGrams int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	mode, strategy, err := StrategyFor(e.cfg, e.planner, modeName, weightGrams)
	if err != nil {
		return err
	}

	if err := e.fire(fsm.EventStart); err != nil {
		return err
	}

	now := time.Now()
	sess := &active{
		id:        uuid.New(),
		mode:      mode,
		weight:    weightGrams,
		buf:       buffer.New(),
		strategy:  strategy,
		startedAt: now,
		monitor: analysis.NewMonitor(analysis.MonitorConfig{
			Specs:        e.cfg.ChannelSpecs(),
			OverlapGrace: e.cfg.Warnings.OverlapGrace.Duration,
			OverlapFatal: mode.OverlapFatal,
			RangeLow:     e.cfg.Warnings.RangeLow,
			RangeHigh:    e.cfg.Warnings.RangeHigh,
		}),
	}
	e.cur = sess

	if e.log != nil {
		if err := e.log.Begin(sess.id.String()); err != nil {
			e.logger.Warn("sample log unavailable for this session", zap.Error(err))
		}
	}

	e.logger.Info("session started",
		zap.String("session_id", sess.id.String()),
		zap.String("mode", mode.Name),
		zap.Int("weight_grams", weightGrams),
		zap.Duration("planned_duration", mode.Duration.Duration),
	)
	return nil
}

// StrategyFor resolves a mode name into the analysis strategy a session in
// that mode will use. Defrost modes validate the sample weight against the
// configured range and resolve the sector plan once, up front.
func StrategyFor(cfg *config.Config, planner *sector.Planner, modeName string, weightGrams int) (config.ModeConfig, analysis.Analysis, error) {
	mode, ok := cfg.Mode(modeName)
	if !ok {
		return config.ModeConfig{}, nil, &domain.ConfigurationError{
			Field:  "mode",
			Reason: fmt.Sprintf("unknown mode %q", modeName),
		}
	}

	if mode.IsDefrost() {
		d := cfg.Defrost
		if weightGrams < d.WeightMinGrams || weightGrams > d.WeightMaxGrams {
			return config.ModeConfig{}, nil, &domain.ConfigurationError{
				Field: "weight_grams",
				Reason: fmt.Sprintf("weight %dg outside supported range %d-%dg",
					weightGrams, d.WeightMinGrams, d.WeightMaxGrams),
			}
		}
		return mode, analysis.SectorAnalysis{Plan: planner.Plan(weightGrams, mode.Duration.Duration)}, nil
	}

	exps := make([]analysis.Expectation, 0, len(mode.Expected))
	for name, pct := range mode.Expected {
		exps = append(exps, analysis.Expectation{
			Channel:   domain.Channel(name),
			Expected:  pct,
			Tolerance: mode.Tolerance,
		})
	}
	return mode, analysis.PlainAnalysis{Expectations: exps}, nil
}

// Stop cancels the session mid-test. The data collected so far is analyzed;
// sectors the run never reached are reported Incomplete.
func (e *Engine) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.fire(fsm.EventStop); err != nil {
		return err
	}
	e.finalizeLocked(time.Now(), false)
	return nil
}

func (e *Engine) Pause() error { return e.fireLocked(fsm.EventPause) }

func (e *Engine) Resume() error { return e.fireLocked(fsm.EventResume) }

func (e *Engine) Lock() error { return e.fireLocked(fsm.EventLock) }

func (e *Engine) Unlock() error { return e.fireLocked(fsm.EventUnlock) }

// Reset returns the rig to Idle from Completed or Faulted.
func (e *Engine) Reset() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.fire(fsm.EventReset); err != nil {
		return err
	}
	e.cur = nil
	return nil
}

// Tick is the engine heartbeat, invoked once per sampling interval. While
// Running it acquires one sample; while the door is open it only watches the
// door channel so the interrupt can clear; in every other state it just
// refreshes presenters.
func (e *Engine) Tick(ctx context.Context, now time.Time) error {
	started := time.Now()
	defer func() {
		metrics.TickDuration.Observe(time.Since(started).Seconds())
	}()

	e.mu.Lock()
	defer e.mu.Unlock()

	var (
		newWarnings []domain.Warning
		err         error
	)
	switch e.machine.State() {
	case fsm.StateRunning:
		newWarnings, err = e.sampleTick(ctx, now)
	case fsm.StateDoorOpenInterrupt:
		newWarnings, err = e.doorWatchTick(ctx, now)
	}

	e.publishLocked(now, newWarnings)
	return err
}

// sampleTick performs one acquisition: read, buffer, watch, advance, finish.
func (e *Engine) sampleTick(ctx context.Context, now time.Time) ([]domain.Warning, error) {
	sess := e.cur
	if sess == nil {
		return nil, fmt.Errorf("running without an active session")
	}

	voltages, err := e.readChannels(ctx)
	if err != nil {
		return nil, e.faultLocked(now, err)
	}

	sample := domain.Sample{Timestamp: now, Elapsed: sess.elapsed, Voltages: voltages}
	if err := sess.buf.Append(sample); err != nil {
		return nil, err
	}
	metrics.SamplesTotal.Inc()
	if e.log != nil {
		if err := e.log.Append(sample); err != nil {
			e.logger.Warn("sample log append failed", zap.Error(err))
		}
	}

	newWarnings := sess.monitor.Observe(sample, true)
	e.recordWarnings(sess, newWarnings)

	for _, w := range newWarnings {
		if w.Kind == domain.WarningDoorOpened {
			// Energy delivery is interrupted: suspend sampling until the
			// door closes and the operator explicitly resumes.
			if err := e.fire(fsm.EventDoorOpen); err != nil {
				return newWarnings, err
			}
		}
	}

	sess.elapsed += e.cfg.Sampling.Interval.Duration

	if e.machine.Is(fsm.StateRunning) && sess.elapsed >= sess.mode.Duration.Duration {
		if err := e.fire(fsm.EventFinish); err != nil {
			return newWarnings, err
		}
		e.finalizeLocked(now, false)
	}
	return newWarnings, nil
}

// doorWatchTick polls the hardware while interrupted, without extending the
// buffer, so the doorClose event can fire as soon as the switch drops.
func (e *Engine) doorWatchTick(ctx context.Context, now time.Time) ([]domain.Warning, error) {
	sess := e.cur
	if sess == nil {
		return nil, nil
	}

	voltages, err := e.readChannels(ctx)
	if err != nil {
		return nil, e.faultLocked(now, err)
	}

	probe := domain.Sample{Timestamp: now, Elapsed: sess.elapsed, Voltages: voltages}
	newWarnings := sess.monitor.Observe(probe, false)
	e.recordWarnings(sess, newWarnings)

	if !sess.monitor.DoorOpen() {
		if err := e.fire(fsm.EventDoorClose); err != nil {
			return newWarnings, err
		}
		e.logger.Info("door closed, session paused awaiting resume",
			zap.String("session_id", sess.id.String()))
	}
	return newWarnings, nil
}

// readChannels performs the single per-tick hardware read under a bounded
// timeout. A timeout is indistinguishable from any other device failure.
func (e *Engine) readChannels(ctx context.Context) (map[domain.Channel]float64, error) {
	readCtx, cancel := context.WithTimeout(ctx, e.cfg.Sampling.ReadTimeout.Duration)
	defer cancel()

	voltages, err := e.driver.ReadChannels(readCtx)
	if err != nil {
		return nil, &domain.DeviceError{Err: err}
	}
	return voltages, nil
}

func (e *Engine) faultLocked(now time.Time, err error) error {
	metrics.DeviceErrorsTotal.Inc()
	e.logger.Error("device error, rig faulted", zap.Error(err))
	if _, ferr := e.machine.Fire(fsm.EventDeviceError); ferr == nil {
		e.setStateGauge(e.machine.State())
	}
	if e.cur != nil {
		e.finalizeLocked(now, true)
	}
	return err
}

func (e *Engine) recordWarnings(sess *active, warnings []domain.Warning) {
	for _, w := range warnings {
		sess.warnings = append(sess.warnings, w)
		metrics.WarningsTotal.WithLabelValues(string(w.Kind)).Inc()
		e.logger.Warn("warning raised",
			zap.String("session_id", sess.id.String()),
			zap.String("kind", string(w.Kind)),
			zap.Bool("fatal", w.Fatal),
			zap.String("description", w.Description),
		)
	}
}

// finalizeLocked analyzes the session, emits the export record, and retires
// the session. faulted sessions cannot claim a Pass: a run cut short by a
// device error reports Incomplete unless the data already failed.
func (e *Engine) finalizeLocked(now time.Time, faulted bool) {
	sess := e.cur
	if sess == nil {
		return
	}
	e.cur = nil

	snapshot := sess.buf.Snapshot()
	outcome := sess.strategy.Evaluate(e.analyzer, snapshot, sess.elapsed, sess.warnings)
	if faulted && outcome.Verdict == domain.VerdictPass {
		outcome.Verdict = domain.VerdictIncomplete
	}

	report := &domain.Report{
		SessionID:      sess.id,
		Mode:           sess.mode.Name,
		WeightGrams:    sess.weight,
		StartedAt:      sess.startedAt,
		FinishedAt:     now,
		RunTime:        sess.elapsed,
		FinalState:     string(e.machine.State()),
		Samples:        snapshot,
		Metrics:        outcome.Metrics,
		ChannelResults: outcome.ChannelResults,
		Plan:           outcome.Plan,
		Warnings:       sess.warnings,
		DoorOpenCount:  sess.monitor.DoorOpenCount(),
		Verdict:        outcome.Verdict,
	}
	e.lastReport = report
	metrics.VerdictsTotal.WithLabelValues(string(report.Verdict)).Inc()

	if e.log != nil {
		if err := e.log.Close(); err != nil {
			e.logger.Warn("sample log close failed", zap.Error(err))
		}
	}

	if e.sink != nil {
		ctx, cancel := context.WithTimeout(context.Background(), reportWriteTimeout)
		defer cancel()
		if err := e.sink.WriteReport(ctx, report); err != nil {
			metrics.ReportWritesFailed.Inc()
			e.logger.Error("report sink write failed",
				zap.String("sink", e.sink.Name()), zap.Error(err))
		}
	}

	e.notifier.publishReport(report)
	e.logger.Info("session finalized",
		zap.String("session_id", sess.id.String()),
		zap.String("mode", sess.mode.Name),
		zap.String("verdict", string(report.Verdict)),
		zap.Duration("run_time", sess.elapsed),
		zap.Int("samples", len(snapshot)),
		zap.Int("warnings", len(sess.warnings)),
	)
}

// fire applies a state-machine event, keeping the state gauge current and
// counting rejections so no rejected command is ever silent.
func (e *Engine) fire(ev fsm.Event) error {
	state, err := e.machine.Fire(ev)
	if err != nil {
		metrics.RejectedCommandsTotal.WithLabelValues(string(ev)).Inc()
		e.logger.Warn("command rejected", zap.String("event", string(ev)), zap.Error(err))
		return err
	}
	e.setStateGauge(state)
	e.logger.Info("state changed", zap.String("event", string(ev)), zap.String("state", string(state)))
	return nil
}

func (e *Engine) fireLocked(ev fsm.Event) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.fire(ev)
}

func (e *Engine) setStateGauge(current fsm.State) {
	for _, s := range []fsm.State{
		fsm.StateIdle, fsm.StateRunning, fsm.StatePaused, fsm.StateDoorOpenInterrupt,
		fsm.StateChildLocked, fsm.StateCompleted, fsm.StateFaulted,
	} {
		v := 0.0
		if s == current {
			v = 1.0
		}
		metrics.SessionState.WithLabelValues(string(s)).Set(v)
	}
}

// publishLocked pushes the per-tick snapshot to the presentation queue.
func (e *Engine) publishLocked(now time.Time, newWarnings []domain.Warning) {
	snap := domain.TickSnapshot{
		State:       string(e.machine.State()),
		Timestamp:   now,
		NewWarnings: newWarnings,
	}
	if sess := e.cur; sess != nil {
		snap.SessionID = sess.id
		snap.Elapsed = sess.elapsed
		live := e.calc.LiveMetrics(sess.buf.Snapshot(), sess.elapsed)
		snap.Live = live
		for _, m := range live {
			metrics.ChannelPower.WithLabelValues(string(m.Channel)).Set(m.OnPercent)
		}
	}
	e.notifier.publishTick(snap)
}

// Status returns the current state and live metrics for pull-style clients.
func (e *Engine) Status() domain.TickSnapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	snap := domain.TickSnapshot{
		State:     string(e.machine.State()),
		Timestamp: time.Now(),
	}
	if sess := e.cur; sess != nil {
		snap.SessionID = sess.id
		snap.Elapsed = sess.elapsed
		snap.Live = e.calc.LiveMetrics(sess.buf.Snapshot(), sess.elapsed)
	}
	return snap
}

// LastReport returns the most recently finalized report, or nil.
func (e *Engine) LastReport() *domain.Report {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastReport
}
