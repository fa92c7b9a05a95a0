package monitor

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"
)

// SchedulerState is the phase of the tick state machine.
type SchedulerState int32

const (
	StateIdle SchedulerState = iota
	StateCounting
	StateFiring
)

func (s SchedulerState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCounting:
		return "counting"
	case StateFiring:
		return "firing"
	default:
		return "unknown"
	}
}

// CycleRunner runs one aggregation cycle.
type CycleRunner interface {
	RunCycle(ctx context.Context) error
}

// SchedulerConfig holds scheduler configuration.
type SchedulerConfig struct {
	Tick        time.Duration // tick granularity (default: 1s)
	Interval    int           // ticks between cycles (default: 60)
	Grace       int           // extra ticks to absorb timer jitter (default: 5)
	PollOnStart bool          // fire once before the first tick
}

// DefaultSchedulerConfig returns sensible defaults.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Tick:     time.Second,
		Interval: 60,
		Grace:    5,
	}
}

// EffectiveInterval is the wall-clock time between two cycles.
func (c SchedulerConfig) EffectiveInterval() time.Duration {
	return time.Duration(c.Interval+c.Grace) * c.Tick
}

// Scheduler coalesces a fine tick into a coarse cycle cadence. The tick loop
// only dispatches cycles; it never waits for one to finish.
type Scheduler struct {
	cfg    SchedulerConfig
	runner CycleRunner
	logger *slog.Logger

	counter int
	state   atomic.Int32
	fired   atomic.Int64
}

func NewScheduler(cfg SchedulerConfig, runner CycleRunner, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultSchedulerConfig()
	if cfg.Tick <= 0 {
		cfg.Tick = def.Tick
	}
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.Grace < 0 {
		cfg.Grace = 0
	}
	return &Scheduler{cfg: cfg, runner: runner, logger: logger}
}

// State returns the current state machine phase.
func (s *Scheduler) State() SchedulerState { return SchedulerState(s.state.Load()) }

// Fired returns how many cycles have been dispatched.
func (s *Scheduler) Fired() int64 { return s.fired.Load() }

// Config returns the effective configuration.
func (s *Scheduler) Config() SchedulerConfig { return s.cfg }

// Run drives the tick loop. Blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	s.logger.Info("scheduler started",
		"tick", s.cfg.Tick,
		"interval_ticks", s.cfg.Interval,
		"grace_ticks", s.cfg.Grace,
		"poll_on_start", s.cfg.PollOnStart,
	)

	if s.cfg.PollOnStart {
		s.dispatch(ctx)
	}

	ticker := time.NewTicker(s.cfg.Tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.state.Store(int32(StateIdle))
			s.logger.Info("scheduler stopped")
			return
		case <-ticker.C:
			if s.advance() {
				s.dispatch(ctx)
			}
		}
	}
}

// advance counts one tick and reports whether a cycle is due.
func (s *Scheduler) advance() bool {
	s.counter++
	if s.counter < s.cfg.Interval+s.cfg.Grace {
		s.state.Store(int32(StateCounting))
		return false
	}
	s.counter = 0
	s.state.Store(int32(StateFiring))
	return true
}

// dispatch starts a cycle in its own goroutine and returns to Idle.
func (s *Scheduler) dispatch(ctx context.Context) {
	s.fired.Add(1)
	go func() {
		err := s.runner.RunCycle(ctx)
		switch {
		case errors.Is(err, ErrCycleInFlight):
			s.logger.Warn("previous cycle still running, skipping")
		case err != nil:
			s.logger.Error("cycle failed", "error", err)
		}
	}()
	s.state.Store(int32(StateIdle))
}
