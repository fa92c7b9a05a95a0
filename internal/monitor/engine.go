package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/web3-frozen/miner-dashboard/internal/metrics"
)

const defaultFetchTimeout = 15 * time.Second

// ErrCycleInFlight is returned when a cycle is requested while another runs.
var ErrCycleInFlight = errors.New("cycle already in flight")

// Engine runs aggregation cycles: it fans out to every active source and
// folds each outcome into the Store independently of the others.
type Engine struct {
	registry     *Registry
	store        *Store
	logger       *slog.Logger
	tracer       trace.Tracer
	fetchTimeout time.Duration
	now          func() time.Time

	running atomic.Bool
}

// EngineOption customises an Engine.
type EngineOption func(*Engine)

// WithFetchTimeout bounds every single source fetch.
func WithFetchTimeout(d time.Duration) EngineOption {
	return func(e *Engine) {
		if d > 0 {
			e.fetchTimeout = d
		}
	}
}

// WithTracer sets the tracer used for cycle spans.
func WithTracer(t trace.Tracer) EngineOption {
	return func(e *Engine) {
		if t != nil {
			e.tracer = t
		}
	}
}

func NewEngine(reg *Registry, store *Store, logger *slog.Logger, opts ...EngineOption) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{
		registry:     reg,
		store:        store,
		logger:       logger,
		tracer:       noop.NewTracerProvider().Tracer("monitor"),
		fetchTimeout: defaultFetchTimeout,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Store returns the snapshot store the engine writes to.
func (e *Engine) Store() *Store { return e.store }

// Running reports whether a cycle is in flight.
func (e *Engine) Running() bool { return e.running.Load() }

// RunCycle runs every active source once and waits for all of them.
// Only one cycle runs at a time; a concurrent call gets ErrCycleInFlight.
func (e *Engine) RunCycle(ctx context.Context) error {
	if !e.running.CompareAndSwap(false, true) {
		metrics.CycleTotal.WithLabelValues("skipped").Inc()
		return ErrCycleInFlight
	}
	defer e.running.Store(false)

	cycleID := uuid.NewString()
	ctx, span := e.tracer.Start(ctx, "monitor.cycle", trace.WithAttributes(attribute.String("cycle_id", cycleID)))
	defer span.End()

	start := e.now()
	creds := e.registry.Credentials()
	sources := e.registry.ActiveSources()
	names := make([]string, len(sources))
	for i, src := range sources {
		names[i] = src.Name()
	}

	// flags go up before anything is dispatched
	e.store.beginCycle(start, names)

	var wg sync.WaitGroup
	var ok, failed atomic.Int64
	for _, src := range sources {
		wg.Add(1)
		go func(src Source) {
			defer wg.Done()
			o := e.fetch(ctx, src, creds)
			if o.OK() {
				ok.Add(1)
			} else {
				failed.Add(1)
			}
			e.record(cycleID, o)
		}(src)
	}
	wg.Wait()

	elapsed := e.now().Sub(start)
	metrics.CycleTotal.WithLabelValues("completed").Inc()
	metrics.CycleDuration.Observe(elapsed.Seconds())

	e.logger.Info("poll cycle complete",
		"cycle_id", cycleID,
		"sources", len(sources),
		"ok", ok.Load(),
		"unavailable", failed.Load(),
		"duration", elapsed.String(),
	)
	return nil
}

// fetch runs one source with its own deadline.
func (e *Engine) fetch(ctx context.Context, src Source, creds Credentials) Outcome {
	start := e.now()
	o := fetchWithTimeout(ctx, src, creds, e.fetchTimeout)
	if o.Source == "" {
		o.Source = src.Name()
	}
	metrics.PollDuration.WithLabelValues(src.Name()).Observe(e.now().Sub(start).Seconds())
	return o
}

// record folds an outcome into the store and reports it.
func (e *Engine) record(cycleID string, o Outcome) {
	if !e.store.fold(o) {
		e.logger.Warn("outcome from unknown source ignored", "cycle_id", cycleID, "source", o.Source)
	}
	metrics.PollTotal.WithLabelValues(o.Source, o.Status()).Inc()

	if !o.OK() {
		level := slog.LevelWarn
		if o.Reason == ReasonDisabled {
			level = slog.LevelDebug
		}
		e.logger.Log(context.Background(), level, "source unavailable",
			"cycle_id", cycleID,
			"source", o.Source,
			"reason", o.Reason,
			"error", o.Err,
		)
		return
	}

	metrics.PollLastSuccess.WithLabelValues(o.Source).Set(float64(o.FetchedAt.Unix()))
	for name, v := range o.Metrics {
		metrics.MetricValue.WithLabelValues(o.Source, name).Set(v)
	}
	e.logger.Debug("snapshot", "cycle_id", cycleID, "source", o.Source, "metrics", o.Metrics, "version", e.store.Version())
}

// fetchWithTimeout calls src.Fetch but gives up after d even if the source
// ignores its context. A panicking source yields ReasonInternal.
func fetchWithTimeout(ctx context.Context, src Source, creds Credentials, d time.Duration) Outcome {
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	done := make(chan Outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- Unavailable(src.Name(), ReasonInternal, fmt.Errorf("source panic: %v", r))
			}
		}()
		done <- src.Fetch(ctx, creds)
	}()

	select {
	case o := <-done:
		return o
	case <-ctx.Done():
		return Unavailable(src.Name(), ReasonNetwork, fmt.Errorf("fetch %s: %w", src.Name(), ctx.Err()))
	}
}
