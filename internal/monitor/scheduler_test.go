package monitor

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

type stubRunner struct {
	calls atomic.Int32
	block chan struct{}
}

func (s *stubRunner) RunCycle(ctx context.Context) error {
	s.calls.Add(1)
	if s.block != nil {
		select {
		case <-s.block:
		case <-ctx.Done():
		}
	}
	return nil
}

func eventually(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met")
}

func TestSchedulerAdvance(t *testing.T) {
	s := NewScheduler(SchedulerConfig{Tick: time.Second, Interval: 3, Grace: 2}, &stubRunner{}, nil)

	if s.State() != StateIdle {
		t.Fatalf("initial state = %s, want idle", s.State())
	}
	for i := 1; i < 5; i++ {
		if s.advance() {
			t.Fatalf("fired early at tick %d", i)
		}
		if s.State() != StateCounting {
			t.Fatalf("state after tick %d = %s, want counting", i, s.State())
		}
	}
	if !s.advance() {
		t.Fatal("expected fire at interval+grace = 5 ticks")
	}
	if s.State() != StateFiring {
		t.Errorf("state = %s, want firing", s.State())
	}
	if s.counter != 0 {
		t.Errorf("counter = %d, want reset to 0", s.counter)
	}

	// next cycle needs another full interval+grace
	for i := 1; i < 5; i++ {
		if s.advance() {
			t.Fatalf("second round fired early at tick %d", i)
		}
	}
	if !s.advance() {
		t.Fatal("expected second fire")
	}
}

func TestSchedulerNoGrace(t *testing.T) {
	s := NewScheduler(SchedulerConfig{Tick: time.Second, Interval: 1, Grace: 0}, &stubRunner{}, nil)
	for i := 0; i < 3; i++ {
		if !s.advance() {
			t.Fatalf("tick %d: interval 1 without grace should fire every tick", i)
		}
	}
}

func TestSchedulerDefaults(t *testing.T) {
	s := NewScheduler(SchedulerConfig{Grace: -3}, &stubRunner{}, nil)
	cfg := s.Config()
	if cfg.Tick != time.Second || cfg.Interval != 60 || cfg.Grace != 0 {
		t.Errorf("Config = %+v", cfg)
	}
	if got := DefaultSchedulerConfig().EffectiveInterval(); got != 65*time.Second {
		t.Errorf("EffectiveInterval = %v, want 65s", got)
	}
}

func TestSchedulerDispatchDoesNotBlock(t *testing.T) {
	runner := &stubRunner{block: make(chan struct{})}
	defer close(runner.block)
	s := NewScheduler(SchedulerConfig{Tick: time.Second, Interval: 1}, runner, nil)

	done := make(chan struct{})
	go func() {
		s.dispatch(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("dispatch blocked on a running cycle")
	}
	if s.State() != StateIdle {
		t.Errorf("state after dispatch = %s, want idle", s.State())
	}
	eventually(t, func() bool { return runner.calls.Load() == 1 })
}

func TestSchedulerRun(t *testing.T) {
	runner := &stubRunner{}
	s := NewScheduler(SchedulerConfig{Tick: 5 * time.Millisecond, Interval: 2, Grace: 1}, runner, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	eventually(t, func() bool { return runner.calls.Load() >= 2 })
}

func TestSchedulerWaitsBeforeFirstCycle(t *testing.T) {
	runner := &stubRunner{}
	s := NewScheduler(SchedulerConfig{Tick: time.Hour, Interval: 1}, runner, nil)

	ctx, cancel := context.WithCancel(context.Background())
	go s.Run(ctx)
	time.Sleep(20 * time.Millisecond)
	cancel()

	if runner.calls.Load() != 0 {
		t.Errorf("calls = %d, want 0 before the first interval", runner.calls.Load())
	}
}

func TestSchedulerPollOnStart(t *testing.T) {
	runner := &stubRunner{}
	s := NewScheduler(SchedulerConfig{Tick: time.Hour, Interval: 1, PollOnStart: true}, runner, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	eventually(t, func() bool { return runner.calls.Load() == 1 })
}

func TestSchedulerSkipsOverlappingCycle(t *testing.T) {
	block := make(chan struct{})
	slow := &blockingSource{name: SourcePool, release: block}
	reg := NewRegistry(Credentials{})
	reg.Register(slow)
	engine := NewEngine(reg, NewStore(), nil, WithFetchTimeout(time.Minute))

	s := NewScheduler(SchedulerConfig{Tick: time.Second, Interval: 1}, engine, nil)
	s.dispatch(context.Background())
	eventually(t, func() bool { return slow.calls.Load() == 1 })

	s.dispatch(context.Background())
	time.Sleep(20 * time.Millisecond)
	close(block)

	eventually(t, func() bool { return !engine.Running() })
	if got := slow.calls.Load(); got != 1 {
		t.Errorf("source calls = %d, want 1 (second cycle skipped)", got)
	}
	if s.Fired() != 2 {
		t.Errorf("Fired = %d, want 2", s.Fired())
	}
}
