package daemon

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"darkroom/internal/testsupport"
	"darkroom/internal/workflow"
)

type countingRunner struct {
	runs atomic.Int32
}

func (c *countingRunner) RunOnce(ctx context.Context) (workflow.Summary, error) {
	c.runs.Add(1)
	return workflow.Summary{}, nil
}

func TestStartRunsImmediately(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	runner := &countingRunner{}

	d, err := New(cfg, runner, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer d.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for runner.runs.Load() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("no run triggered after start")
		}
		time.Sleep(10 * time.Millisecond)
	}
	if !d.Running() {
		t.Fatal("daemon should report running")
	}
}

func TestSecondInstanceRejected(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	runner := &countingRunner{}

	first, err := New(cfg, runner, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := first.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer first.Stop()

	second, err := New(cfg, runner, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := second.Start(context.Background()); err == nil {
		second.Stop()
		t.Fatal("second instance must be rejected while lock is held")
	}
}

func TestStopReleasesLock(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	runner := &countingRunner{}

	d, err := New(cfg, runner, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	d.Stop()
	if d.Running() {
		t.Fatal("daemon should not report running after stop")
	}

	next, err := New(cfg, runner, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := next.Start(context.Background()); err != nil {
		t.Fatalf("lock should be free after stop: %v", err)
	}
	next.Stop()
}

func TestContextCancelStopsLoop(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	runner := &countingRunner{}

	d, err := New(cfg, runner, nil)
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	if err := d.Start(ctx); err != nil {
		t.Fatal(err)
	}
	cancel()

	select {
	case <-d.done:
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not exit after context cancellation")
	}
}

func TestUntilNextMidnight(t *testing.T) {
	now := time.Date(2026, 7, 3, 23, 0, 0, 0, time.UTC)
	if got := untilNextMidnight(now); got != time.Hour {
		t.Fatalf("until midnight = %v", got)
	}

	justAfter := time.Date(2026, 7, 4, 0, 0, 1, 0, time.UTC)
	got := untilNextMidnight(justAfter)
	if got <= 0 || got > 24*time.Hour {
		t.Fatalf("until midnight = %v", got)
	}
}
