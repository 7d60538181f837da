package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"chart-collector/utils"
)

type fakeRunner struct {
	runs    atomic.Int32
	sources atomic.Int32
	panics  bool
}

func (f *fakeRunner) RunOnce(ctx context.Context) bool {
	n := f.runs.Add(1)
	if f.panics && n == 1 {
		panic("adapter exploded")
	}
	return true
}

func (f *fakeRunner) RunSource(ctx context.Context, source string) (bool, error) {
	f.sources.Add(1)
	return true, nil
}

func TestNewRejectsZeroInterval(t *testing.T) {
	if _, err := New(Config{}, &fakeRunner{}, utils.NewNopLogger()); err == nil {
		t.Error("New with zero interval should fail")
	}
}

func TestGuardRecoversAndCoolsDown(t *testing.T) {
	tr, err := New(Config{Interval: time.Hour, Cooldown: 20 * time.Millisecond}, &fakeRunner{}, utils.NewNopLogger())
	if err != nil {
		t.Fatal(err)
	}

	start := time.Now()
	tr.guard(context.Background(), "test", func() { panic("boom") })
	if elapsed := time.Since(start); elapsed < 20*time.Millisecond {
		t.Errorf("guard returned after %s; want at least the cooldown", elapsed)
	}

	ran := false
	tr.guard(context.Background(), "test", func() { ran = true })
	if !ran {
		t.Error("guard did not run fn")
	}
}

func TestRunStartsImmediatelyAndStops(t *testing.T) {
	r := &fakeRunner{panics: true}
	tr, err := New(Config{
		Interval:     time.Hour,
		WeeklySource: "billboard",
		Weekday:      time.Saturday,
		At:           "14:00",
	}, r, utils.NewNopLogger())
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- tr.Run(ctx) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after the context ended")
	}

	if got := r.runs.Load(); got != 1 {
		t.Errorf("RunOnce called %d times; want 1 immediate run", got)
	}
}
