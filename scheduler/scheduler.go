// Package scheduler triggers collection runs on a wall-clock schedule.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"

	"chart-collector/utils"
)

// Runner is the collection surface the scheduler drives.
// *collector.Orchestrator satisfies it.
type Runner interface {
	RunOnce(ctx context.Context) bool
	RunSource(ctx context.Context, source string) (bool, error)
}

// Config holds the schedule.
type Config struct {
	// Interval between full collection runs. The first run starts immediately.
	Interval time.Duration
	// WeeklySource is collected every Weekday at At ("15:04").
	WeeklySource string
	Weekday      time.Weekday
	At           string
	// Cooldown is slept after a job panics.
	Cooldown time.Duration
	Location *time.Location
}

// Trigger owns the gocron scheduler.
type Trigger struct {
	cfg    Config
	runner Runner
	logger *utils.Logger
	sched  *gocron.Scheduler
}

// New creates a Trigger and registers its jobs.
func New(cfg Config, runner Runner, logger *utils.Logger) (*Trigger, error) {
	if cfg.Interval <= 0 {
		return nil, fmt.Errorf("scheduler: interval must be positive, got %s", cfg.Interval)
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}

	t := &Trigger{
		cfg:    cfg,
		runner: runner,
		logger: logger,
		sched:  gocron.NewScheduler(loc),
	}
	t.sched.SingletonModeAll()
	return t, nil
}

// Run starts the jobs and blocks until ctx is done.
func (t *Trigger) Run(ctx context.Context) error {
	if _, err := t.sched.Every(t.cfg.Interval).StartImmediately().Do(func() {
		t.guard(ctx, "collection", func() {
			if !t.runner.RunOnce(ctx) {
				t.logger.Warn("[scheduler] Collection finished with failures")
			}
		})
	}); err != nil {
		return fmt.Errorf("scheduler: interval job: %w", err)
	}

	if t.cfg.WeeklySource != "" {
		if _, err := t.sched.Every(1).Week().Weekday(t.cfg.Weekday).At(t.cfg.At).Do(func() {
			t.guard(ctx, t.cfg.WeeklySource, func() {
				ok, err := t.runner.RunSource(ctx, t.cfg.WeeklySource)
				if err != nil || !ok {
					t.logger.Warn("[scheduler] Weekly %s collection failed: %v", t.cfg.WeeklySource, err)
				}
			})
		}); err != nil {
			return fmt.Errorf("scheduler: weekly job: %w", err)
		}
	}

	t.logger.Info("[scheduler] Started: every %s, %s on %s at %s",
		t.cfg.Interval, t.cfg.WeeklySource, t.cfg.Weekday, t.cfg.At)
	t.sched.StartAsync()

	<-ctx.Done()
	t.logger.Info("[scheduler] Stopping")
	t.sched.Stop()
	return nil
}

// guard runs fn and turns a panic into a log line followed by the cooldown.
func (t *Trigger) guard(ctx context.Context, name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Error("[scheduler] %s job panicked: %v; cooling down for %s", name, r, t.cfg.Cooldown)
			_ = utils.Sleep(ctx, t.cfg.Cooldown)
		}
	}()
	fn()
}
