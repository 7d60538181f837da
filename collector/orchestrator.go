// Package collector runs chart adapters and hands their output to storage.
package collector

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"chart-collector/metrics"
	"chart-collector/models"
	"chart-collector/scraper"
	"chart-collector/services"
	"chart-collector/storage"
	"chart-collector/utils"
)

// Job binds an adapter to its table and top-N cap.
type Job struct {
	Adapter scraper.Adapter
	Table   *storage.Table
	TopN    int
	// Trigger reports whether the job runs on day. Nil runs every day.
	Trigger func(day time.Time) bool
}

// Orchestrator collects every configured source once per run, one after
// the other, with a fixed pause in between.
type Orchestrator struct {
	jobs    []Job
	writer  storage.Writer
	cleaner *services.Cleaner
	summary *services.SummaryService
	pause   time.Duration
	logger  *utils.Logger
	now     func() time.Time

	mu      sync.Mutex
	results map[string]*bool
	last    *models.RunReport
}

// New creates an Orchestrator.
func New(jobs []Job, writer storage.Writer, pause time.Duration, logger *utils.Logger) *Orchestrator {
	return &Orchestrator{
		jobs:    jobs,
		writer:  writer,
		cleaner: services.NewCleaner(logger),
		summary: services.NewSummaryService(logger),
		pause:   pause,
		logger:  logger,
		now:     time.Now,
	}
}

// RunOnce collects every source and logs a summary. It returns true when
// no source failed; skipped sources do not count as failures.
func (o *Orchestrator) RunOnce(ctx context.Context) bool {
	runID := uuid.NewString()
	started := o.now()
	day := truncateDay(started)

	o.logger.Info("[collector] Run %s starting for %s (%d sources)", runID, day.Format("2006-01-02"), len(o.jobs))

	results := make([]models.SourceResult, 0, len(o.jobs))
	top := make(map[string]models.ChartEntry)

	for i, job := range o.jobs {
		if i > 0 {
			if err := utils.Sleep(ctx, o.pause); err != nil {
				o.logger.Warn("[collector] Run %s cancelled: %v", runID, err)
				break
			}
		}

		var res models.SourceResult
		if job.Trigger != nil && !job.Trigger(day) {
			o.logger.Info("[collector] %s not scheduled today, skipping", job.Adapter.Name())
			res = models.SourceResult{Source: job.Adapter.Name()}
		} else {
			var first *models.ChartEntry
			res, first = o.collect(ctx, job, day)
			if first != nil {
				top[res.Source] = *first
			}
		}

		metrics.SourceRuns.WithLabelValues(res.Source, statusLabel(res.Status)).Inc()
		results = append(results, res)
	}

	report := o.summary.Generate(runID, started, results, top)
	o.summary.Print(report)

	statuses := make(map[string]*bool, len(results))
	for _, r := range results {
		statuses[r.Source] = r.Status
	}
	o.mu.Lock()
	o.results = statuses
	o.last = report
	o.mu.Unlock()

	return report.Failed == 0
}

// RunSource collects a single source immediately, ignoring its trigger.
func (o *Orchestrator) RunSource(ctx context.Context, source string) (bool, error) {
	for _, job := range o.jobs {
		if job.Adapter.Name() != source {
			continue
		}
		res, _ := o.collect(ctx, job, truncateDay(o.now()))
		metrics.SourceRuns.WithLabelValues(res.Source, statusLabel(res.Status)).Inc()
		if res.Status == nil {
			return false, res.Err
		}
		return *res.Status, res.Err
	}
	return false, fmt.Errorf("collector: no job for source %q", source)
}

// Results returns the per-source status of the last completed run.
func (o *Orchestrator) Results() map[string]*bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make(map[string]*bool, len(o.results))
	for k, v := range o.results {
		out[k] = v
	}
	return out
}

// LastReport returns the summary of the last completed run, or nil.
func (o *Orchestrator) LastReport() *models.RunReport {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.last
}

func (o *Orchestrator) collect(ctx context.Context, job Job, day time.Time) (res models.SourceResult, first *models.ChartEntry) {
	name := job.Adapter.Name()
	start := time.Now()
	res.Source = name

	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("[collector] %s panicked: %v", name, r)
			res.Status = models.Bool(false)
			res.Err = fmt.Errorf("panic: %v", r)
			first = nil
		}
		res.Elapsed = time.Since(start)
	}()

	o.logger.Info("[collector] Collecting %s", name)

	entries, err := job.Adapter.Fetch(ctx, time.Time{})
	if errors.Is(err, scraper.ErrNotConfigured) {
		res.Err = err
		return res, nil
	}
	if len(entries) == 0 {
		if fb, ok := job.Adapter.(scraper.Fallbacker); ok {
			alt, fbErr := fb.Fallback(ctx)
			if fbErr != nil || len(alt) > 0 {
				entries, err = alt, fbErr
			}
		}
	}

	entries = o.cleaner.Clean(name, entries)
	if len(entries) == 0 {
		if err == nil {
			err = errors.New("no data")
		}
		o.logger.Error("[collector] No data collected for %s: %v", name, err)
		res.Status = models.Bool(false)
		res.Err = err
		return res, nil
	}

	entries = TopN(entries, job.TopN)
	ok := o.writer.Write(job.Table, entries, day)
	res.Status = models.Bool(ok)
	if !ok {
		res.Err = errors.New("storage write failed")
		return res, nil
	}
	res.Rows = len(entries)
	o.logger.Info("[collector] Stored %d %s rows", len(entries), name)
	return res, &entries[0]
}

// TopN returns the first n entries; n <= 0 keeps them all.
func TopN(entries []models.ChartEntry, n int) []models.ChartEntry {
	if n > 0 && len(entries) > n {
		return entries[:n]
	}
	return entries
}

// WeeklyTrigger returns a Trigger that only fires on weekday.
func WeeklyTrigger(weekday time.Weekday) func(time.Time) bool {
	return func(day time.Time) bool { return day.Weekday() == weekday }
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func statusLabel(status *bool) string {
	switch {
	case status == nil:
		return "skipped"
	case *status:
		return "ok"
	default:
		return "failed"
	}
}
