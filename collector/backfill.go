package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"chart-collector/metrics"
	"chart-collector/models"
	"chart-collector/scraper/billboard"
	"chart-collector/services"
	"chart-collector/storage"
	"chart-collector/utils"
)

// Cadence is how far the backfill advances per period.
type Cadence int

const (
	Daily Cadence = iota
	// Weekly periods are anchored on Saturday, the chart-of-record date.
	Weekly
)

// Backfill replays one adapter across a date range, one period at a time.
type Backfill struct {
	job     Job
	cadence Cadence
	delay   time.Duration
	writer  storage.Writer
	cleaner *services.Cleaner
	logger  *utils.Logger
}

// NewBackfill creates a Backfill for job. Weekly cadence is used for the
// chart-of-record, daily for everything else.
func NewBackfill(job Job, writer storage.Writer, dailyDelay, weeklyDelay time.Duration, logger *utils.Logger) *Backfill {
	b := &Backfill{
		job:     job,
		cadence: Daily,
		delay:   dailyDelay,
		writer:  writer,
		cleaner: services.NewCleaner(logger),
		logger:  logger,
	}
	if job.Adapter.Name() == models.SourceBillboard {
		b.cadence = Weekly
		b.delay = weeklyDelay
	}
	return b
}

// Periods returns the dates a run over [start, end] visits.
func (b *Backfill) Periods(start, end time.Time) []time.Time {
	if b.cadence == Weekly {
		return billboard.ChartWeeks(start, end)
	}
	var days []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

// Run fetches and stores every period in [start, end] and returns how many
// periods were stored. A failed period is logged and the loop moves on.
func (b *Backfill) Run(ctx context.Context, start, end time.Time) int {
	source := b.job.Adapter.Name()
	periods := b.Periods(start, end)
	runID := uuid.NewString()

	b.logger.Info("[backfill] Run %s: %s from %s to %s (%d periods)",
		runID, source, start.Format("2006-01-02"), end.Format("2006-01-02"), len(periods))

	success := 0
	for i, day := range periods {
		if ctx.Err() != nil {
			b.logger.Warn("[backfill] %s cancelled after %d periods", source, i)
			break
		}

		if err := b.period(ctx, day); err != nil {
			b.logger.Warn("[backfill] %s %s: %v", source, day.Format("2006-01-02"), err)
			metrics.BackfillPeriods.WithLabelValues(source, "failed").Inc()
		} else {
			success++
			b.logger.Info("[backfill] %s %s collected", source, day.Format("2006-01-02"))
			metrics.BackfillPeriods.WithLabelValues(source, "ok").Inc()
		}

		if i < len(periods)-1 {
			if err := utils.Sleep(ctx, b.delay); err != nil {
				break
			}
		}
	}

	b.logger.Info("[backfill] %s complete: %d/%d periods collected", source, success, len(periods))
	return success
}

func (b *Backfill) period(ctx context.Context, day time.Time) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	entries, err := b.job.Adapter.Fetch(ctx, day)
	if err != nil {
		return err
	}
	entries = b.cleaner.Clean(b.job.Adapter.Name(), entries)
	if len(entries) == 0 {
		return fmt.Errorf("no data")
	}
	if !b.writer.Write(b.job.Table, TopN(entries, b.job.TopN), day) {
		return fmt.Errorf("storage write failed")
	}
	return nil
}
