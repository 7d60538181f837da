package weather

import (
	"context"
	"time"

	"chart-collector/models"
	"chart-collector/utils"
)

// DefaultChunkDays is the window requested per call during a backfill.
const DefaultChunkDays = 5

// Backfiller fetches highs in small windows and keeps going when one fails.
type Backfiller struct {
	source    Source
	chunkDays int
	throttle  *utils.Throttle
	logger    *utils.Logger
}

// NewBackfiller creates a Backfiller. pause is the minimum gap between
// chunk requests.
func NewBackfiller(source Source, chunkDays int, pause time.Duration, logger *utils.Logger) *Backfiller {
	if chunkDays < 1 {
		chunkDays = DefaultChunkDays
	}
	return &Backfiller{
		source:    source,
		chunkDays: chunkDays,
		throttle:  utils.NewThrottle(pause),
		logger:    logger,
	}
}

// Run returns the highs for [start, end], deduplicated by date and sorted.
// Failed chunks are logged and skipped; ErrNoData is returned when every
// chunk came back empty.
func (b *Backfiller) Run(ctx context.Context, station string, start, end time.Time) ([]models.DailyHigh, error) {
	byDay := make(map[time.Time]float64)

	for cur := start; !cur.After(end); {
		chunkEnd := cur.AddDate(0, 0, b.chunkDays-1)
		if chunkEnd.After(end) {
			chunkEnd = end
		}

		if err := b.throttle.Wait(ctx); err != nil {
			return nil, err
		}

		b.logger.Info("[weather] Fetching %s %s -> %s from %s",
			station, cur.Format("2006-01-02"), chunkEnd.Format("2006-01-02"), b.source.Name())

		highs, err := b.source.DailyHighs(ctx, station, cur, chunkEnd)
		switch {
		case err != nil:
			b.logger.Warn("[weather] Failed chunk %s -> %s: %v", cur.Format("2006-01-02"), chunkEnd.Format("2006-01-02"), err)
		case len(highs) == 0:
			b.logger.Info("[weather] No observations returned for this range")
		default:
			b.logger.Info("[weather] Got %d days", len(highs))
			for _, h := range highs {
				if _, seen := byDay[h.Date]; !seen {
					byDay[h.Date] = h.HighF
				}
			}
		}

		cur = chunkEnd.AddDate(0, 0, 1)
	}

	if len(byDay) == 0 {
		return nil, ErrNoData
	}
	return sortedHighs(byDay), nil
}
