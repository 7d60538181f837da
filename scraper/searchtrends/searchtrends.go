// Package searchtrends records daily search interest for the songs at the
// top of the latest streaming chart.
package searchtrends

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gonum.org/v1/gonum/stat"

	"chart-collector/metrics"
	"chart-collector/models"
	"chart-collector/scraper"
	"chart-collector/storage"
	"chart-collector/trends"
	"chart-collector/utils"
)

const (
	// batchSize is the most terms a single comparison accepts.
	batchSize = 5
	timeframe = "now 7-d"
	geo       = "US"
	// momentumBand is the percentage change that separates stable from
	// rising or falling interest.
	momentumBand = 10.0
)

// ErrNoSongs means the streaming chart has nothing stored yet.
var ErrNoSongs = errors.New("no chart songs to track")

// Adapter queries search interest in batches for the latest top songs.
type Adapter struct {
	client trends.Client
	songs  storage.Reader
	limit  int
	pause  time.Duration
	logger *utils.Logger
}

// New creates an Adapter reading up to limit songs from songs. pause is
// slept between batches.
func New(client trends.Client, songs storage.Reader, limit int, pause time.Duration, logger *utils.Logger) *Adapter {
	return &Adapter{client: client, songs: songs, limit: limit, pause: pause, logger: logger}
}

func (a *Adapter) Name() string { return models.SourceSearch }

// HasArchive is false: interest is only read for the current week.
func (a *Adapter) HasArchive() bool { return false }

// Fetch returns one entry per tracked song with its latest interest value
// and trend direction. A failed batch is logged and skipped.
func (a *Adapter) Fetch(ctx context.Context, day time.Time) ([]models.ChartEntry, error) {
	if !day.IsZero() {
		return nil, scraper.ErrNoArchive
	}
	if a.songs == nil {
		a.logger.Warn("[trends] No stored chart to read songs from, skipping")
		return nil, scraper.ErrNotConfigured
	}

	start := time.Now()
	defer func() {
		metrics.FetchDuration.WithLabelValues(models.SourceSearch).Observe(time.Since(start).Seconds())
	}()

	table, err := storage.TableFor(models.SourceSpotify)
	if err != nil {
		return nil, err
	}
	songs, err := a.songs.Latest(ctx, table, a.limit)
	if err != nil {
		return nil, fmt.Errorf("read top songs: %w", err)
	}
	if len(songs) == 0 {
		a.logger.Warn("[trends] No top songs available")
		return nil, ErrNoSongs
	}
	a.logger.Info("[trends] Reading search interest for %d songs", len(songs))

	var entries []models.ChartEntry
	for i := 0; i < len(songs); i += batchSize {
		if i > 0 {
			if err := utils.Sleep(ctx, a.pause); err != nil {
				return entries, err
			}
		}
		end := i + batchSize
		if end > len(songs) {
			end = len(songs)
		}
		batch := songs[i:end]

		terms := make([]string, len(batch))
		for j, s := range batch {
			terms[j] = Keyword(s)
		}
		series, err := a.client.InterestOverTime(ctx, trends.Query{Terms: terms, Timeframe: timeframe, Geo: geo})
		if err != nil {
			a.logger.Error("[trends] Batch %d-%d failed: %v", i+1, end, err)
			continue
		}

		for j, s := range batch {
			points := series[terms[j]]
			if len(points) == 0 {
				continue
			}
			values := make([]float64, len(points))
			for k, p := range points {
				values[k] = float64(p.Value)
			}
			entries = append(entries, models.ChartEntry{
				Title:     s.Title,
				Performer: s.Performer,
				Metric:    int64(points[len(points)-1].Value),
				Rank:      i + j + 1,
				Direction: Direction(Momentum(values)),
			})
		}
	}

	a.logger.Info("[trends] Collected interest for %d songs", len(entries))
	return entries, nil
}

// Keyword is the search term used for a song.
func Keyword(e models.ChartEntry) string {
	return e.Title + " " + e.Performer
}

// Momentum is the percentage change of the mean of the last seven values
// against the seven before. Fewer than seven values give 0; fewer than
// fourteen compare the recent mean with itself.
func Momentum(values []float64) float64 {
	n := len(values)
	if n < 7 {
		return 0
	}
	recent := stat.Mean(values[n-7:], nil)
	previous := recent
	if n >= 14 {
		previous = stat.Mean(values[n-14:n-7], nil)
	}
	if previous == 0 {
		return 0
	}
	return (recent - previous) / previous * 100
}

// Direction classifies a momentum percentage.
func Direction(momentum float64) string {
	switch {
	case momentum > momentumBand:
		return models.TrendRising
	case momentum < -momentumBand:
		return models.TrendFalling
	default:
		return models.TrendStable
	}
}
