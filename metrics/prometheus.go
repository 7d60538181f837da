package metrics

import (
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RowsWritten = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chart_rows_written_total",
			Help: "Chart rows persisted per source and storage backend",
		},
		[]string{"source", "backend"},
	)

	SourceRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chart_source_runs_total",
			Help: "Collection attempts per source by outcome (ok, failed, skipped)",
		},
		[]string{"source", "status"},
	)

	FetchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chart_fetch_duration_seconds",
			Help:    "Time spent fetching and parsing one chart page",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"source"},
	)

	BackfillPeriods = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chart_backfill_periods_total",
			Help: "Backfill periods processed per source by outcome",
		},
		[]string{"source", "status"},
	)

	TrendsRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trends_requests_total",
			Help: "Trends API requests by endpoint and outcome",
		},
		[]string{"endpoint", "status"},
	)

	TrendsCacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "trends_cache_hits_total",
			Help: "Trends responses served from the cache",
		},
	)
)

var once sync.Once

// Init registers all collectors with the default registry. Safe to call more than once.
func Init() {
	once.Do(func() {
		prometheus.MustRegister(RowsWritten)
		prometheus.MustRegister(SourceRuns)
		prometheus.MustRegister(FetchDuration)
		prometheus.MustRegister(BackfillPeriods)
		prometheus.MustRegister(TrendsRequests)
		prometheus.MustRegister(TrendsCacheHits)
	})
}

func MetricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
