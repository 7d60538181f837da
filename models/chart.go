package models

import "time"

// Source keys. They double as CSV directory names and metric labels.
const (
	SourceSpotify    = "spotify"
	SourceYouTube    = "youtube"
	SourceITunes     = "itunes"
	SourceAppleMusic = "apple_music"
	SourceRadio      = "radio"
	SourceTikTok     = "tiktok"
	SourceBillboard  = "billboard"
	// SourceSearch is per-song search interest from Google Trends.
	SourceSearch = "google_trends"
	SourceKalshi = "kalshi"
)

// Trend directions for search interest momentum.
const (
	TrendRising  = "rising"
	TrendFalling = "falling"
	TrendStable  = "stable"
)

// ChartEntry is one parsed row of a chart page.
type ChartEntry struct {
	SourceID  string
	Title     string
	Performer string
	Metric    int64
	Rank      int
	// Weeks is only set for chart-of-record entries.
	Weeks int
	// Direction is only set for search interest entries.
	Direction string
	// Quote is only set for prediction market entries.
	Quote *MarketQuote
}

// MarketQuote holds prices of a yes/no contract in dollars.
type MarketQuote struct {
	YesPrice     float64
	NoPrice      float64
	OpenInterest int64
	// ImpliedProbability is the yes price read as a probability.
	ImpliedProbability float64
}

// SourceResult is the outcome of collecting one source in a run.
// Status is nil when the source was intentionally skipped.
type SourceResult struct {
	Source  string
	Status  *bool
	Rows    int
	Elapsed time.Duration
	Err     error
}

// RunReport summarises one orchestrator run.
type RunReport struct {
	RunID     string
	StartedAt time.Time
	Elapsed   time.Duration
	Results   []SourceResult
	Succeeded int
	Failed    int
	Skipped   int
	// TopEntries holds the highest ranked entry per source that wrote rows.
	TopEntries map[string]ChartEntry
}

// Bool returns a pointer to b, for SourceResult.Status.
func Bool(b bool) *bool { return &b }
