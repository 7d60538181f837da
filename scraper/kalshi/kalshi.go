// Package kalshi collects open prediction market contracts on the weekly
// number one song.
package kalshi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"chart-collector/metrics"
	"chart-collector/models"
	"chart-collector/scraper"
	"chart-collector/utils"
)

const (
	pageLimit = 200
	maxPages  = 10
	unknown   = "Unknown"
)

// Adapter lists the open markets of one series.
type Adapter struct {
	baseURL string
	apiKey  string
	series  string
	http    *utils.HTTPClient
	logger  *utils.Logger
}

// New creates an Adapter. An empty apiKey makes every Fetch return
// scraper.ErrNotConfigured.
func New(baseURL, apiKey, series string, http *utils.HTTPClient, logger *utils.Logger) *Adapter {
	return &Adapter{baseURL: strings.TrimRight(baseURL, "/"), apiKey: apiKey, series: series, http: http, logger: logger}
}

func (a *Adapter) Name() string { return models.SourceKalshi }

// HasArchive is false: only open markets are listed.
func (a *Adapter) HasArchive() bool { return false }

type market struct {
	Ticker       string  `json:"ticker"`
	Title        string  `json:"title"`
	YesBid       float64 `json:"yes_bid"`
	NoBid        float64 `json:"no_bid"`
	Volume       int64   `json:"volume"`
	OpenInterest int64   `json:"open_interest"`
}

type marketsResponse struct {
	Markets []market `json:"markets"`
	Cursor  string   `json:"cursor"`
}

// Fetch pages through the open markets of the series. Bids are quoted in
// cents and stored in dollars; the yes price doubles as the implied
// probability.
func (a *Adapter) Fetch(ctx context.Context, day time.Time) ([]models.ChartEntry, error) {
	if a.apiKey == "" {
		a.logger.Warn("[kalshi] API credentials not configured, skipping")
		return nil, scraper.ErrNotConfigured
	}
	if !day.IsZero() {
		return nil, scraper.ErrNoArchive
	}

	start := time.Now()
	defer func() {
		metrics.FetchDuration.WithLabelValues(models.SourceKalshi).Observe(time.Since(start).Seconds())
	}()

	headers := map[string]string{
		"Authorization": "Bearer " + a.apiKey,
		"Accept":        "application/json",
	}

	var markets []market
	cursor := ""
	for page := 0; page < maxPages; page++ {
		q := url.Values{
			"series_ticker": {a.series},
			"status":        {"open"},
			"limit":         {fmt.Sprint(pageLimit)},
		}
		if cursor != "" {
			q.Set("cursor", cursor)
		}

		body, err := a.http.Get(ctx, a.baseURL+"/markets?"+q.Encode(), headers)
		if err != nil {
			a.logger.Error("[kalshi] Error fetching %s markets: %v", a.series, err)
			return nil, err
		}
		var resp marketsResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, fmt.Errorf("kalshi: decode: %w", err)
		}
		markets = append(markets, resp.Markets...)

		cursor = resp.Cursor
		if cursor == "" {
			break
		}
	}

	entries := make([]models.ChartEntry, 0, len(markets))
	for _, m := range markets {
		if m.Ticker == "" {
			continue
		}
		song, artist := ParseMarketTitle(m.Title)
		yes := m.YesBid / 100
		entries = append(entries, models.ChartEntry{
			SourceID:  m.Ticker,
			Title:     song,
			Performer: artist,
			Metric:    m.Volume,
			Rank:      len(entries) + 1,
			Quote: &models.MarketQuote{
				YesPrice:           yes,
				NoPrice:            m.NoBid / 100,
				OpenInterest:       m.OpenInterest,
				ImpliedProbability: yes,
			},
		})
	}

	a.logger.Info("[kalshi] Collected %d markets", len(entries))
	return entries, nil
}

// ParseMarketTitle pulls the song and artist out of a title such as
// "Will 'Espresso' by Sabrina Carpenter be #1?". Unmatched parts are
// "Unknown".
func ParseMarketTitle(title string) (song, artist string) {
	if !strings.Contains(title, " by ") {
		return unknown, unknown
	}
	for _, quote := range []string{"'", `"`} {
		if !strings.Contains(title, quote) {
			continue
		}
		song = strings.TrimSpace(strings.Split(title, quote)[1])
		artist = strings.Split(title, " by ")[1]
		if i := strings.Index(artist, " be"); i >= 0 {
			artist = artist[:i]
		}
		artist = strings.TrimSpace(artist)
		if song == "" {
			song = unknown
		}
		if artist == "" {
			artist = unknown
		}
		return song, artist
	}
	return unknown, unknown
}
