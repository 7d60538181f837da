// Package tiktok collects trending sounds from the RapidAPI TikTok scraper.
package tiktok

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"chart-collector/metrics"
	"chart-collector/models"
	"chart-collector/scraper"
	"chart-collector/utils"
)

const (
	// DefaultBaseURL is the RapidAPI endpoint root.
	DefaultBaseURL = "https://tiktok-scraper7.p.rapidapi.com"
	rapidAPIHost   = "tiktok-scraper7.p.rapidapi.com"
	trendingCount  = 100
)

// Adapter fetches the trending music list.
type Adapter struct {
	baseURL string
	apiKey  string
	http    *utils.HTTPClient
	logger  *utils.Logger
}

// New creates an Adapter. An empty apiKey makes every Fetch return
// scraper.ErrNotConfigured.
func New(baseURL, apiKey string, http *utils.HTTPClient, logger *utils.Logger) *Adapter {
	return &Adapter{baseURL: baseURL, apiKey: apiKey, http: http, logger: logger}
}

func (a *Adapter) Name() string { return models.SourceTikTok }

// HasArchive is false: the trending feed is live only.
func (a *Adapter) HasArchive() bool { return false }

type trendingResponse struct {
	Data []sound `json:"data"`
}

// sound accepts both field spellings the API has used.
type sound struct {
	ID         flexString `json:"id"`
	MusicID    flexString `json:"music_id"`
	Title      string     `json:"title"`
	Name       string     `json:"name"`
	Author     string     `json:"author"`
	Artist     string     `json:"artist"`
	VideoCount int64      `json:"video_count"`
	UseCount   int64      `json:"use_count"`
	PlayCount  int64      `json:"play_count"`
}

// flexString decodes a JSON string or number.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

// Fetch returns up to 100 trending sounds ranked by their list position.
// Archived days are not available.
func (a *Adapter) Fetch(ctx context.Context, day time.Time) ([]models.ChartEntry, error) {
	if a.apiKey == "" {
		a.logger.Warn("[tiktok] API key not configured, skipping")
		return nil, scraper.ErrNotConfigured
	}
	if !day.IsZero() {
		return nil, scraper.ErrNoArchive
	}

	start := time.Now()
	defer func() {
		metrics.FetchDuration.WithLabelValues(models.SourceTikTok).Observe(time.Since(start).Seconds())
	}()

	q := url.Values{"count": {strconv.Itoa(trendingCount)}}
	endpoint := a.baseURL + "/music/trending?" + q.Encode()
	a.logger.Info("[tiktok] Fetching trending sounds")

	body, err := a.http.Get(ctx, endpoint, map[string]string{
		"X-RapidAPI-Key":  a.apiKey,
		"X-RapidAPI-Host": rapidAPIHost,
	})
	if err != nil {
		a.logger.Error("[tiktok] Error fetching trending music: %v", err)
		return nil, err
	}

	var resp trendingResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		a.logger.Error("[tiktok] Error decoding response: %v", err)
		return nil, fmt.Errorf("tiktok: decode: %w", err)
	}

	entries := make([]models.ChartEntry, 0, len(resp.Data))
	for i, s := range resp.Data {
		if i >= trendingCount {
			break
		}
		id := firstNonEmpty(string(s.ID), string(s.MusicID))
		title := firstNonEmpty(s.Title, s.Name)
		if id == "" || title == "" {
			a.logger.Warn("[tiktok] Skipping sound %d without id or title", i+1)
			continue
		}
		count := s.VideoCount
		if count == 0 {
			count = s.UseCount
		}
		entries = append(entries, models.ChartEntry{
			SourceID:  id,
			Title:     title,
			Performer: firstNonEmpty(s.Author, s.Artist),
			Metric:    count,
			Rank:      i + 1,
		})
	}

	a.logger.Info("[tiktok] Collected %d sounds", len(entries))
	return entries, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
