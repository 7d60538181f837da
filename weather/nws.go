// Package weather backfills daily temperature highs, builds climatology
// features and turns a point forecast into bracket probabilities.
package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"chart-collector/models"
	"chart-collector/utils"
)

// ErrNoData means a source returned nothing usable for the requested range.
var ErrNoData = errors.New("weather: no data")

// DefaultNWSBaseURL is the National Weather Service API root.
const DefaultNWSBaseURL = "https://api.weather.gov"

// Source yields daily highs for a station.
type Source interface {
	Name() string
	DailyHighs(ctx context.Context, station string, start, end time.Time) ([]models.DailyHigh, error)
}

// NWSClient reads station observations and gridpoint forecasts.
type NWSClient struct {
	baseURL   string
	userAgent string
	http      *utils.HTTPClient
	retry     *utils.RetryConfig
	logger    *utils.Logger
	loc       *time.Location
}

// NewNWSClient creates a client. The API rejects requests without a
// contact User-Agent.
func NewNWSClient(baseURL, userAgent string, http *utils.HTTPClient, logger *utils.Logger) *NWSClient {
	return &NWSClient{
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: userAgent,
		http:      http,
		retry: &utils.RetryConfig{
			MaxAttempts: 3,
			BaseDelay:   2 * time.Second,
			Backoff:     utils.Linear,
			Logger:      logger,
		},
		logger: logger,
		loc:    time.UTC,
	}
}

func (c *NWSClient) Name() string { return "nws" }

func (c *NWSClient) getJSON(ctx context.Context, rawURL string, out any) error {
	headers := map[string]string{
		"User-Agent": c.userAgent,
		"Accept":     "application/geo+json",
	}
	return c.retry.Do(ctx, "GET "+rawURL, func() error {
		body, err := c.http.Get(ctx, rawURL, headers)
		if err != nil {
			return err
		}
		return json.Unmarshal(body, out)
	})
}

type observationsResponse struct {
	Features []struct {
		Properties struct {
			Timestamp   time.Time `json:"timestamp"`
			Temperature struct {
				Value *float64 `json:"value"`
			} `json:"temperature"`
		} `json:"properties"`
	} `json:"features"`
}

// DailyHighs requests observations one day at a time and returns the
// maximum temperature per calendar day, converted to °F.
func (c *NWSClient) DailyHighs(ctx context.Context, station string, start, end time.Time) ([]models.DailyHigh, error) {
	maxByDay := make(map[time.Time]float64)

	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		q := url.Values{}
		q.Set("start", day.Format("2006-01-02")+"T00:00:00Z")
		q.Set("end", day.Format("2006-01-02")+"T23:59:59Z")
		endpoint := fmt.Sprintf("%s/stations/%s/observations?%s", c.baseURL, url.PathEscape(station), q.Encode())

		var resp observationsResponse
		if err := c.getJSON(ctx, endpoint, &resp); err != nil {
			return nil, fmt.Errorf("nws observations %s: %w", day.Format("2006-01-02"), err)
		}

		for _, feat := range resp.Features {
			v := feat.Properties.Temperature.Value
			if v == nil {
				continue
			}
			key := dateOf(feat.Properties.Timestamp, c.loc)
			tf := CelsiusToFahrenheit(*v)
			if cur, ok := maxByDay[key]; !ok || tf > cur {
				maxByDay[key] = tf
			}
		}
	}

	return sortedHighs(maxByDay), nil
}

type pointsResponse struct {
	Properties struct {
		Forecast string `json:"forecast"`
	} `json:"properties"`
}

type forecastResponse struct {
	Properties struct {
		Updated     string `json:"updated"`
		GeneratedAt string `json:"generatedAt"`
		UpdateTime  string `json:"updateTime"`
		Periods     []struct {
			StartTime       time.Time `json:"startTime"`
			Temperature     float64   `json:"temperature"`
			TemperatureUnit string    `json:"temperatureUnit"`
			IsDaytime       bool      `json:"isDaytime"`
		} `json:"periods"`
	} `json:"properties"`
}

// ForecastHighs resolves the gridpoint for lat/lon and returns its daytime
// period temperatures as forecast highs.
func (c *NWSClient) ForecastHighs(ctx context.Context, lat, lon float64) ([]models.PointForecast, error) {
	var points pointsResponse
	if err := c.getJSON(ctx, fmt.Sprintf("%s/points/%.4f,%.4f", c.baseURL, lat, lon), &points); err != nil {
		return nil, fmt.Errorf("nws points: %w", err)
	}
	if points.Properties.Forecast == "" {
		return nil, fmt.Errorf("nws points: no forecast url: %w", ErrNoData)
	}

	var fc forecastResponse
	if err := c.getJSON(ctx, points.Properties.Forecast, &fc); err != nil {
		return nil, fmt.Errorf("nws forecast: %w", err)
	}

	issued := time.Now().UTC()
	for _, raw := range []string{fc.Properties.Updated, fc.Properties.GeneratedAt, fc.Properties.UpdateTime} {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			issued = t
			break
		}
	}

	var out []models.PointForecast
	for _, p := range fc.Properties.Periods {
		if !p.IsDaytime {
			continue
		}
		high := p.Temperature
		if p.TemperatureUnit == "C" {
			high = CelsiusToFahrenheit(high)
		}
		out = append(out, models.PointForecast{
			IssuedAt:   issued,
			TargetDate: dateOf(p.StartTime, p.StartTime.Location()),
			HighF:      high,
		})
	}
	return out, nil
}

// CelsiusToFahrenheit converts °C to °F.
func CelsiusToFahrenheit(c float64) float64 {
	return c*9/5 + 32
}

func dateOf(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func sortedHighs(byDay map[time.Time]float64) []models.DailyHigh {
	out := make([]models.DailyHigh, 0, len(byDay))
	for d, v := range byDay {
		out = append(out, models.DailyHigh{Date: d, HighF: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}
