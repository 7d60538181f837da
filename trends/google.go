package trends

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"chart-collector/models"
	"chart-collector/utils"
)

// DefaultGoogleURL is the Google Trends web root.
const DefaultGoogleURL = "https://trends.google.com"

// GoogleClient talks to the unofficial Google Trends JSON endpoints: an
// explore call hands out per-widget tokens that unlock the widgetdata
// endpoints.
type GoogleClient struct {
	baseURL  string
	hl       string
	tz       int
	http     *utils.HTTPClient
	throttle *utils.Throttle
	retry    *utils.RetryConfig
	logger   *utils.Logger
}

// NewGoogleClient creates a client. hl is the interface language, e.g. en-US.
func NewGoogleClient(baseURL, hl string, http *utils.HTTPClient, pause time.Duration, logger *utils.Logger) *GoogleClient {
	return &GoogleClient{
		baseURL:  strings.TrimRight(baseURL, "/"),
		hl:       hl,
		tz:       300,
		http:     http,
		throttle: utils.NewThrottle(pause),
		retry: &utils.RetryConfig{
			MaxAttempts: 3,
			BaseDelay:   5 * time.Second,
			Backoff:     utils.Exponential,
			Logger:      logger,
		},
		logger: logger,
	}
}

type widget struct {
	ID      string          `json:"id"`
	Token   string          `json:"token"`
	Request json.RawMessage `json:"request"`
}

type comparisonItem struct {
	Keyword string `json:"keyword"`
	Time    string `json:"time"`
	Geo     string `json:"geo"`
}

// get fetches a Trends endpoint and strips the )]}' anti-hijacking prefix.
func (g *GoogleClient) get(ctx context.Context, path string, params url.Values, out any) error {
	params.Set("hl", g.hl)
	params.Set("tz", strconv.Itoa(g.tz))
	endpoint := g.baseURL + path + "?" + params.Encode()

	return g.retry.Do(ctx, "GET "+path, func() error {
		if err := g.throttle.Wait(ctx); err != nil {
			return err
		}
		body, err := g.http.Get(ctx, endpoint, map[string]string{"Accept": "application/json"})
		if err != nil {
			return err
		}
		body = bytes.TrimPrefix(bytes.TrimSpace(body), []byte(")]}'"))
		body = bytes.TrimLeft(body, ",\r\n ")
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("decode %s: %w", path, err)
		}
		return nil
	})
}

func (g *GoogleClient) explore(ctx context.Context, q Query) ([]widget, error) {
	items := make([]comparisonItem, len(q.Terms))
	for i, t := range q.Terms {
		items[i] = comparisonItem{Keyword: t, Time: q.Timeframe, Geo: q.Geo}
	}
	payload, err := json.Marshal(map[string]any{
		"comparisonItem": items,
		"category":       q.Category,
		"property":       "",
	})
	if err != nil {
		return nil, err
	}

	var resp struct {
		Widgets []widget `json:"widgets"`
	}
	if err := g.get(ctx, "/trends/api/explore", url.Values{"req": {string(payload)}}, &resp); err != nil {
		return nil, err
	}
	return resp.Widgets, nil
}

func findWidget(widgets []widget, prefix string) (widget, bool) {
	for _, w := range widgets {
		if strings.HasPrefix(w.ID, prefix) {
			return w, true
		}
	}
	return widget{}, false
}

func (g *GoogleClient) InterestOverTime(ctx context.Context, q Query) (map[string][]models.Point, error) {
	widgets, err := g.explore(ctx, q)
	if err != nil {
		return nil, err
	}
	w, ok := findWidget(widgets, "TIMESERIES")
	if !ok {
		return nil, fmt.Errorf("explore: no TIMESERIES widget")
	}

	var resp struct {
		Default struct {
			TimelineData []struct {
				Time  string `json:"time"`
				Value []int  `json:"value"`
			} `json:"timelineData"`
		} `json:"default"`
	}
	params := url.Values{"req": {string(w.Request)}, "token": {w.Token}}
	if err := g.get(ctx, "/trends/api/widgetdata/multiline", params, &resp); err != nil {
		return nil, err
	}

	out := make(map[string][]models.Point, len(q.Terms))
	for _, row := range resp.Default.TimelineData {
		sec, err := strconv.ParseInt(row.Time, 10, 64)
		if err != nil {
			continue
		}
		date := time.Unix(sec, 0).UTC().Format("2006-01-02")
		for i, term := range q.Terms {
			if i < len(row.Value) {
				out[term] = append(out[term], models.Point{Date: date, Value: row.Value[i]})
			}
		}
	}
	g.logger.Debug("[trends] %v: %d timeline rows", q.Terms, len(resp.Default.TimelineData))
	return out, nil
}

type rankedKeyword struct {
	Query string `json:"query"`
	Topic struct {
		MID   string `json:"mid"`
		Title string `json:"title"`
		Type  string `json:"type"`
	} `json:"topic"`
	Value          int    `json:"value"`
	FormattedValue string `json:"formattedValue"`
	Link           string `json:"link"`
}

func (g *GoogleClient) Related(ctx context.Context, q Query, mode string) ([]models.RelatedItem, []models.RelatedItem, error) {
	widgets, err := g.explore(ctx, q)
	if err != nil {
		return nil, nil, err
	}
	id := "RELATED_QUERIES"
	if mode == "topics" {
		id = "RELATED_TOPICS"
	}
	w, ok := findWidget(widgets, id)
	if !ok {
		// Google omits the widget when there is too little volume.
		return nil, nil, nil
	}

	var resp struct {
		Default struct {
			RankedList []struct {
				RankedKeyword []rankedKeyword `json:"rankedKeyword"`
			} `json:"rankedList"`
		} `json:"default"`
	}
	params := url.Values{"req": {string(w.Request)}, "token": {w.Token}}
	if err := g.get(ctx, "/trends/api/widgetdata/relatedsearches", params, &resp); err != nil {
		return nil, nil, err
	}

	lists := resp.Default.RankedList
	var top, rising []models.RelatedItem
	if len(lists) > 0 {
		top = toItems(lists[0].RankedKeyword)
	}
	if len(lists) > 1 {
		rising = toItems(lists[1].RankedKeyword)
	}
	return top, rising, nil
}

func toItems(in []rankedKeyword) []models.RelatedItem {
	out := make([]models.RelatedItem, len(in))
	for i, k := range in {
		out[i] = models.RelatedItem{
			Query:          k.Query,
			TopicMID:       k.Topic.MID,
			TopicTitle:     k.Topic.Title,
			TopicType:      k.Topic.Type,
			Value:          k.Value,
			FormattedValue: k.FormattedValue,
			Link:           k.Link,
		}
	}
	return out
}
