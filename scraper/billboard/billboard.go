// Package billboard scrapes the weekly Hot 100 chart of record.
package billboard

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"chart-collector/metrics"
	"chart-collector/models"
	"chart-collector/scraper"
	"chart-collector/services"
	"chart-collector/utils"
)

// DefaultBaseURL is the Hot 100 chart root.
const DefaultBaseURL = "https://www.billboard.com/charts/hot-100"

// ChartSize is the number of positions on the chart.
const ChartSize = 100

var (
	digitsRegexp = regexp.MustCompile(`\d+`)
	numberOnly   = regexp.MustCompile(`^\d+$`)
)

// PageRenderer renders a page in a real browser. *scraper.Renderer satisfies it.
type PageRenderer interface {
	Available() bool
	Render(ctx context.Context, url string) ([]byte, error)
}

// Adapter fetches the Hot 100 for the live week or a dated chart week.
type Adapter struct {
	baseURL  string
	http     *utils.HTTPClient
	renderer PageRenderer
	logger   *utils.Logger
}

// New creates an Adapter. renderer may be nil to disable the browser fallback.
func New(baseURL string, http *utils.HTTPClient, renderer PageRenderer, logger *utils.Logger) *Adapter {
	return &Adapter{
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     http,
		renderer: renderer,
		logger:   logger,
	}
}

func (a *Adapter) Name() string { return models.SourceBillboard }

func (a *Adapter) HasArchive() bool { return true }

// URL returns the chart page for day, or the live chart for a zero day.
func (a *Adapter) URL(day time.Time) string {
	if day.IsZero() {
		return a.baseURL + "/"
	}
	return a.baseURL + "/" + day.Format("2006-01-02") + "/"
}

// Fetch downloads and parses the chart. If the static page has no chart
// rows and a renderer is available, the page is rendered and parsed again.
func (a *Adapter) Fetch(ctx context.Context, day time.Time) ([]models.ChartEntry, error) {
	start := time.Now()
	defer func() {
		metrics.FetchDuration.WithLabelValues(models.SourceBillboard).Observe(time.Since(start).Seconds())
	}()

	url := a.URL(day)
	if day.IsZero() {
		a.logger.Info("[billboard] Scraping current Hot 100")
	} else {
		a.logger.Info("[billboard] Scraping Hot 100 for %s", day.Format("2006-01-02"))
	}

	body, err := a.http.Get(ctx, url, nil)
	if err != nil {
		a.logger.Error("[billboard] Error scraping chart: %v", err)
		return nil, err
	}

	entries, err := a.parse(body)
	if err == nil && len(entries) > 0 {
		a.logger.Info("[billboard] Scraped %d songs", len(entries))
		return entries, nil
	}

	if a.renderer == nil || !a.renderer.Available() {
		a.logger.Error("[billboard] Could not find chart items on page")
		return nil, scraper.ErrNoTable
	}

	a.logger.Warn("[billboard] Static page had no chart rows, rendering %s", url)
	body, err = a.renderer.Render(ctx, url)
	if err != nil {
		a.logger.Error("[billboard] Render failed: %v", err)
		return nil, err
	}
	entries, err = a.parse(body)
	if err != nil || len(entries) == 0 {
		a.logger.Error("[billboard] Could not find chart items on rendered page")
		return nil, scraper.ErrNoTable
	}
	a.logger.Info("[billboard] Scraped %d songs from rendered page", len(entries))
	return entries, nil
}

func (a *Adapter) parse(body []byte) ([]models.ChartEntry, error) {
	doc, err := scraper.Document(body)
	if err != nil {
		return nil, fmt.Errorf("billboard: parse html: %w", err)
	}
	if entries := ParseRows(doc, a.logger); len(entries) > 0 {
		return entries, nil
	}
	return ParseLegacy(doc, a.logger), nil
}

// ParseRows reads the current chart layout, where each position is an
// "o-chart-results-list-row-container" holding a title heading, an artist
// label and the last-week, peak and weeks-on-chart columns.
func ParseRows(doc *goquery.Document, logger *utils.Logger) []models.ChartEntry {
	var entries []models.ChartEntry
	doc.Find("div.o-chart-results-list-row-container").EachWithBreak(func(i int, row *goquery.Selection) bool {
		if len(entries) >= ChartSize {
			return false
		}
		titleNode := row.Find("h3#title-of-a-story").First()
		title := strings.TrimSpace(titleNode.Text())
		if title == "" {
			logger.Warn("[billboard] Error parsing chart item %d: no title", i+1)
			return true
		}
		performer := strings.TrimSpace(titleNode.NextFiltered("span").Text())
		if performer == "" {
			performer = "Unknown"
		}

		var numbers []int
		row.Find("span.c-label").Each(func(_ int, s *goquery.Selection) {
			txt := strings.TrimSpace(s.Text())
			if numberOnly.MatchString(txt) {
				numbers = append(numbers, int(services.ParseNumber(txt)))
			}
		})

		rank := i + 1
		weeks := 1
		if len(numbers) > 0 {
			rank = numbers[0]
		}
		// columns after the rank are last week, peak and weeks on chart
		if len(numbers) >= 2 {
			weeks = numbers[len(numbers)-1]
		}

		entries = append(entries, models.ChartEntry{
			Title:     title,
			Performer: performer,
			Rank:      rank,
			Weeks:     weeks,
		})
		return true
	})
	return entries
}

// ParseLegacy reads the older "chart-element" layout.
func ParseLegacy(doc *goquery.Document, logger *utils.Logger) []models.ChartEntry {
	items := doc.Find("li.chart-list__element")
	if items.Length() == 0 {
		items = doc.Find(".chart-element__wrapper")
	}

	var entries []models.ChartEntry
	items.EachWithBreak(func(i int, item *goquery.Selection) bool {
		if len(entries) >= ChartSize {
			return false
		}
		rankNode := item.Find(".chart-element__rank__number")
		if rankNode.Length() == 0 {
			rankNode = item.Find(".chart-element__rank")
		}
		rank := int(services.ParseNumber(rankNode.First().Text()))
		title := strings.TrimSpace(item.Find(".chart-element__information__song").First().Text())
		performer := strings.TrimSpace(item.Find(".chart-element__information__artist").First().Text())
		if title == "" {
			logger.Warn("[billboard] Error parsing chart item %d: no title", i+1)
			return true
		}
		if performer == "" {
			performer = "Unknown"
		}
		if rank < 1 {
			rank = i + 1
		}

		weeks := 1
		if m := digitsRegexp.FindString(item.Find("span.chart-element__information__delta__text.text--last").Text()); m != "" {
			weeks = int(services.ParseNumber(m))
		}

		entries = append(entries, models.ChartEntry{
			Title:     title,
			Performer: performer,
			Rank:      rank,
			Weeks:     weeks,
		})
		return true
	})
	return entries
}

// ChartWeeks returns every Saturday in [start, end], the dates the chart is
// published for.
func ChartWeeks(start, end time.Time) []time.Time {
	var weeks []time.Time
	for d := NextSaturday(start); !d.After(end); d = d.AddDate(0, 0, 7) {
		weeks = append(weeks, d)
	}
	return weeks
}

// NextSaturday returns day if it is a Saturday, else the following Saturday.
func NextSaturday(day time.Time) time.Time {
	offset := (int(time.Saturday) - int(day.Weekday()) + 7) % 7
	return day.AddDate(0, 0, offset)
}
