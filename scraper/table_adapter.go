package scraper

import (
	"context"
	"fmt"
	"time"

	"chart-collector/metrics"
	"chart-collector/models"
	"chart-collector/utils"
)

// TablePage is one fetchable chart page and the table layout it uses.
type TablePage struct {
	URL  string
	Spec TableSpec
}

// TableAdapter is a Chart Adapter for sources that publish an HTML table.
type TableAdapter struct {
	Source string
	Live   TablePage
	// Archive returns the dated page for day; nil when the source keeps no archive.
	Archive func(day time.Time) TablePage
	// Alternate is tried by Fallback when the live chart is empty; nil for none.
	Alternate func(now time.Time) TablePage

	HTTP   *utils.HTTPClient
	Logger *utils.Logger
	Now    func() time.Time
}

func (a *TableAdapter) Name() string { return a.Source }

func (a *TableAdapter) HasArchive() bool { return a.Archive != nil }

// Fetch downloads and parses the live page, or the archive page for day.
func (a *TableAdapter) Fetch(ctx context.Context, day time.Time) ([]models.ChartEntry, error) {
	page := a.Live
	if !day.IsZero() {
		if a.Archive == nil {
			a.Logger.Error("[%s] No archive available for %s", a.Source, day.Format("2006-01-02"))
			return nil, ErrNoArchive
		}
		page = a.Archive(day)
	}
	return a.fetchPage(ctx, page)
}

// Fallback fetches the alternate page configured for the source.
func (a *TableAdapter) Fallback(ctx context.Context) ([]models.ChartEntry, error) {
	if a.Alternate == nil {
		return nil, nil
	}
	now := time.Now
	if a.Now != nil {
		now = a.Now
	}
	page := a.Alternate(now())
	a.Logger.Info("[%s] Live chart empty, trying %s", a.Source, page.URL)
	return a.fetchPage(ctx, page)
}

func (a *TableAdapter) fetchPage(ctx context.Context, page TablePage) ([]models.ChartEntry, error) {
	start := time.Now()
	defer func() {
		metrics.FetchDuration.WithLabelValues(a.Source).Observe(time.Since(start).Seconds())
	}()

	a.Logger.Info("[%s] Scraping %s", a.Source, page.URL)

	body, err := a.HTTP.Get(ctx, page.URL, nil)
	if err != nil {
		a.Logger.Error("[%s] Error scraping chart: %v", a.Source, err)
		return nil, err
	}

	doc, err := Document(body)
	if err != nil {
		a.Logger.Error("[%s] Error parsing page %s: %v", a.Source, page.URL, err)
		return nil, fmt.Errorf("%s: parse html: %w", a.Source, err)
	}

	entries, err := ParseTable(doc, page.Spec, a.Source, a.Logger)
	if err != nil {
		a.Logger.Error("[%s] Could not find data table on %s", a.Source, page.URL)
		return nil, fmt.Errorf("%s: %w", a.Source, err)
	}

	a.Logger.Info("[%s] Scraped %d songs", a.Source, len(entries))
	return entries, nil
}
