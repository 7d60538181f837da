package scraper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/PuerkitoBio/goquery"

	"chart-collector/models"
	"chart-collector/services"
	"chart-collector/utils"
)

var (
	// ErrNoTable means the page had no table to parse.
	ErrNoTable = errors.New("no data table on page")
	// ErrNotConfigured means the adapter lacks credentials and was skipped.
	ErrNotConfigured = errors.New("adapter not configured")
	// ErrNoArchive means the source has no dated archive.
	ErrNoArchive = errors.New("source has no dated archive")
)

// Adapter fetches one external chart. A zero day targets the live page,
// otherwise the dated archive for that day.
type Adapter interface {
	Name() string
	Fetch(ctx context.Context, day time.Time) ([]models.ChartEntry, error)
}

// Fallbacker is implemented by adapters that have an alternate page to try
// when the live chart comes back empty.
type Fallbacker interface {
	Fallback(ctx context.Context) ([]models.ChartEntry, error)
}

// Archiver reports whether Fetch accepts past days.
type Archiver interface {
	HasArchive() bool
}

// TableSpec describes how rows of a chart table map onto ChartEntry.
type TableSpec struct {
	MinColumns  int
	TitleColumn int
	MetricFrom  int
	MinMetric   int64
	IDPrefix    string
	// IDFunc derives a source identifier from the title cell; an empty
	// result falls back to the slug.
	IDFunc func(cell *goquery.Selection, performer, title string) string
}

// ParseTable extracts chart entries from the first table of doc. Rows
// with too few cells are skipped; rows that fail to parse are logged and
// skipped.
func ParseTable(doc *goquery.Document, spec TableSpec, source string, logger *utils.Logger) ([]models.ChartEntry, error) {
	table := doc.Find("table").First()
	if table.Length() == 0 {
		return nil, ErrNoTable
	}

	var entries []models.ChartEntry
	table.Find("tr").Each(func(i int, row *goquery.Selection) {
		if i == 0 {
			return
		}
		cols := row.Find("td")
		if cols.Length() < spec.MinColumns {
			return
		}

		entry, err := parseRow(cols, spec, i)
		if err != nil {
			logger.Warn("[%s] Error parsing row %d: %v", source, i, err)
			return
		}
		entries = append(entries, entry)
	})
	return entries, nil
}

func parseRow(cols *goquery.Selection, spec TableSpec, idx int) (entry models.ChartEntry, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	if spec.TitleColumn >= cols.Length() {
		return entry, fmt.Errorf("title column %d out of range", spec.TitleColumn)
	}
	cell := cols.Eq(spec.TitleColumn)

	var links []string
	cell.Find("a").Each(func(_ int, a *goquery.Selection) {
		links = append(links, a.Text())
	})
	performer, title := services.SplitArtistTitle(cell.Text(), links)
	if title == "" {
		return entry, errors.New("empty title cell")
	}

	var tail []string
	cols.Slice(spec.MetricFrom, goquery.ToEnd).Each(func(_ int, c *goquery.Selection) {
		tail = append(tail, c.Text())
	})

	rank := int(services.ParseNumber(cols.Eq(0).Text()))
	if rank < 1 {
		rank = idx
	}

	id := ""
	if spec.IDFunc != nil {
		id = spec.IDFunc(cell, performer, title)
	}
	if id == "" {
		id = services.Slug(spec.IDPrefix, performer, title)
	}

	return models.ChartEntry{
		SourceID:  id,
		Title:     title,
		Performer: performer,
		Metric:    services.LargestMetric(tail, spec.MinMetric),
		Rank:      rank,
	}, nil
}

// Document parses an HTML body into a goquery document.
func Document(body []byte) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(bytes.NewReader(body))
}
