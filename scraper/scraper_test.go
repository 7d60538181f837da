package scraper

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"

	"chart-collector/utils"
)

const chartHTML = `<html><body>
<table>
<tr><th>Pos</th><th>P+</th><th>Artist and Title</th><th>Days</th><th>Pk</th><th>Streams</th></tr>
<tr><td>1</td><td>=</td><td><a href="/a1">Sabrina Carpenter</a> - <a href="/s1">Espresso</a></td><td>120</td><td>1</td><td>4,512,330</td></tr>
<tr><td>x</td><td>+2</td><td><a href="/a2">Billie Eilish</a><a href="/s2">BIRDS OF A FEATHER</a></td><td>90</td><td>2</td><td>3,900,000</td></tr>
<tr><td>3</td><td>-1</td><td>Just a title</td><td>15</td><td>3</td><td>120</td></tr>
<tr><td>4</td><td>too short</td></tr>
<tr><td>5</td><td>=</td><td>   </td><td>1</td><td>1</td><td>1</td></tr>
</table>
<table><tr><td>ignored</td></tr></table>
</body></html>`

func mustDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := Document([]byte(html))
	if err != nil {
		t.Fatal(err)
	}
	return doc
}

func TestParseTable(t *testing.T) {
	spec := TableSpec{MinColumns: 6, TitleColumn: 2, MetricFrom: 3, MinMetric: 100000}
	entries, err := ParseTable(mustDoc(t, chartHTML), spec, "test", utils.NewNopLogger())
	if err != nil {
		t.Fatalf("ParseTable: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("got %d entries; want 3: %+v", len(entries), entries)
	}

	first := entries[0]
	if first.Performer != "Sabrina Carpenter" || first.Title != "Espresso" || first.Metric != 4512330 || first.Rank != 1 {
		t.Errorf("first entry = %+v", first)
	}
	if first.SourceID != "sabrina_carpenter_espresso" {
		t.Errorf("first id = %q", first.SourceID)
	}

	second := entries[1]
	if second.Performer != "Billie Eilish" || second.Title != "BIRDS OF A FEATHER" {
		t.Errorf("link fallback failed: %+v", second)
	}
	if second.Rank != 2 {
		t.Errorf("unparseable rank should default to row index, got %d", second.Rank)
	}

	third := entries[2]
	if third.Performer != "Unknown" || third.Title != "Just a title" || third.Metric != 0 {
		t.Errorf("unknown fallback failed: %+v", third)
	}
}

func TestParseTableIDFunc(t *testing.T) {
	spec := TableSpec{
		MinColumns: 6, TitleColumn: 2, MetricFrom: 3,
		IDFunc: func(cell *goquery.Selection, _, _ string) string {
			href, _ := cell.Find("a").First().Attr("href")
			return href
		},
	}
	entries, _ := ParseTable(mustDoc(t, chartHTML), spec, "test", utils.NewNopLogger())
	if entries[0].SourceID != "/a1" {
		t.Errorf("IDFunc id = %q; want /a1", entries[0].SourceID)
	}
	if entries[2].SourceID != "unknown_just_a_title" {
		t.Errorf("empty IDFunc result should fall back to slug, got %q", entries[2].SourceID)
	}
}

func TestParseTableNoTable(t *testing.T) {
	_, err := ParseTable(mustDoc(t, "<html><p>maintenance</p></html>"), TableSpec{}, "test", utils.NewNopLogger())
	if !errors.Is(err, ErrNoTable) {
		t.Errorf("err = %v; want ErrNoTable", err)
	}
}

func newTableAdapter(base string) *TableAdapter {
	spec := TableSpec{MinColumns: 6, TitleColumn: 2, MetricFrom: 3}
	return &TableAdapter{
		Source: "test",
		Live:   TablePage{URL: base + "/live.html", Spec: spec},
		Archive: func(day time.Time) TablePage {
			return TablePage{URL: base + "/archive/" + day.Format("20060102") + ".html", Spec: spec}
		},
		Alternate: func(now time.Time) TablePage {
			return TablePage{URL: base + "/archive/" + now.AddDate(0, 0, -1).Format("20060102") + ".html", Spec: spec}
		},
		HTTP:   utils.NewHTTPClient(5*time.Second, ""),
		Logger: utils.NewNopLogger(),
		Now:    func() time.Time { return time.Date(2024, 6, 2, 10, 0, 0, 0, time.UTC) },
	}
}

func TestTableAdapterLiveArchiveFallback(t *testing.T) {
	var mu sync.Mutex
	var paths []string
	last := func() string {
		mu.Lock()
		defer mu.Unlock()
		return paths[len(paths)-1]
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.URL.Path)
		mu.Unlock()
		if r.URL.Path == "/live.html" {
			_, _ = w.Write([]byte("<html><body>no table today</body></html>"))
			return
		}
		_, _ = w.Write([]byte(chartHTML))
	}))
	defer srv.Close()

	a := newTableAdapter(srv.URL)
	ctx := context.Background()

	if _, err := a.Fetch(ctx, time.Time{}); !errors.Is(err, ErrNoTable) {
		t.Errorf("live fetch err = %v; want ErrNoTable", err)
	}

	entries, err := a.Fallback(ctx)
	if err != nil || len(entries) != 3 {
		t.Fatalf("Fallback = %d entries, %v", len(entries), err)
	}
	if last() != "/archive/20240601.html" {
		t.Errorf("fallback requested %s; want yesterday's archive", last())
	}

	if _, err := a.Fetch(ctx, time.Date(2023, 12, 25, 0, 0, 0, 0, time.UTC)); err != nil {
		t.Errorf("archive fetch: %v", err)
	}
	if last() != "/archive/20231225.html" {
		t.Errorf("archive requested %s", last())
	}
}

func TestTableAdapterHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	a := newTableAdapter(srv.URL)
	entries, err := a.Fetch(context.Background(), time.Time{})
	if err == nil || len(entries) != 0 {
		t.Errorf("Fetch on 403 = %d entries, err %v; want empty and an error", len(entries), err)
	}
}

func TestTableAdapterNoArchive(t *testing.T) {
	a := newTableAdapter("http://unused")
	a.Archive = nil
	if _, err := a.Fetch(context.Background(), time.Now()); !errors.Is(err, ErrNoArchive) {
		t.Errorf("err = %v; want ErrNoArchive", err)
	}
}
