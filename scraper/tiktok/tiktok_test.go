package tiktok

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"chart-collector/scraper"
	"chart-collector/utils"
)

const trendingJSON = `{"data":[
 {"id":"7301","title":"Espresso","author":"Sabrina Carpenter","video_count":120000,"play_count":9000000},
 {"music_id":7302,"name":"APT.","artist":"ROSÉ","use_count":80000},
 {"title":"no id"},
 {"id":"7304","title":"Zero","author":"X"}
]}`

func TestFetchRequiresKey(t *testing.T) {
	a := New("http://unused", "", utils.NewHTTPClient(time.Second, ""), utils.NewNopLogger())
	if _, err := a.Fetch(context.Background(), time.Time{}); !errors.Is(err, scraper.ErrNotConfigured) {
		t.Errorf("err = %v; want ErrNotConfigured", err)
	}
}

func TestFetchTrending(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-RapidAPI-Key") != "secret" || r.Header.Get("X-RapidAPI-Host") != rapidAPIHost {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if r.URL.Path != "/music/trending" || r.URL.Query().Get("count") != "100" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(trendingJSON))
	}))
	defer srv.Close()

	a := New(srv.URL, "secret", utils.NewHTTPClient(5*time.Second, ""), utils.NewNopLogger())
	entries, err := a.Fetch(context.Background(), time.Time{})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("got %d entries; want 3", len(entries))
	}
	if entries[0].SourceID != "7301" || entries[0].Metric != 120000 || entries[0].Rank != 1 {
		t.Errorf("first = %+v", entries[0])
	}
	if entries[1].SourceID != "7302" || entries[1].Title != "APT." || entries[1].Performer != "ROSÉ" || entries[1].Metric != 80000 {
		t.Errorf("alternate field names = %+v", entries[1])
	}
	if entries[2].Rank != 4 {
		t.Errorf("rank should follow list position, got %d", entries[2].Rank)
	}
}

func TestFetchNoArchive(t *testing.T) {
	a := New("http://unused", "k", utils.NewHTTPClient(time.Second, ""), utils.NewNopLogger())
	if _, err := a.Fetch(context.Background(), time.Now()); !errors.Is(err, scraper.ErrNoArchive) {
		t.Errorf("err = %v; want ErrNoArchive", err)
	}
}
