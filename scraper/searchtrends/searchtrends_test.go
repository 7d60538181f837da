package searchtrends

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"chart-collector/models"
	"chart-collector/storage"
	"chart-collector/trends"
	"chart-collector/utils"
)

type fakeSongs struct {
	entries []models.ChartEntry
	limit   int
}

func (f *fakeSongs) Latest(_ context.Context, t *storage.Table, limit int) ([]models.ChartEntry, error) {
	f.limit = limit
	if t.Source != models.SourceSpotify {
		return nil, errors.New("wrong table")
	}
	return f.entries, nil
}

type fakeClient struct {
	queries []trends.Query
	failOn  int
}

func (f *fakeClient) InterestOverTime(_ context.Context, q trends.Query) (map[string][]models.Point, error) {
	f.queries = append(f.queries, q)
	if len(f.queries) == f.failOn {
		return nil, errors.New("429")
	}
	out := make(map[string][]models.Point)
	for i, term := range q.Terms {
		// 14 hourly readings: flat 50 then a jump for the first term
		var pts []models.Point
		for k := 0; k < 14; k++ {
			v := 50
			if i == 0 && k >= 7 {
				v = 80
			}
			pts = append(pts, models.Point{Value: v})
		}
		out[term] = pts
	}
	return out, nil
}

func (f *fakeClient) Related(context.Context, trends.Query, string) ([]models.RelatedItem, []models.RelatedItem, error) {
	return nil, nil, nil
}

func songs(n int) []models.ChartEntry {
	out := make([]models.ChartEntry, n)
	for i := range out {
		out[i] = models.ChartEntry{Title: "Song " + string(rune('A'+i)), Performer: "Artist", Rank: i + 1}
	}
	return out
}

func TestMomentum(t *testing.T) {
	flat := []float64{5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5}
	up := []float64{10, 10, 10, 10, 10, 10, 10, 12, 12, 12, 12, 12, 12, 12}
	tests := []struct {
		name   string
		values []float64
		want   float64
	}{
		{"too short", []float64{1, 2, 3}, 0},
		{"one week only", []float64{1, 2, 3, 4, 5, 6, 7, 8}, 0},
		{"flat", flat, 0},
		{"up 20%", up, 20},
		{"from zero", make([]float64, 14), 0},
	}

	for _, tt := range tests {
		if got := Momentum(tt.values); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("Momentum(%s) = %v; want %v", tt.name, got, tt.want)
		}
	}
}

func TestDirection(t *testing.T) {
	tests := []struct {
		momentum float64
		want     string
	}{
		{25, models.TrendRising},
		{10, models.TrendStable},
		{-10, models.TrendStable},
		{-10.5, models.TrendFalling},
	}
	for _, tt := range tests {
		if got := Direction(tt.momentum); got != tt.want {
			t.Errorf("Direction(%v) = %q; want %q", tt.momentum, got, tt.want)
		}
	}
}

func TestFetchBatchesSongs(t *testing.T) {
	client := &fakeClient{}
	reader := &fakeSongs{entries: songs(12)}
	a := New(client, reader, 50, 0, utils.NewNopLogger())

	entries, err := a.Fetch(context.Background(), time.Time{})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if reader.limit != 50 {
		t.Errorf("songs limit = %d; want 50", reader.limit)
	}
	if len(client.queries) != 3 {
		t.Fatalf("queries = %d; want 3 batches", len(client.queries))
	}
	q := client.queries[0]
	if len(q.Terms) != 5 || q.Terms[0] != "Song A Artist" || q.Timeframe != "now 7-d" || q.Geo != "US" || q.Category != 0 {
		t.Errorf("first query = %+v", q)
	}
	if len(client.queries[2].Terms) != 2 {
		t.Errorf("last batch = %d terms; want 2", len(client.queries[2].Terms))
	}

	if len(entries) != 12 {
		t.Fatalf("entries = %d; want 12", len(entries))
	}
	first := entries[0]
	if first.Metric != 80 || first.Direction != models.TrendRising || first.Rank != 1 {
		t.Errorf("first = %+v", first)
	}
	if entries[1].Direction != models.TrendStable || entries[6].Rank != 7 {
		t.Errorf("second = %+v, seventh rank = %d", entries[1], entries[6].Rank)
	}
}

func TestFetchSkipsFailedBatch(t *testing.T) {
	client := &fakeClient{failOn: 2}
	a := New(client, &fakeSongs{entries: songs(12)}, 50, 0, utils.NewNopLogger())

	entries, err := a.Fetch(context.Background(), time.Time{})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(entries) != 7 {
		t.Errorf("entries = %d; want 7 with the middle batch failed", len(entries))
	}
	if entries[5].Rank != 11 {
		t.Errorf("rank after the gap = %d; want 11", entries[5].Rank)
	}
}

func TestFetchWithoutSongs(t *testing.T) {
	a := New(&fakeClient{}, &fakeSongs{}, 50, 0, utils.NewNopLogger())
	if _, err := a.Fetch(context.Background(), time.Time{}); !errors.Is(err, ErrNoSongs) {
		t.Errorf("err = %v; want ErrNoSongs", err)
	}
}
