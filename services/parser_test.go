package services

import (
	"math"
	"strings"
	"testing"

	"chart-collector/models"
	"chart-collector/utils"
)

func newTestLogger() *utils.Logger { return utils.NewNopLogger() }

func TestParseNumber(t *testing.T) {
	tests := []struct {
		raw  string
		want int64
	}{
		{"1,234,567", 1234567},
		{"+2", 2},
		{" 42 ", 42},
		{"", 0},
		{"abc", 0},
		{"=", 0},
		{"2.5M", 2500000},
		{"1.2k", 1200},
		{"3B", 3000000000},
		{"1,5K", 15000},
		{"12.9", 12},
		{"-7", 0},
		{"5 M", 5000000},
		{"99999999999999999999", math.MaxInt64},
		{"10000000000B", math.MaxInt64},
		{"9223372036854775807", math.MaxInt64},
	}

	for _, tt := range tests {
		got := ParseNumber(tt.raw)
		if got != tt.want {
			t.Errorf("ParseNumber(%q) = %d; want %d", tt.raw, got, tt.want)
		}
	}
}

func TestSplitArtistTitle(t *testing.T) {
	tests := []struct {
		cell          string
		links         []string
		wantPerformer string
		wantTitle     string
	}{
		{"Artist - Title", nil, "Artist", "Title"},
		{"Sabrina Carpenter - Espresso - Live", nil, "Sabrina Carpenter", "Espresso - Live"},
		{"ArtistTitle", []string{"Artist", "Title", "Extra"}, "Artist", "Title"},
		{"Just a cell", []string{"only one"}, "Unknown", "Just a cell"},
		{"  spaced   out  ", nil, "Unknown", "spaced out"},
	}

	for _, tt := range tests {
		p, title := SplitArtistTitle(tt.cell, tt.links)
		if p != tt.wantPerformer || title != tt.wantTitle {
			t.Errorf("SplitArtistTitle(%q, %v) = (%q, %q); want (%q, %q)",
				tt.cell, tt.links, p, title, tt.wantPerformer, tt.wantTitle)
		}
	}
}

func TestSlug(t *testing.T) {
	if got := Slug("", "Bad Bunny", "DtMF"); got != "bad_bunny_dtmf" {
		t.Errorf("Slug = %q; want %q", got, "bad_bunny_dtmf")
	}
	if got := Slug("am_", "SZA", "Saturn"); got != "am_sza_saturn" {
		t.Errorf("Slug with prefix = %q; want %q", got, "am_sza_saturn")
	}
	long := Slug("", strings.Repeat("a", 80), strings.Repeat("b", 80))
	if len(long) != 100 {
		t.Errorf("Slug length = %d; want 100", len(long))
	}
}

func TestLargestMetric(t *testing.T) {
	cells := []string{"3", "+12", "1,234,567", "98,765", "45"}
	if got := LargestMetric(cells, 0); got != 1234567 {
		t.Errorf("LargestMetric = %d; want 1234567", got)
	}
	if got := LargestMetric([]string{"12", "99,999"}, 100000); got != 0 {
		t.Errorf("LargestMetric below floor = %d; want 0", got)
	}
}

func TestCleanerClean(t *testing.T) {
	c := NewCleaner(newTestLogger())
	raw := []models.ChartEntry{
		{SourceID: " a ", Title: "  Title  A ", Performer: "X", Rank: 0, Metric: 10},
		{SourceID: "b", Title: "", Performer: "Y", Rank: 2},
		{SourceID: "c", Title: "C", Performer: "", Rank: 3, Metric: -4},
	}

	got := c.Clean("spotify", raw)
	if len(got) != 2 {
		t.Fatalf("expected 2 entries after dropping empty title, got %d", len(got))
	}
	if got[0].Title != "Title A" || got[0].SourceID != "a" || got[0].Rank != 1 {
		t.Errorf("first entry not normalised: %+v", got[0])
	}
	if got[1].Performer != "Unknown" || got[1].Metric != 0 {
		t.Errorf("second entry not normalised: %+v", got[1])
	}
}
