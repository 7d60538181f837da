package importer

import (
	"context"
	"strings"
	"testing"
	"time"

	"chart-collector/models"
	"chart-collector/storage"
	"chart-collector/utils"
)

const export = `Date,Rank,Song,Artist,Weeks On Chart
2024-01-06,2,Lovin On Me,Jack Harlow,7
2024-01-06,1,Lovin On Me Remix,Jack Harlow,1
01/13/2024,1,Lovin On Me,Jack Harlow,8
20240113,2,Greedy,Tate McRae,
2024-01-20,x,Broken,Row,1
2024-01-20,1,,No Title,1
not-a-date,3,Song,Artist,1
`

func TestReadRows(t *testing.T) {
	rows, skipped, err := ReadRows(strings.NewReader(export))
	if err != nil {
		t.Fatalf("ReadRows: %v", err)
	}
	if len(rows) != 4 || skipped != 3 {
		t.Fatalf("got %d rows, %d skipped; want 4, 3", len(rows), skipped)
	}
	if rows[3].Weeks != 1 {
		t.Errorf("missing weeks should default to 1, got %d", rows[3].Weeks)
	}
	if rows[2].ChartDate.Format("2006-01-02") != "2024-01-13" {
		t.Errorf("MM/DD/YYYY parsed as %s", rows[2].ChartDate)
	}
}

func TestReadRowsMissingColumn(t *testing.T) {
	_, _, err := ReadRows(strings.NewReader("song,artist\nA,B\n"))
	if err == nil || !strings.Contains(err.Error(), "chart_position") {
		t.Errorf("err = %v; want missing chart_position", err)
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"2024-01-06", "2024-01-06", true},
		{"01/06/2024", "2024-01-06", true},
		{"20240106", "2024-01-06", true},
		{"Jan 6 2024", "", false},
	}
	for _, tt := range tests {
		got, err := ParseDate(tt.in)
		if (err == nil) != tt.ok {
			t.Errorf("ParseDate(%q) err = %v; want ok=%v", tt.in, err, tt.ok)
			continue
		}
		if tt.ok && got.Format("2006-01-02") != tt.want {
			t.Errorf("ParseDate(%q) = %s; want %s", tt.in, got.Format("2006-01-02"), tt.want)
		}
	}
}

func TestLoadWritesWeeks(t *testing.T) {
	w, err := storage.NewSQLiteWriter(":memory:", utils.NewNopLogger())
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	l, err := NewLoader(w, utils.NewNopLogger())
	if err != nil {
		t.Fatal(err)
	}
	report, err := l.Load(strings.NewReader(export), time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if report.Weeks != 2 || report.Rows != 4 || report.Skipped != 3 || report.NumberOnes != 2 {
		t.Errorf("report = %+v", report)
	}

	table, _ := storage.TableFor(models.SourceBillboard)
	week := time.Date(2024, 1, 6, 0, 0, 0, 0, time.UTC)
	rows, err := w.Rows(context.Background(), table, week)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 || rows[0][0] != "Lovin On Me Remix" {
		t.Errorf("stored week = %v", rows)
	}

	// reloading the same export must not duplicate anything
	if _, err := l.Load(strings.NewReader(export), time.Time{}, time.Time{}); err != nil {
		t.Fatal(err)
	}
	if n, _ := w.Count(context.Background(), table, week); n != 2 {
		t.Errorf("after reload count = %d; want 2", n)
	}
}

func TestLoadDateFilter(t *testing.T) {
	w, err := storage.NewSQLiteWriter(":memory:", utils.NewNopLogger())
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	l, _ := NewLoader(w, utils.NewNopLogger())
	start := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	report, err := l.Load(strings.NewReader(export), start, time.Time{})
	if err != nil {
		t.Fatal(err)
	}
	if report.Weeks != 1 || report.First.Format("2006-01-02") != "2024-01-13" {
		t.Errorf("filtered report = %+v", report)
	}
}
