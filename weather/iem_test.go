package weather

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"chart-collector/utils"
)

const asosExport = `#DEBUG: Format Typ    -> onlycsv
#DEBUG: Time Period -> 2024-07-01 00:00:00+00:00 2024-07-03 00:00:00+00:00
station,valid,tmpf
LGA,2024-07-01 00:51,78.1
LGA,2024-07-01 18:51,91.0
LGA,2024-07-01 21:51,M
LGA,2024-07-02 12:51,84.0
LGA,2024-07-02 19:51,88.0
LGA,not a time,99.0
`

func TestParseASOS(t *testing.T) {
	highs, err := ParseASOS(strings.NewReader(asosExport))
	if err != nil {
		t.Fatalf("ParseASOS: %v", err)
	}
	want := []struct {
		date string
		high float64
	}{
		{"2024-07-01", 91.0},
		{"2024-07-02", 88.0},
	}
	if len(highs) != len(want) {
		t.Fatalf("got %d days; want %d", len(highs), len(want))
	}
	for i, w := range want {
		if got := highs[i].Date.Format("2006-01-02"); got != w.date || highs[i].HighF != w.high {
			t.Errorf("day %d = %s %v; want %s %v", i, got, highs[i].HighF, w.date, w.high)
		}
	}
}

func TestParseASOSEmpty(t *testing.T) {
	for _, in := range []string{"", "#only comments\n", "station,valid,tmpf\nLGA,2024-07-01 00:51,M\n"} {
		if _, err := ParseASOS(strings.NewReader(in)); !errors.Is(err, ErrNoData) {
			t.Errorf("ParseASOS(%q) err = %v; want ErrNoData", in, err)
		}
	}
}

func TestParseASOSMissingColumn(t *testing.T) {
	if _, err := ParseASOS(strings.NewReader("station,valid,dwpf\nLGA,2024-07-01 00:51,60\n")); err == nil {
		t.Error("expected an error without a tmpf column")
	}
}

func TestIEMClientQuery(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.URL.RawQuery
		w.Write([]byte(asosExport))
	}))
	defer srv.Close()

	c := NewIEMClient(srv.URL, utils.NewHTTPClient(5*time.Second, ""), utils.NewNopLogger())
	start := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	highs, err := c.DailyHighs(context.Background(), "LGA", start, start.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("DailyHighs: %v", err)
	}
	if len(highs) != 2 {
		t.Errorf("got %d days; want 2", len(highs))
	}
	for _, part := range []string{"station=LGA", "data=tmpf", "day1=1", "day2=2", "format=onlycsv"} {
		if !strings.Contains(got, part) {
			t.Errorf("query %q missing %q", got, part)
		}
	}
}
