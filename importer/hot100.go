// Package importer bulk-loads historical chart-of-record CSV exports.
package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"chart-collector/models"
	"chart-collector/storage"
	"chart-collector/utils"
)

// headerAliases maps normalised CSV header names onto canonical columns.
var headerAliases = map[string]string{
	"song_name":      "song_name",
	"song":           "song_name",
	"title":          "song_name",
	"track":          "song_name",
	"artist_name":    "artist_name",
	"artist":         "artist_name",
	"performer":      "artist_name",
	"chart_position": "chart_position",
	"position":       "chart_position",
	"rank":           "chart_position",
	"this_week":      "chart_position",
	"chart_date":     "chart_date",
	"date":           "chart_date",
	"week":           "chart_date",
	"chart_week":     "chart_date",
	"weeks_on_chart": "weeks_on_chart",
	"weeks":          "weeks_on_chart",
	"wks_on_chart":   "weeks_on_chart",
}

var required = []string{"song_name", "artist_name", "chart_position", "chart_date"}

var dateLayouts = []string{"2006-01-02", "01/02/2006", "1/2/2006", "20060102"}

// Row is one chart-of-record position from the export.
type Row struct {
	Title     string
	Performer string
	Position  int
	Weeks     int
	ChartDate time.Time
}

// Report summarises a load.
type Report struct {
	Weeks      int
	Rows       int
	Skipped    int
	NumberOnes int
	First      time.Time
	Last       time.Time
}

// ReadRows parses an export. Rows that fail to parse are skipped and
// counted; a missing required column is an error.
func ReadRows(r io.Reader) ([]Row, int, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := readHeader(cr)
	if err != nil {
		return nil, 0, err
	}

	var rows []Row
	skipped := 0
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			skipped++
			continue
		}
		row, err := parseRow(header, rec)
		if err != nil {
			skipped++
			continue
		}
		rows = append(rows, row)
	}
	return rows, skipped, nil
}

func readHeader(r *csv.Reader) (map[string]int, error) {
	rec, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	header := make(map[string]int, len(rec))
	for idx, name := range rec {
		key := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "_")
		canonical, ok := headerAliases[key]
		if !ok {
			continue
		}
		if _, seen := header[canonical]; !seen {
			header[canonical] = idx
		}
	}
	var missing []string
	for _, col := range required {
		if _, ok := header[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing columns: %s", strings.Join(missing, ", "))
	}
	return header, nil
}

func valueAt(header map[string]int, rec []string, col string) string {
	idx, ok := header[col]
	if !ok || idx >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[idx])
}

func parseRow(header map[string]int, rec []string) (Row, error) {
	row := Row{
		Title:     valueAt(header, rec, "song_name"),
		Performer: valueAt(header, rec, "artist_name"),
		Weeks:     1,
	}
	if row.Title == "" || row.Performer == "" {
		return row, errors.New("empty title or performer")
	}

	pos, err := strconv.Atoi(valueAt(header, rec, "chart_position"))
	if err != nil || pos < 1 || pos > 100 {
		return row, fmt.Errorf("bad position %q", valueAt(header, rec, "chart_position"))
	}
	row.Position = pos

	if row.ChartDate, err = ParseDate(valueAt(header, rec, "chart_date")); err != nil {
		return row, err
	}

	if w := valueAt(header, rec, "weeks_on_chart"); w != "" {
		if n, err := strconv.Atoi(w); err == nil && n > 0 {
			row.Weeks = n
		}
	}
	return row, nil
}

// ParseDate accepts YYYY-MM-DD, MM/DD/YYYY and YYYYMMDD.
func ParseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}

// GroupByWeek buckets rows by chart date, each week sorted by position.
func GroupByWeek(rows []Row) ([]time.Time, map[time.Time][]models.ChartEntry) {
	weeks := make(map[time.Time][]models.ChartEntry)
	for _, r := range rows {
		weeks[r.ChartDate] = append(weeks[r.ChartDate], models.ChartEntry{
			Title:     r.Title,
			Performer: r.Performer,
			Rank:      r.Position,
			Weeks:     r.Weeks,
		})
	}
	dates := make([]time.Time, 0, len(weeks))
	for d, entries := range weeks {
		sort.SliceStable(entries, func(i, j int) bool { return entries[i].Rank < entries[j].Rank })
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates, weeks
}

// Loader writes historical weeks through the same storage writer the live
// scrape uses, so both reconcile on (title, performer, chart date).
type Loader struct {
	writer storage.Writer
	table  *storage.Table
	logger *utils.Logger
}

// NewLoader creates a Loader.
func NewLoader(writer storage.Writer, logger *utils.Logger) (*Loader, error) {
	table, err := storage.TableFor(models.SourceBillboard)
	if err != nil {
		return nil, err
	}
	return &Loader{writer: writer, table: table, logger: logger}, nil
}

// LoadFile loads the export at path. Zero start or end leaves that side open.
func (l *Loader) LoadFile(path string, start, end time.Time) (Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return Report{}, err
	}
	defer f.Close()
	l.logger.Info("[importer] Loading %s", path)
	return l.Load(f, start, end)
}

// Load reads an export from r and writes one chart week at a time.
func (l *Loader) Load(r io.Reader, start, end time.Time) (Report, error) {
	rows, skipped, err := ReadRows(r)
	if err != nil {
		return Report{}, err
	}

	filtered := rows[:0]
	for _, row := range rows {
		if !start.IsZero() && row.ChartDate.Before(start) {
			continue
		}
		if !end.IsZero() && row.ChartDate.After(end) {
			continue
		}
		filtered = append(filtered, row)
	}

	report := Report{Skipped: skipped}
	dates, weeks := GroupByWeek(filtered)
	for _, d := range dates {
		entries := weeks[d]
		if !l.writer.Write(l.table, entries, d) {
			l.logger.Error("[importer] Failed to write chart week %s", d.Format("2006-01-02"))
			continue
		}
		report.Weeks++
		report.Rows += len(entries)
		for _, e := range entries {
			if e.Rank == 1 {
				report.NumberOnes++
			}
		}
		if report.First.IsZero() {
			report.First = d
		}
		report.Last = d
	}

	l.logger.Info("[importer] Loaded %d weeks, %d rows (%d skipped, %d number ones)",
		report.Weeks, report.Rows, report.Skipped, report.NumberOnes)
	return report, nil
}
