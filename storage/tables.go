package storage

import (
	"fmt"
	"strconv"

	"chart-collector/models"
)

// ColumnType is the logical type of a stored column.
type ColumnType int

const (
	Text ColumnType = iota
	Integer
	Real
)

// Column is one persisted field of a source table.
type Column struct {
	Name string
	Type ColumnType
}

// Table describes how one source's entries are persisted. Key together
// with DateColumn is the natural key; every other column is overwritten
// when the same key is collected again for the same date.
type Table struct {
	Source     string
	Name       string
	Columns    []Column
	Key        []string
	DateColumn string
	Values     func(e models.ChartEntry) []any
}

// Header returns the CSV header: data columns followed by the date column.
func (t *Table) Header() []string {
	h := make([]string, 0, len(t.Columns)+1)
	for _, c := range t.Columns {
		h = append(h, c.Name)
	}
	return append(h, t.DateColumn)
}

// KeyOf returns the natural key of an entry, excluding the date.
func (t *Table) KeyOf(e models.ChartEntry) string {
	vals := t.Values(e)
	key := ""
	for i, c := range t.Columns {
		for _, k := range t.Key {
			if c.Name == k {
				key += fmt.Sprint(vals[i]) + "\x00"
			}
		}
	}
	return key
}

// orderColumn is the column stored rows are listed by.
func (t *Table) orderColumn() string {
	for _, c := range t.Columns {
		if c.Name == "chart_position" {
			return c.Name
		}
	}
	return t.Key[0]
}

// entryFromRecord maps stored text values, in column order, back onto a
// ChartEntry. Only the identifying fields and the position are restored.
func (t *Table) entryFromRecord(rec []string) models.ChartEntry {
	var e models.ChartEntry
	for i, c := range t.Columns {
		if i >= len(rec) {
			break
		}
		switch c.Name {
		case "song_name":
			e.Title = rec[i]
		case "artist_name":
			e.Performer = rec[i]
		case "chart_position":
			e.Rank, _ = strconv.Atoi(rec[i])
		case "song_id", "video_id", "sound_id", "contract_id":
			e.SourceID = rec[i]
		}
	}
	return e
}

func (t *Table) isKey(name string) bool {
	for _, k := range t.Key {
		if k == name {
			return true
		}
	}
	return false
}

var tables = []*Table{
	{
		Source: models.SourceSpotify,
		Name:   "spotify_streams",
		Columns: []Column{
			{"song_id", Text}, {"song_name", Text}, {"artist_name", Text},
			{"streams", Integer}, {"playlist_adds", Integer}, {"chart_position", Integer},
		},
		Key:        []string{"song_id"},
		DateColumn: "collection_date",
		Values: func(e models.ChartEntry) []any {
			return []any{e.SourceID, e.Title, e.Performer, e.Metric, int64(0), e.Rank}
		},
	},
	{
		Source: models.SourceYouTube,
		Name:   "youtube_data",
		Columns: []Column{
			{"video_id", Text}, {"song_name", Text}, {"artist_name", Text},
			{"views", Integer}, {"likes", Integer}, {"comments", Integer}, {"chart_position", Integer},
		},
		Key:        []string{"video_id"},
		DateColumn: "collection_date",
		Values: func(e models.ChartEntry) []any {
			return []any{e.SourceID, e.Title, e.Performer, e.Metric, int64(0), int64(0), e.Rank}
		},
	},
	{
		Source: models.SourceITunes,
		Name:   "sales_data",
		Columns: []Column{
			{"song_name", Text}, {"artist_name", Text},
			{"digital_sales", Integer}, {"physical_sales", Integer}, {"total_sales", Integer}, {"chart_position", Integer},
		},
		Key:        []string{"song_name", "artist_name"},
		DateColumn: "collection_date",
		Values: func(e models.ChartEntry) []any {
			return []any{e.Title, e.Performer, e.Metric, int64(0), e.Metric, e.Rank}
		},
	},
	{
		Source: models.SourceAppleMusic,
		Name:   "apple_music_streams",
		Columns: []Column{
			{"song_id", Text}, {"song_name", Text}, {"artist_name", Text},
			{"streams", Integer}, {"playlist_adds", Integer}, {"chart_position", Integer},
		},
		Key:        []string{"song_id"},
		DateColumn: "collection_date",
		Values: func(e models.ChartEntry) []any {
			return []any{e.SourceID, e.Title, e.Performer, e.Metric, int64(0), e.Rank}
		},
	},
	{
		Source: models.SourceRadio,
		Name:   "radio_airplay",
		Columns: []Column{
			{"song_id", Text}, {"song_name", Text}, {"artist_name", Text},
			{"audience", Integer}, {"chart_position", Integer},
		},
		Key:        []string{"song_id"},
		DateColumn: "collection_date",
		Values: func(e models.ChartEntry) []any {
			return []any{e.SourceID, e.Title, e.Performer, e.Metric, e.Rank}
		},
	},
	{
		Source: models.SourceTikTok,
		Name:   "tiktok_data",
		Columns: []Column{
			{"sound_id", Text}, {"song_name", Text}, {"artist_name", Text},
			{"video_count", Integer}, {"chart_position", Integer},
		},
		Key:        []string{"sound_id"},
		DateColumn: "collection_date",
		Values: func(e models.ChartEntry) []any {
			return []any{e.SourceID, e.Title, e.Performer, e.Metric, e.Rank}
		},
	},
	{
		Source: models.SourceBillboard,
		Name:   "billboard_hot100",
		Columns: []Column{
			{"song_name", Text}, {"artist_name", Text},
			{"chart_position", Integer}, {"weeks_on_chart", Integer},
		},
		Key:        []string{"song_name", "artist_name"},
		DateColumn: "chart_date",
		Values: func(e models.ChartEntry) []any {
			return []any{e.Title, e.Performer, e.Rank, e.Weeks}
		},
	},
	{
		Source: models.SourceSearch,
		Name:   "google_trends",
		Columns: []Column{
			{"song_name", Text}, {"artist_name", Text},
			{"search_interest", Integer}, {"trend_direction", Text}, {"chart_position", Integer},
		},
		Key:        []string{"song_name", "artist_name"},
		DateColumn: "collection_date",
		Values: func(e models.ChartEntry) []any {
			return []any{e.Title, e.Performer, e.Metric, e.Direction, e.Rank}
		},
	},
	{
		Source: models.SourceKalshi,
		Name:   "kalshi_market",
		Columns: []Column{
			{"contract_id", Text}, {"song_name", Text}, {"artist_name", Text},
			{"yes_price", Real}, {"no_price", Real}, {"volume", Integer},
			{"open_interest", Integer}, {"implied_probability", Real},
		},
		Key:        []string{"contract_id"},
		DateColumn: "collection_date",
		Values: func(e models.ChartEntry) []any {
			q := e.Quote
			if q == nil {
				q = &models.MarketQuote{}
			}
			return []any{e.SourceID, e.Title, e.Performer, q.YesPrice, q.NoPrice, e.Metric, q.OpenInterest, q.ImpliedProbability}
		},
	},
}

// TableFor returns the table definition for a source key.
func TableFor(source string) (*Table, error) {
	for _, t := range tables {
		if t.Source == source {
			return t, nil
		}
	}
	return nil, fmt.Errorf("storage: no table for source %q", source)
}

// Tables returns every known table definition.
func Tables() []*Table {
	out := make([]*Table, len(tables))
	copy(out, tables)
	return out
}
