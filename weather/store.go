package weather

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"chart-collector/models"
)

var (
	highsHeader         = []string{"date", "station_id", "tmax_F", "source"}
	forecastsHeader     = []string{"issue_time_utc", "target_date", "forecast_high_F", "source"}
	dailyFeaturesHeader = []string{"target_date", "tmax_F", "forecast_high_F", "issue_time_utc", "month", "dayofyear", "dow"}
)

// Store persists daily highs and feature tables as CSV under one directory.
type Store struct {
	dir string
}

func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// HighsPath returns the daily-highs file for station.
func (s *Store) HighsPath(station string) string {
	return filepath.Join(s.dir, station+"_daily_highs.csv")
}

// FeaturesPath returns the climatology feature file for station.
func (s *Store) FeaturesPath(station string) string {
	return filepath.Join(s.dir, station+"_climatology_features.csv")
}

// ForecastsPath returns the point forecast history file for station.
func (s *Store) ForecastsPath(station string) string {
	return filepath.Join(s.dir, station+"_nws_point_forecast.csv")
}

// DailyFeaturesPath returns the observed/forecast join file for station.
func (s *Store) DailyFeaturesPath(station string) string {
	return filepath.Join(s.dir, station+"_daily_features.csv")
}

// LoadHighs reads the stored highs for station. A missing file yields no
// rows and no error.
func (s *Store) LoadHighs(station string) ([]models.DailyHigh, error) {
	f, err := os.Open(s.HighsPath(station))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	if _, err := r.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	var out []models.DailyHigh
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		d, err := time.Parse("2006-01-02", rec[0])
		if err != nil {
			continue
		}
		v, err := strconv.ParseFloat(rec[2], 64)
		if err != nil {
			continue
		}
		out = append(out, models.DailyHigh{Date: d, HighF: v})
	}
	return out, nil
}

// MergeHighs combines the stored highs with fresh ones, the fresh value
// winning on a shared date, and rewrites the file. It returns the merged set.
func (s *Store) MergeHighs(station, source string, fresh []models.DailyHigh) ([]models.DailyHigh, error) {
	existing, err := s.LoadHighs(station)
	if err != nil {
		return nil, err
	}
	byDay := make(map[time.Time]float64, len(existing)+len(fresh))
	for _, h := range existing {
		byDay[h.Date] = h.HighF
	}
	for _, h := range fresh {
		byDay[h.Date] = h.HighF
	}
	merged := sortedHighs(byDay)

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return nil, err
	}
	f, err := os.Create(s.HighsPath(station))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(highsHeader); err != nil {
		return nil, err
	}
	for _, h := range merged {
		if err := w.Write([]string{
			h.Date.Format("2006-01-02"),
			station,
			strconv.FormatFloat(h.HighF, 'f', 1, 64),
			source,
		}); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return merged, w.Error()
}

// SaveFeatures writes the feature table for station.
func (s *Store) SaveFeatures(station string, rows []models.FeatureRow) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return err
	}
	f, err := os.Create(s.FeaturesPath(station))
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := append([]string{"target_date", "tmax_F"}, models.FeatureNames...)
	if err := w.Write(header); err != nil {
		return err
	}
	for _, r := range rows {
		rec := []string{r.TargetDate.Format("2006-01-02"), strconv.FormatFloat(r.TmaxF, 'f', 1, 64)}
		for _, v := range r.Features() {
			rec = append(rec, strconv.FormatFloat(v, 'f', 4, 64))
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// LoadForecasts reads the stored point forecasts for station. A missing
// file yields no rows and no error.
func (s *Store) LoadForecasts(station string) ([]models.PointForecast, error) {
	f, err := os.Open(s.ForecastsPath(station))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read forecasts: %w", err)
	}

	var out []models.PointForecast
	for i, rec := range records {
		if i == 0 || len(rec) < 3 {
			continue
		}
		issued, err := time.Parse(time.RFC3339, rec[0])
		if err != nil {
			continue
		}
		target, err := time.Parse("2006-01-02", rec[1])
		if err != nil {
			continue
		}
		v, err := strconv.ParseFloat(rec[2], 64)
		if err != nil {
			continue
		}
		out = append(out, models.PointForecast{IssuedAt: issued, TargetDate: target, HighF: v})
	}
	return out, nil
}

// AppendForecasts adds fresh forecasts to the stored history and rewrites
// the file. A forecast with the same issue time and target date replaces
// the stored one. It returns the full history ordered by target date, then
// issue time.
func (s *Store) AppendForecasts(station string, fresh []models.PointForecast) ([]models.PointForecast, error) {
	existing, err := s.LoadForecasts(station)
	if err != nil {
		return nil, err
	}

	type key struct{ issued, target time.Time }
	byKey := make(map[key]models.PointForecast, len(existing)+len(fresh))
	for _, f := range append(existing, fresh...) {
		f.IssuedAt = f.IssuedAt.UTC().Truncate(time.Second)
		f.TargetDate = dateOf(f.TargetDate, time.UTC)
		byKey[key{f.IssuedAt, f.TargetDate}] = f
	}
	all := make([]models.PointForecast, 0, len(byKey))
	for _, f := range byKey {
		all = append(all, f)
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].TargetDate.Equal(all[j].TargetDate) {
			return all[i].TargetDate.Before(all[j].TargetDate)
		}
		return all[i].IssuedAt.Before(all[j].IssuedAt)
	})

	records := make([][]string, 0, len(all))
	for _, f := range all {
		records = append(records, []string{
			f.IssuedAt.Format(time.RFC3339),
			f.TargetDate.Format("2006-01-02"),
			strconv.FormatFloat(f.HighF, 'f', 1, 64),
			"nws",
		})
	}
	if err := s.writeCSV(s.ForecastsPath(station), forecastsHeader, records); err != nil {
		return nil, err
	}
	return all, nil
}

// SaveDailyFeatures writes the observed/forecast join for station.
func (s *Store) SaveDailyFeatures(station string, rows []models.DailyFeatureRow) error {
	records := make([][]string, 0, len(rows))
	for _, r := range rows {
		records = append(records, []string{
			r.TargetDate.Format("2006-01-02"),
			strconv.FormatFloat(r.TmaxF, 'f', 1, 64),
			strconv.FormatFloat(r.ForecastHighF, 'f', 1, 64),
			r.IssuedAt.UTC().Format(time.RFC3339),
			strconv.Itoa(r.Month),
			strconv.Itoa(r.DayOfYear),
			strconv.Itoa(r.DayOfWeek),
		})
	}
	return s.writeCSV(s.DailyFeaturesPath(station), dailyFeaturesHeader, records)
}

func (s *Store) writeCSV(path string, header []string, records [][]string) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return err
	}
	if err := w.WriteAll(records); err != nil {
		return err
	}
	return f.Close()
}
