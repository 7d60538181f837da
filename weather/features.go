package weather

import (
	"math"
	"sort"
	"time"

	"chart-collector/models"
)

// DefaultMinHistory is the number of prior observations a row needs.
const DefaultMinHistory = 7

// BuildClimatologyFeatures turns a series of daily highs into training
// rows. Lags and rolling means only look at earlier observations, so the
// first minHistory rows (never fewer than 7) are dropped.
func BuildClimatologyFeatures(highs []models.DailyHigh, minHistory int) ([]models.FeatureRow, error) {
	if minHistory < DefaultMinHistory {
		minHistory = DefaultMinHistory
	}

	series := make([]models.DailyHigh, len(highs))
	copy(series, highs)
	sort.Slice(series, func(i, j int) bool { return series[i].Date.Before(series[j].Date) })

	var rows []models.FeatureRow
	for i := minHistory; i < len(series); i++ {
		d := series[i].Date
		doy := float64(d.YearDay())
		angle := 2 * math.Pi * doy / 366

		rows = append(rows, models.FeatureRow{
			TargetDate: d,
			TmaxF:      series[i].HighF,
			Lag1:       series[i-1].HighF,
			RM3:        meanHigh(series[i-3 : i]),
			RM7:        meanHigh(series[i-7 : i]),
			Month:      float64(d.Month()),
			DayOfYear:  doy,
			// Monday is 0
			DayOfWeek: float64((int(d.Weekday()) + 6) % 7),
			SinDOY:    math.Sin(angle),
			CosDOY:    math.Cos(angle),
		})
	}

	if len(rows) == 0 {
		return nil, ErrNoData
	}
	return rows, nil
}

// BuildDailyFeatures joins observed highs with the latest forecast issued
// for each target date. Days missing either side are dropped. Rows are
// ordered by date.
func BuildDailyFeatures(highs []models.DailyHigh, forecasts []models.PointForecast) []models.DailyFeatureRow {
	latest := make(map[time.Time]models.PointForecast, len(forecasts))
	for _, f := range forecasts {
		day := dateOf(f.TargetDate, time.UTC)
		if cur, ok := latest[day]; !ok || !f.IssuedAt.Before(cur.IssuedAt) {
			latest[day] = f
		}
	}

	var rows []models.DailyFeatureRow
	for _, h := range highs {
		day := dateOf(h.Date, time.UTC)
		f, ok := latest[day]
		if !ok {
			continue
		}
		rows = append(rows, models.DailyFeatureRow{
			TargetDate:    day,
			TmaxF:         h.HighF,
			ForecastHighF: f.HighF,
			IssuedAt:      f.IssuedAt,
			Month:         int(day.Month()),
			DayOfYear:     day.YearDay(),
			DayOfWeek:     (int(day.Weekday()) + 6) % 7,
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].TargetDate.Before(rows[j].TargetDate) })
	return rows
}

func meanHigh(window []models.DailyHigh) float64 {
	sum := 0.0
	for _, h := range window {
		sum += h.HighF
	}
	return sum / float64(len(window))
}
