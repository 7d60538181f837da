package weather

import (
	"errors"
	"math"
	"testing"
	"time"

	"chart-collector/models"
)

func seriesFrom(start time.Time, values ...float64) []models.DailyHigh {
	out := make([]models.DailyHigh, len(values))
	for i, v := range values {
		out[i] = models.DailyHigh{Date: start.AddDate(0, 0, i), HighF: v}
	}
	return out
}

func TestBuildClimatologyFeatures(t *testing.T) {
	// 2024-01-01 is a Monday
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	highs := seriesFrom(start, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10)
	// shuffle to check the builder sorts
	highs[0], highs[9] = highs[9], highs[0]

	rows, err := BuildClimatologyFeatures(highs, 7)
	if err != nil {
		t.Fatalf("BuildClimatologyFeatures: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d rows; want 3", len(rows))
	}

	r := rows[0]
	if !r.TargetDate.Equal(start.AddDate(0, 0, 7)) || r.TmaxF != 8 {
		t.Errorf("first row = %s %v", r.TargetDate.Format("2006-01-02"), r.TmaxF)
	}
	if r.Lag1 != 7 || r.RM3 != 6 || r.RM7 != 4 {
		t.Errorf("lag/rolling = %v %v %v; want 7 6 4", r.Lag1, r.RM3, r.RM7)
	}
	if r.DayOfWeek != 0 || r.Month != 1 || r.DayOfYear != 8 {
		t.Errorf("calendar = dow %v month %v doy %v", r.DayOfWeek, r.Month, r.DayOfYear)
	}
	wantSin := math.Sin(2 * math.Pi * 8 / 366)
	if math.Abs(r.SinDOY-wantSin) > 1e-12 {
		t.Errorf("sin_doy = %v; want %v", r.SinDOY, wantSin)
	}
}

func TestBuildClimatologyFeaturesNotEnoughHistory(t *testing.T) {
	highs := seriesFrom(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), 1, 2, 3, 4, 5, 6, 7)
	if _, err := BuildClimatologyFeatures(highs, 7); !errors.Is(err, ErrNoData) {
		t.Errorf("err = %v; want ErrNoData", err)
	}
}

func TestModelRecoversLinearRelation(t *testing.T) {
	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	var rows []models.FeatureRow
	for i := 0; i < 200; i++ {
		lag := 70 + 15*math.Sin(float64(i)*0.37)
		rm3 := 72 + 10*math.Cos(float64(i)*0.11)
		rows = append(rows, models.FeatureRow{
			TargetDate: start.AddDate(0, 0, i),
			TmaxF:      3 + 0.8*lag + 0.1*rm3,
			Lag1:       lag,
			RM3:        rm3,
			RM7:        71 + 5*math.Sin(float64(i)*0.05),
			Month:      float64(i%12 + 1),
			DayOfYear:  float64(i%365 + 1),
			DayOfWeek:  float64(i % 7),
			SinDOY:     math.Sin(float64(i) * 0.017),
			CosDOY:     math.Cos(float64(i) * 0.017),
		})
	}

	m := NewModel()
	if err := m.Fit(rows); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	score := Score(labelsOf(rows), m.PredictAll(rows))
	if score.MAE > 0.5 {
		t.Errorf("MAE on noiseless data = %v; want < 0.5", score.MAE)
	}
}

func labelsOf(rows []models.FeatureRow) []float64 {
	y, _ := labels(rows)
	return y
}

func TestSplitTime(t *testing.T) {
	rows := make([]models.FeatureRow, 10)
	train, test := SplitTime(rows, 0.2)
	if len(train) != 8 || len(test) != 2 {
		t.Errorf("SplitTime(10, 0.2) = %d/%d; want 8/2", len(train), len(test))
	}
}

func TestResidualSigma(t *testing.T) {
	got := ResidualSigma([]float64{0, 0, 0, 0}, []float64{1, -1, 1, -1})
	if want := math.Sqrt(4.0 / 3.0); math.Abs(got-want) > 1e-12 {
		t.Errorf("ResidualSigma = %v; want %v", got, want)
	}
	if got := ResidualSigma([]float64{1}, []float64{2}); got != 0 {
		t.Errorf("ResidualSigma of one point = %v; want 0", got)
	}
}

func TestScore(t *testing.T) {
	m := Score([]float64{1, 2, 3}, []float64{2, 2, 1})
	if math.Abs(m.MAE-1) > 1e-12 || math.Abs(m.RMSE-math.Sqrt(5.0/3.0)) > 1e-12 {
		t.Errorf("Score = %+v", m)
	}
}

func TestEvaluateSeasonalSeries(t *testing.T) {
	start := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)
	var values []float64
	for i := 0; i < 400; i++ {
		values = append(values, 75+15*math.Sin(2*math.Pi*float64(i)/365)+2*math.Sin(float64(i)*1.3))
	}
	rows, err := BuildClimatologyFeatures(seriesFrom(start, values...), 7)
	if err != nil {
		t.Fatal(err)
	}

	report, m, err := Evaluate(rows, DefaultTestFrac)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if report.TrainRows+report.TestRows != len(rows) || report.TestRows != int(float64(len(rows))*0.2) {
		t.Errorf("split = %d/%d of %d", report.TrainRows, report.TestRows, len(rows))
	}
	if !report.TrainEnd.Before(report.TestStart) {
		t.Error("train rows should precede test rows")
	}
	if report.ResidualSigma <= 0 || m == nil {
		t.Errorf("sigma = %v, model = %v", report.ResidualSigma, m)
	}
}

func TestEvaluateTooFewRows(t *testing.T) {
	if _, _, err := Evaluate(make([]models.FeatureRow, 3), 0.2); !errors.Is(err, ErrNoData) {
		t.Errorf("err = %v; want ErrNoData", err)
	}
}

func TestBuildDailyFeatures(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2024, 7, d, 0, 0, 0, 0, time.UTC) }
	highs := []models.DailyHigh{
		{Date: day(3), HighF: 101},
		{Date: day(1), HighF: 99},
		{Date: day(2), HighF: 100},
	}
	forecasts := []models.PointForecast{
		{IssuedAt: time.Date(2024, 6, 30, 9, 0, 0, 0, time.UTC), TargetDate: day(1), HighF: 95},
		{IssuedAt: time.Date(2024, 7, 1, 9, 0, 0, 0, time.UTC), TargetDate: day(1), HighF: 98},
		{IssuedAt: time.Date(2024, 7, 2, 9, 0, 0, 0, time.UTC), TargetDate: day(3), HighF: 102},
		// no observation yet
		{IssuedAt: time.Date(2024, 7, 2, 9, 0, 0, 0, time.UTC), TargetDate: day(4), HighF: 103},
	}

	rows := BuildDailyFeatures(highs, forecasts)
	if len(rows) != 2 {
		t.Fatalf("got %d rows; want 2", len(rows))
	}
	r := rows[0]
	if !r.TargetDate.Equal(day(1)) || r.TmaxF != 99 || r.ForecastHighF != 98 || r.IssuedAt.Day() != 1 {
		t.Errorf("first row = %+v; want latest forecast for July 1", r)
	}
	// 2024-07-01 is a Monday
	if r.Month != 7 || r.DayOfYear != 183 || r.DayOfWeek != 0 {
		t.Errorf("calendar = month %d doy %d dow %d", r.Month, r.DayOfYear, r.DayOfWeek)
	}
	if !rows[1].TargetDate.Equal(day(3)) || rows[1].ForecastHighF != 102 {
		t.Errorf("second row = %+v", rows[1])
	}
}
