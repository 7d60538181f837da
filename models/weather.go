package models

import "time"

// DailyHigh is the maximum observed (or forecast) temperature for a day, in °F.
type DailyHigh struct {
	Date  time.Time
	HighF float64
}

// FeatureRow is one climatology training example keyed by target date.
type FeatureRow struct {
	TargetDate time.Time
	TmaxF      float64
	Lag1       float64
	RM3        float64
	RM7        float64
	Month      float64
	DayOfYear  float64
	DayOfWeek  float64
	SinDOY     float64
	CosDOY     float64
}

// Features returns the model inputs in a fixed column order.
func (r FeatureRow) Features() []float64 {
	return []float64{r.Lag1, r.RM3, r.RM7, r.Month, r.DayOfYear, r.DayOfWeek, r.SinDOY, r.CosDOY}
}

// FeatureNames matches the order of FeatureRow.Features.
var FeatureNames = []string{"tmax_F_lag_1", "tmax_F_rm3", "tmax_F_rm7", "month", "dayofyear", "dow", "sin_doy", "cos_doy"}

// Bracket is a half-open interval (Low, High]. Nil bounds are open-ended.
type Bracket struct {
	Low  *float64
	High *float64
}

// BracketProbability pairs a bracket with its estimated probability mass.
type BracketProbability struct {
	Bracket     Bracket
	Probability float64
}

// Metrics holds regression error statistics.
type Metrics struct {
	MAE  float64
	RMSE float64
}

// EvaluationReport compares the naive baseline with the fitted model.
type EvaluationReport struct {
	TrainRows     int
	TestRows      int
	TrainEnd      time.Time
	TestStart     time.Time
	BaselineTrain Metrics
	BaselineTest  Metrics
	ModelTrain    Metrics
	ModelTest     Metrics
	ResidualSigma float64
}

// PointForecast is one daytime high from a gridpoint forecast.
type PointForecast struct {
	IssuedAt   time.Time
	TargetDate time.Time
	HighF      float64
}

// DailyFeatureRow pairs an observed high with the latest point forecast
// issued for the same day.
type DailyFeatureRow struct {
	TargetDate    time.Time
	TmaxF         float64
	ForecastHighF float64
	IssuedAt      time.Time
	Month         int
	DayOfYear     int
	// DayOfWeek counts from Monday = 0.
	DayOfWeek int
}
