package weather

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"chart-collector/models"
)

// DefaultTestFrac is the share of the most recent rows held out for testing.
const DefaultTestFrac = 0.2

// Model is a linear regression of the daily high on the climatology
// features. A small ridge penalty keeps the normal equations positive
// definite when features are nearly collinear.
type Model struct {
	Lambda float64
	// Weights[0] is the intercept, followed by one weight per feature.
	Weights []float64
	// means and scales standardise features before fitting
	means  []float64
	scales []float64
}

// NewModel returns an unfitted model with the default penalty.
func NewModel() *Model {
	return &Model{Lambda: 1e-3}
}

// Fit estimates the weights from rows by solving the ridge normal
// equations with a Cholesky factorisation.
func (m *Model) Fit(rows []models.FeatureRow) error {
	if len(rows) == 0 {
		return ErrNoData
	}
	p := len(rows[0].Features())
	m.means, m.scales = standardisation(rows, p)

	n, k := len(rows), p+1
	x := mat.NewDense(n, k, nil)
	y := mat.NewVecDense(n, nil)
	for i, r := range rows {
		x.SetRow(i, m.design(r))
		y.SetVec(i, r.TmaxF)
	}

	var xtx mat.SymDense
	xtx.SymOuterK(1, x.T())
	for i := 1; i < k; i++ {
		xtx.SetSym(i, i, xtx.At(i, i)+m.Lambda*float64(n))
	}
	var xty mat.VecDense
	xty.MulVec(x.T(), y)

	var chol mat.Cholesky
	if ok := chol.Factorize(&xtx); !ok {
		return errors.New("fit: normal equations are not positive definite")
	}
	var w mat.VecDense
	if err := chol.SolveVecTo(&w, &xty); err != nil {
		// mat.Condition only warns that the result may be inaccurate
		var cond mat.Condition
		if !errors.As(err, &cond) {
			return fmt.Errorf("fit: %w", err)
		}
	}
	m.Weights = mat.Col(nil, 0, &w)
	return nil
}

// Predict returns the estimated high for one row.
func (m *Model) Predict(r models.FeatureRow) float64 {
	return floats.Dot(m.Weights, m.design(r))
}

// PredictAll predicts every row.
func (m *Model) PredictAll(rows []models.FeatureRow) []float64 {
	out := make([]float64, len(rows))
	for i, r := range rows {
		out[i] = m.Predict(r)
	}
	return out
}

func (m *Model) design(r models.FeatureRow) []float64 {
	f := r.Features()
	x := make([]float64, len(f)+1)
	x[0] = 1
	for i, v := range f {
		x[i+1] = (v - m.means[i]) / m.scales[i]
	}
	return x
}

func standardisation(rows []models.FeatureRow, p int) (means, scales []float64) {
	means = make([]float64, p)
	scales = make([]float64, p)
	col := make([]float64, len(rows))
	for j := 0; j < p; j++ {
		for i, r := range rows {
			col[i] = r.Features()[j]
		}
		means[j], scales[j] = stat.PopMeanStdDev(col, nil)
		if !(scales[j] > 0) {
			scales[j] = 1
		}
	}
	return means, scales
}

// SplitTime splits rows chronologically: the last testFrac share is the
// test set.
func SplitTime(rows []models.FeatureRow, testFrac float64) (train, test []models.FeatureRow) {
	nTest := int(float64(len(rows)) * testFrac)
	nTrain := len(rows) - nTest
	return rows[:nTrain], rows[nTrain:]
}

// Score computes MAE and RMSE.
func Score(actual, predicted []float64) models.Metrics {
	if len(actual) == 0 {
		return models.Metrics{}
	}
	var abs, sq float64
	for i := range actual {
		e := predicted[i] - actual[i]
		abs += math.Abs(e)
		sq += e * e
	}
	n := float64(len(actual))
	return models.Metrics{MAE: abs / n, RMSE: math.Sqrt(sq / n)}
}

// ResidualSigma is the sample standard deviation (n-1) of predicted-actual.
func ResidualSigma(actual, predicted []float64) float64 {
	if len(actual) < 2 {
		return 0
	}
	res := make([]float64, len(actual))
	floats.SubTo(res, predicted, actual)
	return stat.StdDev(res, nil)
}

// Evaluate fits a model on the training split and compares it with the
// naive baseline (yesterday's high) on both splits. The returned model is
// the one fitted on the training rows.
func Evaluate(rows []models.FeatureRow, testFrac float64) (models.EvaluationReport, *Model, error) {
	train, test := SplitTime(rows, testFrac)
	if len(train) == 0 || len(test) == 0 {
		return models.EvaluationReport{}, nil, fmt.Errorf("evaluate: need train and test rows, have %d/%d: %w", len(train), len(test), ErrNoData)
	}

	m := NewModel()
	if err := m.Fit(train); err != nil {
		return models.EvaluationReport{}, nil, err
	}

	trainY, trainLag := labels(train)
	testY, testLag := labels(test)
	trainPred := m.PredictAll(train)
	testPred := m.PredictAll(test)

	return models.EvaluationReport{
		TrainRows:     len(train),
		TestRows:      len(test),
		TrainEnd:      train[len(train)-1].TargetDate,
		TestStart:     test[0].TargetDate,
		BaselineTrain: Score(trainY, trainLag),
		BaselineTest:  Score(testY, testLag),
		ModelTrain:    Score(trainY, trainPred),
		ModelTest:     Score(testY, testPred),
		ResidualSigma: ResidualSigma(testY, testPred),
	}, m, nil
}

func labels(rows []models.FeatureRow) (y, lag []float64) {
	y = make([]float64, len(rows))
	lag = make([]float64, len(rows))
	for i, r := range rows {
		y[i] = r.TmaxF
		lag[i] = r.Lag1
	}
	return y, lag
}
