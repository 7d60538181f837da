package weather

import (
	"math"
	"testing"

	"chart-collector/models"
)

func TestNormalCDF(t *testing.T) {
	tests := []struct {
		x, mean, std, want float64
	}{
		{0, 0, 1, 0.5},
		{85, 85, 3, 0.5},
		{1.959964, 0, 1, 0.975},
		{-1.959964, 0, 1, 0.025},
	}
	for _, tt := range tests {
		if got := NormalCDF(tt.x, tt.mean, tt.std); math.Abs(got-tt.want) > 1e-6 {
			t.Errorf("NormalCDF(%v, %v, %v) = %v; want %v", tt.x, tt.mean, tt.std, got, tt.want)
		}
	}
}

func TestBracketProbabilitiesSumToOne(t *testing.T) {
	for _, tc := range []struct{ mu, sigma float64 }{{85, 3}, {70, 0.5}, {100, 12}, {60, 2}} {
		probs := BracketProbabilities(tc.mu, tc.sigma, ExampleBrackets(85))
		sum := 0.0
		for _, p := range probs {
			if p.Probability < 0 || p.Probability > 1 {
				t.Errorf("mu=%v sigma=%v: probability %v outside [0,1]", tc.mu, tc.sigma, p.Probability)
			}
			sum += p.Probability
		}
		if math.Abs(sum-1) > 1e-9 {
			t.Errorf("mu=%v sigma=%v: sum = %v; want 1", tc.mu, tc.sigma, sum)
		}
	}
}

func TestBracketProbabilitiesSymmetric(t *testing.T) {
	brackets := ExampleBrackets(85)
	if Label(brackets[0]) != "(-inf, 81.0]" || Label(brackets[5]) != "(89.0, +inf)" {
		t.Fatalf("unexpected brackets %s .. %s", Label(brackets[0]), Label(brackets[5]))
	}

	probs := BracketProbabilities(85, 3, brackets)
	for i := 0; i < 3; i++ {
		a, b := probs[i].Probability, probs[5-i].Probability
		if math.Abs(a-b) > 1e-9 {
			t.Errorf("bracket %d = %v, mirror %d = %v; want equal", i, a, 5-i, b)
		}
	}
	if probs[2].Probability <= probs[1].Probability || probs[1].Probability <= probs[0].Probability {
		t.Errorf("central brackets should carry the most mass: %v %v %v",
			probs[0].Probability, probs[1].Probability, probs[2].Probability)
	}
	if probs[0].Probability > 0.2 {
		t.Errorf("tail mass %v; want under 0.2", probs[0].Probability)
	}
}

func TestBracketProbabilitiesZeroSigma(t *testing.T) {
	probs := BracketProbabilities(84, 0, ExampleBrackets(85))
	for i, p := range probs {
		want := 0.0
		if i == 2 {
			want = 1
		}
		if p.Probability != want {
			t.Errorf("bracket %s = %v; want %v", Label(p.Bracket), p.Probability, want)
		}
	}
}

func TestBracketProbabilitiesDegenerate(t *testing.T) {
	lo, hi := 1000.0, 1001.0
	probs := BracketProbabilities(50, 1, []models.Bracket{{Low: &lo, High: &hi}})
	if probs[0].Probability != 0 {
		t.Errorf("far bracket = %v; want 0", probs[0].Probability)
	}
}
