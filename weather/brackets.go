package weather

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"chart-collector/models"
)

// NormalCDF is the cumulative distribution of N(mean, std) at x.
func NormalCDF(x, mean, std float64) float64 {
	return distuv.Normal{Mu: mean, Sigma: std}.CDF(x)
}

// BracketProbabilities spreads N(mu, sigma) over brackets. Open bounds
// count as CDF 0 and 1, each mass is clamped to [0, 1] and the result is
// renormalised to sum to 1. If every mass is zero the result is all zeros.
// A non-positive sigma puts all mass on the bracket containing mu.
func BracketProbabilities(mu, sigma float64, brackets []models.Bracket) []models.BracketProbability {
	out := make([]models.BracketProbability, len(brackets))

	if sigma <= 0 {
		for i, b := range brackets {
			out[i].Bracket = b
			if contains(b, mu) {
				out[i].Probability = 1
				for j := i + 1; j < len(brackets); j++ {
					out[j].Bracket = brackets[j]
				}
				return out
			}
		}
		return out
	}

	total := 0.0
	for i, b := range brackets {
		lo, hi := 0.0, 1.0
		if b.Low != nil {
			lo = NormalCDF(*b.Low, mu, sigma)
		}
		if b.High != nil {
			hi = NormalCDF(*b.High, mu, sigma)
		}
		p := math.Max(0, math.Min(1, hi-lo))
		out[i] = models.BracketProbability{Bracket: b, Probability: p}
		total += p
	}
	if total > 0 {
		for i := range out {
			out[i].Probability /= total
		}
	}
	return out
}

func contains(b models.Bracket, x float64) bool {
	return (b.Low == nil || x > *b.Low) && (b.High == nil || x <= *b.High)
}

// ExampleBrackets returns six 2°F-wide brackets centred on mu with open tails.
func ExampleBrackets(mu float64) []models.Bracket {
	edges := []float64{mu - 4, mu - 2, mu, mu + 2, mu + 4}
	out := make([]models.Bracket, 0, len(edges)+1)
	out = append(out, models.Bracket{High: &edges[0]})
	for i := 0; i < len(edges)-1; i++ {
		out = append(out, models.Bracket{Low: &edges[i], High: &edges[i+1]})
	}
	return append(out, models.Bracket{Low: &edges[len(edges)-1]})
}

// Label renders a bracket as an interval, e.g. "(81.0, 83.0]".
func Label(b models.Bracket) string {
	switch {
	case b.Low == nil && b.High == nil:
		return "(-inf, +inf)"
	case b.Low == nil:
		return fmt.Sprintf("(-inf, %.1f]", *b.High)
	case b.High == nil:
		return fmt.Sprintf("(%.1f, +inf)", *b.Low)
	default:
		return fmt.Sprintf("(%.1f, %.1f]", *b.Low, *b.High)
	}
}
