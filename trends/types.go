package trends

import (
	"context"

	"chart-collector/models"
)

// Query is what a Client needs to build a Trends payload.
type Query struct {
	Terms     []string
	Timeframe string
	Geo       string
	Category  int
}

// Client wraps the upstream trends API.
type Client interface {
	// InterestOverTime returns one series per term, keyed by term.
	InterestOverTime(ctx context.Context, q Query) (map[string][]models.Point, error)
	// Related returns the top and rising rankings for the single term in q.
	// mode is "topics" or "queries".
	Related(ctx context.Context, q Query, mode string) (top, rising []models.RelatedItem, err error)
}

