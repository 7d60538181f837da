package models

// Point is one interest-over-time sample, scaled 0-100 by Google.
type Point struct {
	Date  string `json:"date"`
	Value int    `json:"value"`
}

// RelatedItem is one row of a related topics or queries ranking. Queries
// fill Query; topics fill the Topic fields.
type RelatedItem struct {
	Query          string `json:"query,omitempty"`
	TopicMID       string `json:"topic_mid,omitempty"`
	TopicTitle     string `json:"topic_title,omitempty"`
	TopicType      string `json:"topic_type,omitempty"`
	Value          int    `json:"value"`
	FormattedValue string `json:"formattedValue,omitempty"`
	Link           string `json:"link,omitempty"`
}

// InterestRequest asks for interest over time for one term between two dates.
type InterestRequest struct {
	SearchTerm string `json:"search_term" validate:"required"`
	StartDate  string `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate    string `json:"end_date" validate:"required,datetime=2006-01-02"`
	Geo        string `json:"geo"`
	Category   string `json:"category"`
}

// CompareRequest asks for several terms on a shared scale.
type CompareRequest struct {
	SearchTerms []string `json:"search_terms" validate:"required,min=2,max=5,dive,required"`
	StartDate   string   `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate     string   `json:"end_date" validate:"required,datetime=2006-01-02"`
	Geo         string   `json:"geo"`
	Category    string   `json:"category"`
}

// RelatedRequest asks for related topics or queries.
type RelatedRequest struct {
	SearchTerm string `json:"search_term" validate:"required"`
	Geo        string `json:"geo"`
	Category   string `json:"category"`
	Timeframe  string `json:"timeframe" validate:"required"`
	Mode       string `json:"mode" validate:"oneof=topics queries"`
}

type InterestResponse struct {
	SearchTerm string  `json:"search_term"`
	StartDate  string  `json:"start_date"`
	EndDate    string  `json:"end_date"`
	Geo        string  `json:"geo"`
	Category   string  `json:"category"`
	CategoryID int     `json:"category_id"`
	Points     []Point `json:"points"`
}

type CompareResponse struct {
	SearchTerms []string           `json:"search_terms"`
	StartDate   string             `json:"start_date"`
	EndDate     string             `json:"end_date"`
	Geo         string             `json:"geo"`
	Category    string             `json:"category"`
	CategoryID  int                `json:"category_id"`
	Series      map[string][]Point `json:"series"`
}

type RelatedResponse struct {
	SearchTerm string        `json:"search_term"`
	Geo        string        `json:"geo"`
	Category   string        `json:"category"`
	CategoryID int           `json:"category_id"`
	Timeframe  string        `json:"timeframe"`
	Mode       string        `json:"mode"`
	Top        []RelatedItem `json:"top"`
	Rising     []RelatedItem `json:"rising"`
}
