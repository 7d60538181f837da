package services

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"chart-collector/models"
	"chart-collector/utils"
)

var (
	// numberRegexp matches a cleaned number with an optional magnitude suffix
	numberRegexp = regexp.MustCompile(`^(\d+(?:\.\d+)?)([KMB])?$`)
	// strippedRunes are removed before parsing: thousands separators, plus signs, whitespace
	strippedRunes = regexp.MustCompile(`[,+\s]`)
)

const (
	unknownPerformer = "Unknown"
	artistTitleSep   = " - "
	maxSlugLen       = 100
)

var magnitudes = map[string]float64{
	"K": 1e3,
	"M": 1e6,
	"B": 1e9,
}

// ParseNumber converts scraped text such as "1,234,567", "+2" or "2.5M"
// into an integer. Empty or non-numeric text yields 0.
func ParseNumber(raw string) int64 {
	cleaned := strings.ToUpper(strippedRunes.ReplaceAllString(raw, ""))
	m := numberRegexp.FindStringSubmatch(cleaned)
	if m == nil {
		return 0
	}

	val, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0
	}
	if mult, ok := magnitudes[m[2]]; ok {
		val *= mult
	}
	if val >= math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(val)
}

// SplitArtistTitle separates a combined "Artist - Title" cell. When the
// separator is missing the first two link texts are used, and failing that
// the performer is "Unknown" and the whole cell becomes the title.
func SplitArtistTitle(cell string, links []string) (performer, title string) {
	cell = normaliseText(cell)
	if idx := strings.Index(cell, artistTitleSep); idx >= 0 {
		return strings.TrimSpace(cell[:idx]), strings.TrimSpace(cell[idx+len(artistTitleSep):])
	}
	if len(links) >= 2 {
		return normaliseText(links[0]), normaliseText(links[1])
	}
	return unknownPerformer, cell
}

// Slug builds the synthesized natural key used by sources without their
// own identifier: prefix + "performer_title", spaces to underscores,
// lowercased and capped at 100 characters.
func Slug(prefix, performer, title string) string {
	s := strings.ToLower(strings.ReplaceAll(prefix+performer+"_"+title, " ", "_"))
	if r := []rune(s); len(r) > maxSlugLen {
		s = string(r[:maxSlugLen])
	}
	return s
}

// LargestMetric returns the largest number strictly above floor among the
// cells, or 0 when none qualifies. Rank and week columns are small, so the
// largest value is taken as the primary metric.
func LargestMetric(cells []string, floor int64) int64 {
	var best int64
	for _, c := range cells {
		if n := ParseNumber(c); n > floor && n > best {
			best = n
		}
	}
	return best
}

// Cleaner normalises parsed chart entries before they are stored.
type Cleaner struct {
	logger *utils.Logger
}

// NewCleaner creates a Cleaner with the given logger.
func NewCleaner(logger *utils.Logger) *Cleaner {
	return &Cleaner{logger: logger}
}

// Clean trims text fields, drops entries without a title and assigns a
// positional rank to entries whose rank could not be parsed.
func (c *Cleaner) Clean(source string, entries []models.ChartEntry) []models.ChartEntry {
	result := make([]models.ChartEntry, 0, len(entries))

	for i, e := range entries {
		e.Title = normaliseText(e.Title)
		e.Performer = normaliseText(e.Performer)
		e.SourceID = strings.TrimSpace(e.SourceID)

		if e.Title == "" {
			c.logger.Warn("[cleaner] %s: dropping row %d with empty title", source, i+1)
			continue
		}
		if e.Performer == "" {
			e.Performer = unknownPerformer
		}
		if e.Rank < 1 {
			e.Rank = i + 1
		}
		if e.Metric < 0 {
			e.Metric = 0
		}
		result = append(result, e)
	}

	if dropped := len(entries) - len(result); dropped > 0 {
		c.logger.Debug("[cleaner] %s: cleaned %d -> %d entries", source, len(entries), len(result))
	}
	return result
}

// normaliseText strips leading/trailing whitespace and collapses internal whitespace.
func normaliseText(s string) string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return unicode.IsSpace(r)
	})
	return strings.Join(fields, " ")
}
