package trends

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// ErrUnknownCategory is returned for a category name missing from Categories.
var ErrUnknownCategory = errors.New("unknown category")

// Categories maps human-readable Google Trends categories to their numeric ids.
var Categories = map[string]int{
	"All":                                          0,
	"Arts & Entertainment":                         3,
	"Arts & Entertainment/TV & Video":              34,
	"Arts & Entertainment/TV & Video/Online Video": 1358,
}

// CategoryID resolves a category name.
func CategoryID(name string) (int, error) {
	id, ok := Categories[name]
	if !ok {
		return 0, fmt.Errorf("%w %q", ErrUnknownCategory, name)
	}
	return id, nil
}

// Slugify lowercases letters and digits and turns everything else into
// '-', trimming dashes at both ends.
func Slugify(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		} else {
			b.WriteByte('-')
		}
	}
	return strings.Trim(b.String(), "-")
}

// InterestFilename names the saved interest-over-time payload.
func InterestFilename(term, start, end string, catID int) string {
	return fmt.Sprintf("%s-%s_%s-cat%d.json", Slugify(term), start, end, catID)
}

// CompareFilename names the saved compare payload.
func CompareFilename(terms []string, start, end string, catID int) string {
	slugs := make([]string, len(terms))
	for i, t := range terms {
		slugs[i] = Slugify(t)
	}
	return fmt.Sprintf("compare-%s-%s_%s-cat%d.json", strings.Join(slugs, "_vs_"), start, end, catID)
}

// RelatedFilename names the saved related topics or queries payload.
func RelatedFilename(mode, term, timeframe string, catID int) string {
	return fmt.Sprintf("related-%s-%s-%s-cat%d.json", mode, Slugify(term), Slugify(timeframe), catID)
}
