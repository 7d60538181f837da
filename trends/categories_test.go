package trends

import (
	"errors"
	"testing"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Taylor Swift", "taylor-swift"},
		{"  APT. ", "apt"},
		{"today 12-m", "today-12-m"},
		{"Beyoncé", "beyoncé"},
		{"AC/DC", "ac-dc"},
		{"a  b", "a--b"},
		{"---", ""},
	}
	for _, tt := range tests {
		if got := Slugify(tt.in); got != tt.want {
			t.Errorf("Slugify(%q) = %q; want %q", tt.in, got, tt.want)
		}
	}
}

func TestCategoryID(t *testing.T) {
	tests := []struct {
		name string
		want int
	}{
		{"All", 0},
		{"Arts & Entertainment", 3},
		{"Arts & Entertainment/TV & Video", 34},
		{"Arts & Entertainment/TV & Video/Online Video", 1358},
	}
	for _, tt := range tests {
		got, err := CategoryID(tt.name)
		if err != nil || got != tt.want {
			t.Errorf("CategoryID(%q) = %d, %v; want %d", tt.name, got, err, tt.want)
		}
	}
	if _, err := CategoryID("Sports"); !errors.Is(err, ErrUnknownCategory) {
		t.Errorf("CategoryID(%q) err = %v; want ErrUnknownCategory", "Sports", err)
	}
}

func TestFilenames(t *testing.T) {
	if got, want := InterestFilename("Taylor Swift", "2024-01-01", "2024-06-30", 3), "taylor-swift-2024-01-01_2024-06-30-cat3.json"; got != want {
		t.Errorf("InterestFilename = %q; want %q", got, want)
	}
	if got, want := CompareFilename([]string{"Drake", "Kendrick Lamar"}, "2024-01-01", "2024-06-30", 0), "compare-drake_vs_kendrick-lamar-2024-01-01_2024-06-30-cat0.json"; got != want {
		t.Errorf("CompareFilename = %q; want %q", got, want)
	}
	if got, want := RelatedFilename("topics", "Sabrina Carpenter", "today 12-m", 34), "related-topics-sabrina-carpenter-today-12-m-cat34.json"; got != want {
		t.Errorf("RelatedFilename = %q; want %q", got, want)
	}
}
