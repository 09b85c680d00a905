// ABOUTME: Unit tests for slug derivation from note titles
// ABOUTME: Table-driven checks for normalization, collapsing, and bounds

package notes

import (
	"strings"
	"testing"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		title string
		want  string
	}{
		{title: "Hello World", want: "hello-world"},
		{title: "Hello, World!", want: "hello-world"},
		{title: "  lots   of   spaces  ", want: "lots-of-spaces"},
		{title: "UPPER case Title", want: "upper-case-title"},
		{title: "numbers 123 too", want: "numbers-123-too"},
		{title: "---already---hyphenated---", want: "already-hyphenated"},
		{title: "", want: "note"},
		{title: "!!!", want: "note"},
		{title: "émigré café", want: "migr-caf"},
		{title: "one", want: "one"},
	}

	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			if got := Slugify(tt.title); got != tt.want {
				t.Errorf("Slugify(%q) = %q, want %q", tt.title, got, tt.want)
			}
		})
	}
}

func TestSlugify_Deterministic(t *testing.T) {
	if Slugify("Some Title") != Slugify("Some Title") {
		t.Error("Slugify is not deterministic")
	}
}

func TestSlugify_LengthBounded(t *testing.T) {
	long := strings.Repeat("word ", 100)
	slug := Slugify(long)
	if len(slug) > maxSlugLength {
		t.Errorf("slug length = %d, want <= %d", len(slug), maxSlugLength)
	}
	if strings.HasSuffix(slug, "-") || strings.HasPrefix(slug, "-") {
		t.Errorf("slug %q has a dangling hyphen", slug)
	}
}
