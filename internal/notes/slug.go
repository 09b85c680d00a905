// ABOUTME: Deterministic slug derivation from note titles
// ABOUTME: Lowercase, hyphen-separated, ASCII-alphanumeric only

package notes

import (
	"strings"
	"unicode"
)

// maxSlugLength bounds slugs so URLs stay readable.
const maxSlugLength = 64

// Slugify converts a title to a URL slug: lowercase, non-alphanumeric
// runs collapsed into single hyphens, trimmed, and length-bounded.
// The same title always yields the same slug.
func Slugify(title string) string {
	var b strings.Builder
	lastHyphen := true // suppress a leading hyphen

	for _, r := range strings.ToLower(title) {
		switch {
		case unicode.IsLetter(r) && r < unicode.MaxASCII, unicode.IsDigit(r) && r < unicode.MaxASCII:
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
		if b.Len() >= maxSlugLength {
			break
		}
	}

	slug := strings.Trim(b.String(), "-")
	if slug == "" {
		return "note"
	}
	return slug
}
