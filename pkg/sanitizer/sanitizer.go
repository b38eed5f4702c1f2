package sanitizer

import (
	"strings"
	"unicode"
)

// Clean trims surrounding whitespace, collapses internal runs of
// whitespace to a single space, and drops control characters.
func Clean(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	lastSpace := false
	for _, r := range strings.TrimSpace(s) {
		if unicode.IsControl(r) {
			continue
		}
		if unicode.IsSpace(r) {
			if !lastSpace {
				b.WriteRune(' ')
			}
			lastSpace = true
			continue
		}
		lastSpace = false
		b.WriteRune(r)
	}

	return b.String()
}

// NormalizeEmail lowercases and trims an email address for storage and
// lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
