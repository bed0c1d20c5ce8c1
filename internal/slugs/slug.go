// Package slugs derives URL-safe identifiers from display names and
// provides locale-aware sorting for aggregate listings.
package slugs

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Slugify lowercases name, folds diacritics and collapses every run of
// non-alphanumeric characters into a single dash. An input without any
// usable characters yields "untitled" so a slug is never empty.
func Slugify(name string) string {
	folded, _, err := transform.String(stripMarks, name)
	if err != nil {
		folded = name
	}
	folded = strings.ToLower(folded)

	var b strings.Builder
	dash := false
	for _, r := range folded {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			dash = false
			b.WriteRune(r)
		default:
			dash = true
		}
	}
	if b.Len() == 0 {
		return "untitled"
	}
	return b.String()
}

// Unique resolves slug collisions by appending an incrementing numeric
// suffix: base, base-1, base-2, ... taken reports whether a candidate is
// already in use; callers exclude their own row when renaming so an
// aggregate never collides with itself.
func Unique(base string, taken func(slug string) (bool, error)) (string, error) {
	candidate := base
	for i := 1; ; i++ {
		inUse, err := taken(candidate)
		if err != nil {
			return "", fmt.Errorf("check slug %q: %w", candidate, err)
		}
		if !inUse {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
}
