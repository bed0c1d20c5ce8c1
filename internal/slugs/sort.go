package slugs

import (
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// NewCollator builds a collator for the configured locale, falling back
// to the neutral root collation when the tag does not parse.
func NewCollator(locale string) *collate.Collator {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.Und
	}
	return collate.New(tag)
}

// SortBy stable-sorts items by the keys each element reports, comparing
// key by key with the collator. Later keys break ties on earlier ones.
func SortBy[T any](c *collate.Collator, items []T, keys func(T) []string) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := keys(items[i]), keys(items[j])
		for k := 0; k < len(a) && k < len(b); k++ {
			switch c.CompareString(a[k], b[k]) {
			case -1:
				return true
			case 1:
				return false
			}
		}
		return len(a) < len(b)
	})
}
