package facematch

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// RemoveDiacritics removes diacritical marks from a string (e.g., "Jiří" -> "Jiri").
func RemoveDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, s)
	return result
}

// NormalizeLabel normalizes a label for comparison (lowercase, no diacritics,
// spaces for dashes and underscores, surrounding whitespace trimmed).
func NormalizeLabel(label string) string {
	label = RemoveDiacritics(label)
	label = strings.ToLower(label)
	label = strings.NewReplacer("-", " ", "_", " ").Replace(label)
	return strings.TrimSpace(label)
}

// LabelMatches reports whether label matches the query after normalization.
// An empty query matches everything.
func LabelMatches(label, query string) bool {
	q := NormalizeLabel(query)
	if q == "" {
		return true
	}
	return strings.Contains(NormalizeLabel(label), q)
}
