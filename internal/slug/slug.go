// Package slug turns free text (competitor names, URLs) into lowercase,
// filesystem-safe tokens.
package slug

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fallback is returned when nothing alphanumeric survives normalization.
const Fallback = "item"

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// Make lowercases value, folds accented letters to their base letter
// ("Café" -> "cafe"), collapses every run of other characters into a single
// "-" and trims leading and trailing separators.
func Make(value string) string {
	value = strings.ToLower(fold(value))
	value = strings.Trim(nonAlnum.ReplaceAllString(value, "-"), "-")
	if value == "" {
		return Fallback
	}
	return value
}

func fold(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
