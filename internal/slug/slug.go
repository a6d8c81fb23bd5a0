// Package slug turns country and city names into URL-safe identifiers.
//
// "São Paulo" → "sao-paulo", "Zürich" → "zurich", "  New   York " → "new-york".
//
// ACCENT FOLDING:
// norm.NFD splits "ã" into "a" + a combining tilde (unicode category Mn).
// runes.Remove(runes.In(unicode.Mn)) then drops the combining marks, leaving
// plain ASCII letters for most Latin-script names. Names in other scripts keep
// their letters; only separators are collapsed.
package slug

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Make returns the slug for name. An input with no letters or digits yields "".
func Make(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, name)
	if err != nil {
		folded = name
	}

	var b strings.Builder
	b.Grow(len(folded))
	pendingDash := false
	for _, r := range strings.ToLower(folded) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
			continue
		}
		pendingDash = true
	}
	return b.String()
}
