// Package normalize produces stable comparison keys from free-text place names.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripMarks decomposes accented characters and removes their combining marks,
// so "São Paulo" and "Sao Paulo" normalize to the same key.
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Key canonicalizes a free-text place or country name: accents stripped,
// non-ASCII remnants dropped, lowercased, trimmed. Total and idempotent —
// any input (including empty) yields a defined output.
func Key(raw string) string {
	s, _, err := transform.String(stripMarks, raw)
	if err != nil {
		// transform.String only fails on malformed UTF-8; fall back to the
		// raw bytes and let the ASCII filter below discard the garbage.
		s = raw
	}

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r < 128 {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return strings.TrimSpace(b.String())
}
