package utils

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Letters that do not decompose to ASCII under NFD.
var azTransliteration = strings.NewReplacer(
	"ə", "e", "Ə", "e",
	"ı", "i", "I", "i", "İ", "i",
	"ş", "s", "Ş", "s",
	"ç", "c", "Ç", "c",
	"ğ", "g", "Ğ", "g",
	"ö", "o", "Ö", "o",
	"ü", "u", "Ü", "u",
)

// Slugify lowercases s, transliterates Azerbaijani letters and joins words with hyphens.
func Slugify(s string) string {
	s = azTransliteration.Replace(s)

	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if out, _, err := transform.String(t, s); err == nil {
		s = out
	}
	s = strings.ToLower(s)

	var b strings.Builder
	dash := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case b.Len() > 0 && !dash:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
