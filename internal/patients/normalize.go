package patients

import (
	"strings"
	"unicode"
)

// NormalizeName strips every whitespace rune, including the full-width
// space U+3000, so "山田 太郎", "山田太郎" and "山田　太郎" compare equal.
// Idempotent by construction.
func NormalizeName(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

// NormalizeDigits folds full-width digits to ASCII and drops everything
// that is not a digit. Used for card numbers and birth dates, which
// patients routinely type in full-width form.
func NormalizeDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r >= '０' && r <= '９':
			b.WriteRune(r - '０' + '0')
		}
	}
	return b.String()
}
