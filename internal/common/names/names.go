// Package names holds matching helpers for model names.
package names

import (
	"unicode"
	"unicode/utf8"
)

// HasPrefixFold reports whether s begins with prefix under Unicode simple
// case folding. Runes are compared one at a time, so folded pairs with
// different encoded widths (such as 'k' and the Kelvin sign) still match.
func HasPrefixFold(s, prefix string) bool {
	for prefix != "" {
		if s == "" {
			return false
		}
		pr, pn := utf8.DecodeRuneInString(prefix)
		sr, sn := utf8.DecodeRuneInString(s)
		if !runeEqualFold(sr, pr) {
			return false
		}
		s, prefix = s[sn:], prefix[pn:]
	}
	return true
}

func runeEqualFold(a, b rune) bool {
	if a == b {
		return true
	}
	for f := unicode.SimpleFold(a); f != a; f = unicode.SimpleFold(f) {
		if f == b {
			return true
		}
	}
	return false
}
