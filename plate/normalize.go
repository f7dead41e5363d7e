// Package plate handles vehicle registration numbers: OCR-tolerant
// normalization for lookups and strict format checks for writes.
package plate

import (
	"strings"
)

// latinToCyrillic maps Latin letters to the Cyrillic letters they are
// visually indistinguishable from on a plate.
var latinToCyrillic = map[rune]rune{
	'A': 'А',
	'B': 'В',
	'C': 'С',
	'E': 'Е',
	'H': 'Н',
	'K': 'К',
	'M': 'М',
	'O': 'О',
	'P': 'Р',
	'T': 'Т',
	'X': 'Х',
	'Y': 'У',
}

// Normalize turns a raw plate reading into the lookup key stored in
// passes.plate_norm. Normalize(Normalize(s)) == Normalize(s).
func Normalize(raw string) string {
	if raw == "" {
		return ""
	}

	upper := strings.ToUpper(raw)

	var b strings.Builder
	b.Grow(len(upper))
	for _, r := range upper {
		if !keep(r) {
			continue
		}
		if c, ok := latinToCyrillic[r]; ok {
			r = c
		}
		if r == 'Ё' {
			r = 'Е'
		}
		b.WriteRune(r)
	}

	return b.String()
}

// keep drops separators and anything outside digits, A-Z, А-Я and Ё.
func keep(r rune) bool {
	switch {
	case r >= '0' && r <= '9':
		return true
	case r >= 'A' && r <= 'Z':
		return true
	case r >= 'А' && r <= 'Я':
		return true
	case r == 'Ё':
		return true
	}
	return false
}
