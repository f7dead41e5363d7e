package plate

import (
	"errors"
	"regexp"
	"strings"
)

var (
	ErrRequired      = errors.New("vehicle number is required")
	ErrEmpty         = errors.New("vehicle number must not be empty")
	ErrInvalidFormat = errors.New("invalid vehicle number format: use RU (А123ВС777 or A123BC777), KZ (123АВС01 or 123ABC01) or UZ (01А123ВС or 01A123BC)")
)

// plate letters that have a Latin twin, in both scripts
const letters = `[АВЕКМНОРСТУХABCEHKMOPTXY]`

var regionalFormats = []*regexp.Regexp{
	regexp.MustCompile(`^` + letters + `\d{3}` + letters + `{2}\d{2,3}$`), // RU
	regexp.MustCompile(`^\d{1,4}` + letters + `{2,3}\d{2}$`),              // KZ
	regexp.MustCompile(`^\d{2}` + letters + `\d{3}` + letters + `{2}$`),   // UZ
}

var whitespace = regexp.MustCompile(`\s+`)

// Validate rejects vehicle numbers that match none of the supported
// regional formats. It is used on every write of a pass number.
func Validate(number string) error {
	if number == "" {
		return ErrRequired
	}

	trimmed := strings.ToUpper(whitespace.ReplaceAllString(strings.TrimSpace(number), ""))
	if trimmed == "" {
		return ErrEmpty
	}

	if matchesRegional(trimmed) || matchesRegional(toCyrillic(trimmed)) {
		return nil
	}

	return ErrInvalidFormat
}

// Canonical returns the stored form of a vehicle number: uppercase with
// whitespace and hyphens removed.
func Canonical(number string) string {
	s := whitespace.ReplaceAllString(strings.TrimSpace(number), "")
	return strings.ToUpper(strings.ReplaceAll(s, "-", ""))
}

func matchesRegional(s string) bool {
	for _, re := range regionalFormats {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

func toCyrillic(s string) string {
	return strings.Map(func(r rune) rune {
		if c, ok := latinToCyrillic[r]; ok {
			return c
		}
		return r
	}, s)
}
