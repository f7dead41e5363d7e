package plate

import (
	"errors"
	"regexp"
	"strings"
)

var (
	ErrLength       = errors.New("vehicle number must be 4 to 12 characters long")
	ErrNeedsLetters = errors.New("vehicle number must contain letters")
	ErrNeedsDigits  = errors.New("vehicle number must contain digits")
	ErrMalformed    = errors.New("malformed vehicle number")
)

type countryFormat struct {
	country  string
	patterns []*regexp.Regexp
}

// Checked in order; the first matching country wins.
var countryFormats = []countryFormat{
	{"RU", []*regexp.Regexp{
		regexp.MustCompile(`(?i)^[АВЕКМНОРСТУХ]\d{3}[АВЕКМНОРСТУХ]{2}\d{2,3}$`),
		regexp.MustCompile(`(?i)^[АВЕКМНОРСТУХ]{2}\d{3}\d{2,3}$`),
	}},
	{"UA", []*regexp.Regexp{
		regexp.MustCompile(`(?i)^[АВЕІКМНОРСТХ]{2}\d{4}[АВЕІКМНОРСТХ]{2}$`),
		regexp.MustCompile(`(?i)^\d{4}[АВЕІКМНОРСТХ]{2}$`),
	}},
	{"BY", []*regexp.Regexp{
		regexp.MustCompile(`(?i)^\d{4}[АВЕКМНОРСТУХ]{2}\d$`),
	}},
	{"KZ", []*regexp.Regexp{
		regexp.MustCompile(`(?i)^\d{3}[АВЕКМНОРСТУХ]{3}\d{2}$`),
	}},
	{"EU", []*regexp.Regexp{
		regexp.MustCompile(`(?i)^[A-Z]{1,3}\d{1,4}[A-Z]{0,3}$`),
		regexp.MustCompile(`(?i)^[A-Z]{2}\d{2}\d{2}[A-Z]{2}$`),
		regexp.MustCompile(`(?i)^\d{1,4}[A-Z]{1,3}\d{1,4}$`),
	}},
	{"US", []*regexp.Regexp{
		regexp.MustCompile(`(?i)^[A-Z]{1,3}\d{1,4}$`),
		regexp.MustCompile(`(?i)^\d{1,4}[A-Z]{1,3}$`),
	}},
}

var (
	anyLetter  = regexp.MustCompile(`[А-ЯA-Z]`)
	anyDigit   = regexp.MustCompile(`\d`)
	onlyDigits = regexp.MustCompile(`^\d+$`)
	onlyLetter = regexp.MustCompile(`^[А-ЯA-Z]+$`)
)

// ValidateLoose is the permissive pre-check shown to residents while they
// type. It accepts any plausible mix of letters and digits and reports the
// recognised country when a known format matches. Writes still go through
// Validate.
func ValidateLoose(number string) (country string, err error) {
	if strings.TrimSpace(number) == "" {
		return "", ErrRequired
	}

	s := Canonical(number)
	n := len([]rune(s))
	if n < 4 || n > 12 {
		return "", ErrLength
	}

	for _, f := range countryFormats {
		for _, re := range f.patterns {
			if re.MatchString(s) {
				return f.country, nil
			}
		}
	}

	switch {
	case anyLetter.MatchString(s) && anyDigit.MatchString(s):
		return "", nil
	case onlyDigits.MatchString(s):
		return "", ErrNeedsLetters
	case onlyLetter.MatchString(s):
		return "", ErrNeedsDigits
	}

	return "", ErrMalformed
}
