package domain

import (
	"errors"
	"strings"
	"unicode"
)

// ErrInvalidMobile is returned when a mobile number cannot be parsed.
var ErrInvalidMobile = errors.New("invalid mobile number")

// NormalizeMobile parses a phone number into E.164 form, assuming US
// numbers when no country code is present. Broadcast triggers with an
// unparsable mobile are rejected before any upstream call.
func NormalizeMobile(raw string) (string, error) {
	var digits strings.Builder
	for _, r := range raw {
		if unicode.IsDigit(r) {
			digits.WriteRune(r)
		}
	}

	n := digits.String()
	switch {
	case len(n) == 10:
		return "+1" + n, nil
	case len(n) == 11 && strings.HasPrefix(n, "1"):
		return "+" + n, nil
	case len(n) >= 11 && len(n) <= 15 && strings.HasPrefix(raw, "+"):
		return "+" + n, nil
	default:
		return "", ErrInvalidMobile
	}
}
