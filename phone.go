package main

import "strings"

// PhoneNormalizer validates raw spreadsheet cells into canonical
// country-coded digit strings.
type PhoneNormalizer struct {
	CountryCode string
	LocalDigits int
}

func NewPhoneNormalizer(countryCode string, localDigits int) *PhoneNormalizer {
	return &PhoneNormalizer{CountryCode: countryCode, LocalDigits: localDigits}
}

// Normalize returns the canonical phone number and whether the input was
// valid. A bare local number gets the country code prefixed; a number that
// already carries the prefix passes through unchanged; every other shape is
// rejected. Spreadsheet cells often arrive as floats ("987654321.0"), so a
// trailing ".0"/".00" fraction is stripped before digit checking.
func (n *PhoneNormalizer) Normalize(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", false
	}

	if dot := strings.IndexByte(s, '.'); dot != -1 {
		frac := s[dot+1:]
		if frac != strings.Repeat("0", len(frac)) {
			return "", false
		}
		s = s[:dot]
	}

	s = strings.TrimPrefix(s, "+")
	for _, r := range s {
		if r < '0' || r > '9' {
			return "", false
		}
	}

	fullLen := len(n.CountryCode) + n.LocalDigits
	switch {
	case len(s) == fullLen && strings.HasPrefix(s, n.CountryCode):
		return s, true
	case len(s) == n.LocalDigits:
		return n.CountryCode + s, true
	default:
		return "", false
	}
}
