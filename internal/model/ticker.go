package model

import "strings"

// Ticker is the exchange symbol of a tradable security.
type Ticker string

// NormalizeTicker trims whitespace and upper-cases a raw symbol.
func NormalizeTicker(raw string) Ticker {
	return Ticker(strings.ToUpper(strings.TrimSpace(raw)))
}

// IsValid reports whether the symbol is non-empty and made of ASCII letters only.
// Class suffixes ("BRK.B", "BF-B") and numeric codes are rejected.
func (t Ticker) IsValid() bool {
	if t == "" {
		return false
	}
	for _, r := range string(t) {
		if (r < 'A' || r > 'Z') && (r < 'a' || r > 'z') {
			return false
		}
	}
	return true
}

func (t Ticker) String() string { return string(t) }
