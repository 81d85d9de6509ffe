package checkout

import (
	"strings"
	"time"
)

// FormatCardNumber groups the leading run of up to 16 digits into blocks
// of four, for echoing back in a form field. It never fails: input with
// fewer than four digits comes back as its bare digits.
func FormatCardNumber(raw string) string {
	v := Digits(raw)
	if len(v) < 4 {
		return v
	}
	if len(v) > 16 {
		v = v[:16]
	}

	parts := make([]string, 0, 4)
	for i := 0; i < len(v); i += 4 {
		end := i + 4
		if end > len(v) {
			end = len(v)
		}
		parts = append(parts, v[i:end])
	}
	return strings.Join(parts, " ")
}

// ValidExpiration reports whether month/year is a plausible, unexpired
// card expiration relative to now.
func ValidExpiration(month, year int, now time.Time) bool {
	if month < 1 || month > 12 {
		return false
	}
	if year < 1000 || year > 9999 {
		return false
	}
	if year < now.Year() {
		return false
	}
	return year > now.Year() || month >= int(now.Month())
}
