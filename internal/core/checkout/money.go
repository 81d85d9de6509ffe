// Package checkout turns checkout input into gateway transaction payloads.
// Everything here is pure: no I/O, no clocks except the injected ones.
package checkout

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/petbox/petbox-payments/internal/core/domain"
)

var hundred = decimal.NewFromInt(100)

// PriceToCents converts a Brazilian currency string such as "R$ 79,90" or
// "R$ 1.234,56" into integer cents. When a decimal comma is present, dots
// are thousands separators; otherwise a dot is the decimal point. Only
// digits, dots and commas may follow the currency symbol.
func PriceToCents(price string) (int64, error) {
	s := strings.TrimSpace(price)
	s = strings.TrimPrefix(s, "R$")
	s = strings.Map(func(r rune) rune {
		if r == ' ' || r == '\u00a0' {
			return -1
		}
		return r
	}, s)
	if strings.IndexFunc(s, func(r rune) bool {
		return (r < '0' || r > '9') && r != '.' && r != ','
	}) >= 0 {
		return 0, domain.ErrInvalidAmount
	}
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	}
	if s == "" {
		return 0, domain.ErrInvalidAmount
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, domain.ErrInvalidAmount
	}
	if d.IsNegative() {
		return 0, domain.ErrInvalidAmount
	}
	return d.Mul(hundred).Round(0).IntPart(), nil
}

// CentsToPrice formats cents as "R$ 1.234,56".
func CentsToPrice(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	fixed := decimal.New(cents, -2).StringFixed(2)
	whole, frac, _ := strings.Cut(fixed, ".")

	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	return sign + "R$ " + b.String() + "," + frac
}
