package checkout

import "strings"

// Digits strips every non-digit character from s.
func Digits(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
}

func allSame(s string) bool {
	for i := 1; i < len(s); i++ {
		if s[i] != s[0] {
			return false
		}
	}
	return true
}

// ValidCPF checks the two mod-11 verification digits of a CPF.
// Sequences of a single repeated digit are always rejected.
func ValidCPF(cpf string) bool {
	c := Digits(cpf)
	if len(c) != 11 || allSame(c) {
		return false
	}

	check := func(n int) int {
		sum := 0
		for i := 0; i < n; i++ {
			sum += int(c[i]-'0') * (n + 1 - i)
		}
		d := 11 - sum%11
		if d >= 10 {
			return 0
		}
		return d
	}

	return check(9) == int(c[9]-'0') && check(10) == int(c[10]-'0')
}

var (
	cnpjWeights1 = []int{5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2}
	cnpjWeights2 = []int{6, 5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2}
)

// ValidCNPJ checks the two verification digits of a CNPJ.
func ValidCNPJ(cnpj string) bool {
	c := Digits(cnpj)
	if len(c) != 14 || allSame(c) {
		return false
	}

	check := func(weights []int) int {
		sum := 0
		for i, w := range weights {
			sum += int(c[i]-'0') * w
		}
		r := sum % 11
		if r < 2 {
			return 0
		}
		return 11 - r
	}

	return check(cnpjWeights1) == int(c[12]-'0') && check(cnpjWeights2) == int(c[13]-'0')
}

// FormatDocument masks an 11-digit CPF or 14-digit CNPJ. Anything else is
// returned unchanged.
func FormatDocument(doc string) string {
	c := Digits(doc)
	switch len(c) {
	case 11:
		return c[0:3] + "." + c[3:6] + "." + c[6:9] + "-" + c[9:11]
	case 14:
		return c[0:2] + "." + c[2:5] + "." + c[5:8] + "/" + c[8:12] + "-" + c[12:14]
	}
	return doc
}
