package domain

import (
	"strings"

	dErrors "cpfregistry/pkg/domain-errors"
)

// CPF is a normalized Brazilian taxpayer identifier: exactly 11 ASCII digits
// whose last two digits are valid check digits. Obtain one with ParseCPF.
type CPF string

const cpfLength = 11

// ParseCPF normalizes raw and returns it as a CPF when it passes the checksum.
// Punctuation such as "529.982.247-25" is accepted.
func ParseCPF(raw string) (CPF, error) {
	normalized := NormalizeCPF(raw)
	if !isValidNormalized(normalized) {
		return "", dErrors.New(dErrors.CodeInvalidCPF, "CPF is not valid")
	}
	return CPF(normalized), nil
}

// IsValidCPF reports whether candidate is a valid CPF after stripping every
// character that is not an ASCII digit. It never panics.
func IsValidCPF(candidate string) bool {
	return isValidNormalized(NormalizeCPF(candidate))
}

// NormalizeCPF drops every rune outside '0'-'9'.
func NormalizeCPF(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for i := 0; i < len(raw); i++ {
		if c := raw[i]; c >= '0' && c <= '9' {
			b.WriteByte(c)
		}
	}
	return b.String()
}

func isValidNormalized(s string) bool {
	if len(s) != cpfLength || allSameDigit(s) {
		return false
	}
	var d [cpfLength]int
	for i := 0; i < cpfLength; i++ {
		d[i] = int(s[i] - '0')
	}
	return checkDigit(d[:9], 10) == d[9] && checkDigit(d[:10], 11) == d[10]
}

// checkDigit weighs digits from startWeight down by one and folds the sum
// with (sum*10) mod 11 mod 10.
func checkDigit(digits []int, startWeight int) int {
	sum := 0
	for i, digit := range digits {
		sum += digit * (startWeight - i)
	}
	return (sum * 10) % 11 % 10
}

func allSameDigit(s string) bool {
	for i := 1; i < len(s); i++ {
		if s[i] != s[0] {
			return false
		}
	}
	return true
}

// String returns the 11 normalized digits.
func (c CPF) String() string {
	return string(c)
}

// IsNil returns true if the CPF is empty.
func (c CPF) IsNil() bool {
	return c == ""
}

// Formatted renders the conventional 000.000.000-00 mask.
func (c CPF) Formatted() string {
	s := string(c)
	if len(s) != cpfLength {
		return s
	}
	return s[0:3] + "." + s[3:6] + "." + s[6:9] + "-" + s[9:11]
}

// Masked hides everything but the check digits. Use it in logs.
func (c CPF) Masked() string {
	s := string(c)
	if len(s) != cpfLength {
		return "***"
	}
	return "***.***.***-" + s[9:11]
}
