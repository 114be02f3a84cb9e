// Package sanitize normalizes raw numeric form text before any other
// pipeline stage sees it.
package sanitize

import "strings"

const (
	maxDecimalPlaces = 8
	maxFieldLength   = 20
)

// Sanitize normalizes one raw numeric field. It is pure and total: any input
// string yields some output, never an error.
//
// The rule order is fixed and must not be reordered; on adversarial input
// such as "1-2.3.4-5" each permutation yields a different result:
//
//	strip disallowed characters
//	collapse to the first decimal point
//	collapse to the first minus sign
//	remove a non-leading minus sign
//	truncate decimal places beyond 8
//	truncate total length beyond 20
func Sanitize(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			b.WriteRune(r)
		}
	}
	s := b.String()

	s = keepFirst(s, '.')
	s = keepFirst(s, '-')

	if i := strings.IndexByte(s, '-'); i > 0 {
		s = s[:i] + s[i+1:]
	}

	if i := strings.IndexByte(s, '.'); i >= 0 && len(s)-i-1 > maxDecimalPlaces {
		s = s[:i+1+maxDecimalPlaces]
	}

	if len(s) > maxFieldLength {
		s = s[:maxFieldLength]
	}
	return s
}

// keepFirst removes every occurrence of c after the first.
func keepFirst(s string, c byte) string {
	first := strings.IndexByte(s, c)
	if first < 0 || strings.IndexByte(s[first+1:], c) < 0 {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	b.WriteString(s[:first+1])
	for i := first + 1; i < len(s); i++ {
		if s[i] != c {
			b.WriteByte(s[i])
		}
	}
	return b.String()
}
