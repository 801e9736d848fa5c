package domain

import (
	"strconv"
	"strings"
)

// FormatWithCommas groups the integer digits of a decimal string in thousands,
// e.g. "1234567.5" becomes "1,234,567.5". Non-numeric input is returned unchanged.
func FormatWithCommas(s string) string {
	if _, err := strconv.ParseFloat(s, 64); err != nil {
		return s
	}

	sign := ""
	if strings.HasPrefix(s, "-") || strings.HasPrefix(s, "+") {
		sign, s = s[:1], s[1:]
	}
	intPart, frac, hasFrac := strings.Cut(s, ".")

	var b strings.Builder
	b.WriteString(sign)
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if hasFrac {
		b.WriteByte('.')
		b.WriteString(frac)
	}
	return b.String()
}

// FormatNumber renders a float with the shortest exact representation and thousands separators.
func FormatNumber(v float64) string {
	return FormatWithCommas(strconv.FormatFloat(v, 'f', -1, 64))
}
