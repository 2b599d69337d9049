package epw

import (
	"strconv"
	"strings"
)

// EPW tokens are read leniently: leading blanks are skipped, the longest
// numeric prefix is converted and anything after it is ignored. So "7/ 6"
// reads as 7 and " 1/ 1" as 1.

func trimLeadingSpace(s string) string {
	return strings.TrimLeft(s, " \t\n\v\f\r")
}

// numericPrefix returns the longest prefix of s that is a decimal number.
// When intOnly is set the fraction and exponent are not consumed.
func numericPrefix(s string, intOnly bool) string {
	i := 0
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	digits := 0
	for i < len(s) && isDigit(s[i]) {
		i++
		digits++
	}
	if intOnly {
		if digits == 0 {
			return ""
		}
		return s[:i]
	}
	if i < len(s) && s[i] == '.' {
		i++
		for i < len(s) && isDigit(s[i]) {
			i++
			digits++
		}
	}
	if digits == 0 {
		return ""
	}
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		j := i + 1
		if j < len(s) && (s[j] == '+' || s[j] == '-') {
			j++
		}
		k := j
		for k < len(s) && isDigit(s[k]) {
			k++
		}
		if k > j {
			i = k
		}
	}
	return s[:i]
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// parseFloatPrefix converts the numeric prefix of s. Overflow is a failure.
func parseFloatPrefix(s string) (float64, bool) {
	p := numericPrefix(trimLeadingSpace(s), false)
	if p == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(p, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// parseIntPrefix converts the integer prefix of s to a 32-bit range int.
func parseIntPrefix(s string) (int, bool) {
	p := numericPrefix(trimLeadingSpace(s), true)
	if p == "" {
		return 0, false
	}
	v, err := strconv.ParseInt(p, 10, 32)
	if err != nil {
		return 0, false
	}
	return int(v), true
}

// formatFixed renders v with six decimals, the form numeric setters store.
func formatFixed(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}
