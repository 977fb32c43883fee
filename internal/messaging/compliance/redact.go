package compliance

import (
	"regexp"
	"strings"
)

var cardCandidate = regexp.MustCompile(`(?:\d[ -]?){13,19}`)

// RedactCards replaces likely payment card numbers with a placeholder that
// keeps only the last four digits. It reports whether anything changed.
// Text is redacted before it is stored in conversation history or sent to
// the generative model.
func RedactCards(text string) (string, bool) {
	if strings.TrimSpace(text) == "" {
		return text, false
	}
	changed := false
	out := cardCandidate.ReplaceAllStringFunc(text, func(match string) string {
		digits := keepDigits(match)
		if len(digits) < 13 || len(digits) > 19 || !luhn(digits) {
			return match
		}
		changed = true
		suffix := ""
		// keep the separator the pattern swallowed after the number
		if last := match[len(match)-1]; last == ' ' || last == '-' {
			suffix = string(last)
		}
		return "[card ending " + digits[len(digits)-4:] + "]" + suffix
	})
	if !changed {
		return text, false
	}
	return out, true
}

func keepDigits(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
}

// luhn validates the card checksum of an all-digit string.
func luhn(digits string) bool {
	sum := 0
	double := false
	for i := len(digits) - 1; i >= 0; i-- {
		n := int(digits[i] - '0')
		if double {
			if n *= 2; n > 9 {
				n -= 9
			}
		}
		sum += n
		double = !double
	}
	return sum%10 == 0
}
