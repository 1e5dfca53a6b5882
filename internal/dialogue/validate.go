package dialogue

import (
	"regexp"
	"strings"
)

var (
	emailRe    = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	nonDigitRe = regexp.MustCompile(`\D`)
)

// ValidName accepts anything with at least two non-space characters.
func ValidName(text string) bool {
	return len(strings.TrimSpace(text)) >= 2
}

// NormalizePhone strips formatting and returns a dialable number, or "" when
// the input is not a plausible phone. Bare 8-digit Singapore mobile numbers
// (leading 8 or 9) gain the 65 country code.
func NormalizePhone(text string) string {
	text = strings.TrimSpace(strings.ToLower(text))
	text = strings.TrimPrefix(text, "whatsapp:")
	digits := nonDigitRe.ReplaceAllString(text, "")

	switch {
	case len(digits) == 8 && (digits[0] == '8' || digits[0] == '9'):
		return "65" + digits
	case len(digits) >= 10 && len(digits) <= 15:
		return digits
	default:
		return ""
	}
}

// ValidEmail reports whether the text looks like an email address.
func ValidEmail(text string) bool {
	return emailRe.MatchString(strings.TrimSpace(text))
}
