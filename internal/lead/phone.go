package lead

import (
	"fmt"
	"strings"
)

// NormalizeE164 converts an uploaded phone number into E.164 form: a leading
// plus and 8..15 digits. Separators and surrounding whitespace are dropped;
// "00" international prefixes become "+". It does not validate country codes.
func NormalizeE164(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", fmt.Errorf("empty phone number")
	}
	hadPlus := strings.HasPrefix(s, "+")

	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()

	if !hadPlus && strings.HasPrefix(digits, "00") {
		digits = digits[2:]
	}
	if len(digits) < 8 || len(digits) > 15 {
		return "", fmt.Errorf("phone number %q has %d digits, want 8..15", raw, len(digits))
	}
	return "+" + digits, nil
}
