package dispatch

import (
	"regexp"
	"strings"
)

var nonDigits = regexp.MustCompile(`[^0-9]`)

// NormalizePhone canonicalizes a phone number to +<10-15 digits>.
// Separators are stripped; a leading "00" international prefix is dropped;
// a single leading "0" (national format) is replaced by defaultCountryCode
// when one is configured, otherwise the number is rejected.
func NormalizePhone(raw, defaultCountryCode string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", validationf("", "customer_phone is required")
	}

	hadPlus := strings.HasPrefix(trimmed, "+")
	digits := nonDigits.ReplaceAllString(trimmed, "")

	switch {
	case hadPlus:
		// digits already include the country code
	case strings.HasPrefix(digits, "00"):
		digits = digits[2:]
	case strings.HasPrefix(digits, "0"):
		if defaultCountryCode == "" {
			return "", validationf("", "phone %q is in national format and no default country code is configured", raw)
		}
		digits = nonDigits.ReplaceAllString(defaultCountryCode, "") + digits[1:]
	}

	if len(digits) < 10 || len(digits) > 15 {
		return "", validationf("", "phone %q does not normalize to 10-15 digits", raw)
	}
	return "+" + digits, nil
}
