package domain

import (
	"strings"
)

// CountryCode is prepended to bare 10-digit local numbers for the gateway.
const CountryCode = "91"

// PhoneDigits strips every non-digit character from raw.
func PhoneDigits(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// GatewayPhone formats raw into the international form the SMS gateway expects:
// digits only, one leading zero removed, and CountryCode prefixed when a bare
// 10-digit local number remains.
func GatewayPhone(raw string) string {
	digits := PhoneDigits(raw)
	digits = strings.TrimPrefix(digits, "0")
	if len(digits) == 10 && !strings.HasPrefix(digits, CountryCode) {
		digits = CountryCode + digits
	}
	return digits
}

// MaskPhone keeps the last four digits. Safe for logs.
func MaskPhone(raw string) string {
	digits := PhoneDigits(raw)
	if len(digits) <= 4 {
		return "****"
	}
	return strings.Repeat("*", len(digits)-4) + digits[len(digits)-4:]
}
