package notification

import (
	"strings"
)

// FormatE164 turns a stored phone number into E.164. Ten-digit national
// numbers get countryCode prepended; anything already starting with "+" is
// kept as digits after the plus.
func FormatE164(phone, countryCode string) string {
	digits := onlyDigits(phone)
	if digits == "" {
		return ""
	}
	if strings.HasPrefix(strings.TrimSpace(phone), "+") {
		return "+" + digits
	}
	cc := onlyDigits(countryCode)
	if len(digits) == 10 && cc != "" {
		return "+" + cc + digits
	}
	return "+" + digits
}

func onlyDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
