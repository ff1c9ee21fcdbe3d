package sms

import "strings"

// FormatPhoneNumber normalizes Taiwanese mobile numbers to E.164. Numbers
// already carrying a country code pass through unchanged.
func FormatPhoneNumber(phone string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '(', ')':
			return -1
		default:
			return r
		}
	}, strings.TrimSpace(phone))

	if cleaned == "" {
		return ""
	}
	if strings.HasPrefix(cleaned, "+") {
		return cleaned
	}
	if strings.HasPrefix(cleaned, "09") {
		return "+886" + cleaned[1:]
	}
	if strings.HasPrefix(cleaned, "886") {
		return "+" + cleaned
	}
	return cleaned
}
