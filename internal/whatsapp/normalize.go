// Package whatsapp holds the recipient address rules for the messaging
// boundary. Brazilian numbers are the domestic case: country calling code 55.
package whatsapp

import "strings"

const (
	// ServerDomain is the standard WhatsApp address suffix.
	ServerDomain = "s.whatsapp.net"
	// LIDDomain is the alternate-address suffix for linked-id recipients.
	LIDDomain = "lid"

	countryCode = "55"
)

// NormalizeJID turns a raw recipient identifier into the delivery address the
// messaging boundary expects. Rules:
//
//   - "user@lid" is left untouched, even when user is numeric.
//   - "user@s.whatsapp.net" with a numeric user missing the country code gets
//     the code prepended.
//   - a bare 11-digit number is a domestic phone: prefix the country code and
//     the server domain.
//   - a bare 13-digit number already starting with the country code maps to
//     the server domain; other 13/14/15 digit numbers are linked ids.
//   - anything else is returned unchanged.
func NormalizeJID(raw string) string {
	if raw == "" {
		return raw
	}

	if user, domain, ok := strings.Cut(raw, "@"); ok {
		if domain == LIDDomain {
			return raw
		}
		if domain == ServerDomain && isDigits(user) && !strings.HasPrefix(user, countryCode) {
			return countryCode + user + "@" + ServerDomain
		}
		return raw
	}

	if !isDigits(raw) {
		return raw
	}

	switch len(raw) {
	case 11:
		return countryCode + raw + "@" + ServerDomain
	case 13:
		if strings.HasPrefix(raw, countryCode) {
			return raw + "@" + ServerDomain
		}
		return raw + "@" + LIDDomain
	case 14, 15:
		return raw + "@" + LIDDomain
	}
	return raw
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
