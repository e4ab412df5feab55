// Package phone provides phone number utilities.
// This is part of the platform layer and contains no business logic.
package phone

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

const defaultRegion = "US"

// NormalizeE164 formats a phone number to E.164. If parsing fails, it returns the trimmed input.
func NormalizeE164(input string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return trimmed
	}

	number, err := phonenumbers.Parse(trimmed, defaultRegion)
	if err != nil {
		return trimmed
	}

	if !phonenumbers.IsValidNumber(number) {
		return trimmed
	}

	return phonenumbers.Format(number, phonenumbers.E164)
}

// Messageable reports whether input parses to a valid number a messaging
// gateway can reach.
func Messageable(input string) bool {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return false
	}
	number, err := phonenumbers.Parse(trimmed, defaultRegion)
	if err != nil {
		return false
	}
	return phonenumbers.IsValidNumber(number)
}

// WhatsAppJID converts a number to the gateway's chat identifier
// (digits without the leading plus, suffixed with the WhatsApp server).
func WhatsAppJID(input string) string {
	e164 := NormalizeE164(input)
	return strings.TrimPrefix(e164, "+") + "@s.whatsapp.net"
}
