// Package enhancer turns raw model output into chat-ready text and supplies
// the rule-based answers used when no provider responds.
package enhancer

import (
	"regexp"
	"strings"
)

var (
	leadingLabel = regexp.MustCompile(`(?i)^\s*(AI:|Assistant:|Bot:)`)
	endMarkers   = regexp.MustCompile(`(?i)\[END\]|\[DONE\]`)
)

const (
	propertyHint = "\n\n💡 *I can help you search for properties or book viewings if you'd like!*"
	bookingHint  = "\n\n📅 *Would you like me to check your current bookings or help you make a new reservation?*"
	paymentHint  = "\n\n💳 *I can help you check pending payments or explain our payment methods (Stripe/Konnect).*"
)

// Enhance strips model artifacts from raw and appends at most one platform
// hint chosen from the user's utterance: property, then booking, then payment.
func Enhance(raw, utterance string) string {
	out := strings.TrimSpace(raw)
	out = leadingLabel.ReplaceAllString(out, "")
	out = endMarkers.ReplaceAllString(out, "")
	out = strings.TrimSpace(out)
	return out + Hint(utterance)
}

// Hint returns the single hint line for utterance, or "".
func Hint(utterance string) string {
	u := strings.ToLower(utterance)
	switch {
	case containsAny(u, "property", "house"):
		return propertyHint
	case containsAny(u, "book", "reservation"):
		return bookingHint
	case containsAny(u, "pay", "payment"):
		return paymentHint
	default:
		return ""
	}
}

func containsAny(s string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
