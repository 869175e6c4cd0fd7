package enhancer

import (
	"strings"

	"estate-assistant-backend/internal/chat"
)

const maxPlatformActions = 2

// PlatformActions returns at most two actions for platform-related
// utterances: account, bookings, payments, support, in that order.
func PlatformActions(utterance string) []chat.Action {
	u := strings.ToLower(utterance)
	var out []chat.Action
	if containsAny(u, "my account", "login", "profile") {
		out = append(out,
			navigate("👤 My Profile", "/profile"),
			navigate("🔐 Account Settings", "/account"),
		)
	}
	if containsAny(u, "my booking", "reservation", "viewing") {
		out = append(out,
			navigate("📅 My Bookings", "/bookings"),
			chat.Action{Label: "🗓️ Schedule Viewing", Verb: chat.VerbScheduleViewing},
		)
	}
	if containsAny(u, "my payment", "invoice", "billing") {
		out = append(out,
			navigate("💳 My Payments", "/payments"),
			navigate("📊 Payment History", "/payments/history"),
		)
	}
	if containsAny(u, "platform", "technical", "support") {
		out = append(out,
			chat.Action{Label: "🎧 Contact Support", Verb: chat.VerbContactSupport, Data: map[string]any{"type": "general"}},
			navigate("❓ Platform Help", "/help"),
		)
	}
	if len(out) > maxPlatformActions {
		out = out[:maxPlatformActions]
	}
	return out
}

// QuickReplies suggests follow-ups for an AI answer.
func QuickReplies(utterance string) []string {
	u := strings.ToLower(utterance)
	switch {
	case containsAny(u, "price", "market", "cost"):
		return []string{"Tell me about specific areas", "What affects property prices?", "Investment tips", "Market trends"}
	case containsAny(u, "property", "house", "apartment"):
		return []string{"Property buying tips", "What to look for", "Financing options", "Legal considerations"}
	case containsAny(u, "invest", "roi", "rental"):
		return []string{"ROI calculation tips", "Best investment strategies", "Market analysis", "Risk factors"}
	case containsAny(u, "area", "neighborhood", "location"):
		return []string{"School districts", "Safety ratings", "Transportation", "Future development"}
	default:
		return []string{"Tell me more", "That's helpful", "What else should I know?", "Any other tips?"}
	}
}

// FallbackQuickReplies go with the rule-based answer.
func FallbackQuickReplies() []string {
	return []string{"Tell me more", "That's helpful", "What else can you help with?", "Check my platform account"}
}

func navigate(label, route string) chat.Action {
	return chat.Action{Label: label, Verb: chat.VerbNavigate, Data: map[string]any{"route": route}}
}
