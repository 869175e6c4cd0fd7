package intent

import (
	"regexp"
	"strings"
)

type Kind string

const (
	ShowNotifications Kind = "show_notifications"
	PaymentMethods    Kind = "payment_methods"
	CheckPayments     Kind = "check_payments"
	LeaveReview       Kind = "leave_review"
	GetHelp           Kind = "get_help"
	BookingHelp       Kind = "booking_help"
	Greeting          Kind = "greeting"
	AIGeneral         Kind = "ai_general"
)

type Topic string

const (
	TopicBooking  Topic = "booking"
	TopicPayment  Topic = "payment"
	TopicProperty Topic = "property"
	TopicAccount  Topic = "account"
	TopicGeneral  Topic = "general"
)

// Intent is the classified purpose of one utterance. Only the fields relevant
// to Kind are populated.
type Intent struct {
	Kind       Kind
	PropertyID string
	AgentID    string
	Topic      Topic
}

type group struct {
	kind    Kind
	phrases []string
}

// Order is priority: the first matching group wins. payment methods sits ahead
// of payments because its phrases are the narrower of the two.
var groups = []group{
	{ShowNotifications, []string{
		"show notifications", "check notifications", "my notifications",
		"unread notifications", "notification", "notifications",
	}},
	{PaymentMethods, []string{
		"payment methods", "how to pay on platform", "stripe", "konnect",
		"payment options here", "how do i pay",
	}},
	{CheckPayments, []string{
		"check payments", "pending payments", "payment status", "my payments",
		"pay", "payment", "payments", "invoice", "bill",
	}},
	{LeaveReview, []string{
		"leave review", "write review", "review", "rate property", "rate agent", "feedback",
	}},
	{GetHelp, []string{
		"help with platform", "platform support", "contact support", "technical issue",
		"login problem", "account issue", "bug report", "platform trouble",
	}},
	{BookingHelp, []string{
		"my bookings", "check bookings", "booking status", "cancel booking",
		"reschedule booking", "book property", "schedule viewing",
	}},
	{Greeting, []string{
		"hello", "hi", "hey", "good morning", "good afternoon", "good evening",
	}},
}

var (
	propertyRe = regexp.MustCompile(`property\s+(\w+)`)
	agentRe    = regexp.MustCompile(`agent\s+(\w+)`)
)

// Classify maps an utterance to an Intent. It never fails: anything that
// matches no group is AIGeneral.
func Classify(utterance string) Intent {
	m := strings.ToLower(strings.TrimSpace(utterance))
	if m == "" {
		return Intent{Kind: AIGeneral}
	}
	for _, g := range groups {
		if !matchesAny(m, g.phrases) {
			continue
		}
		in := Intent{Kind: g.kind}
		switch g.kind {
		case LeaveReview:
			in.PropertyID = capture(propertyRe, m)
			in.AgentID = capture(agentRe, m)
		case GetHelp:
			in.Topic = helpTopic(m)
		}
		return in
	}
	return Intent{Kind: AIGeneral}
}

func matchesAny(s string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(s, p) || allWords(s, p) {
			return true
		}
	}
	return false
}

// allWords reports whether every word of phrase occurs somewhere in s, in any
// order.
func allWords(s, phrase string) bool {
	words := strings.Fields(phrase)
	if len(words) == 0 {
		return false
	}
	for _, w := range words {
		if !strings.Contains(s, w) {
			return false
		}
	}
	return true
}

func capture(re *regexp.Regexp, s string) string {
	if sm := re.FindStringSubmatch(s); len(sm) == 2 {
		return sm[1]
	}
	return ""
}

func helpTopic(s string) Topic {
	switch {
	case strings.Contains(s, "booking") || strings.Contains(s, "reservation"):
		return TopicBooking
	case strings.Contains(s, "payment") || strings.Contains(s, "pay"):
		return TopicPayment
	case strings.Contains(s, "property") || strings.Contains(s, "listing"):
		return TopicProperty
	case strings.Contains(s, "account") || strings.Contains(s, "profile"):
		return TopicAccount
	default:
		return TopicGeneral
	}
}
