package chat

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

type MessageType string

const (
	TypeText       MessageType = "text"
	TypeAction     MessageType = "action"
	TypeQuickReply MessageType = "quick-reply"
)

// Verb names what an Action does when executed.
type Verb string

const (
	VerbNavigate           Verb = "navigate"
	VerbMarkAllRead        Verb = "mark_all_read"
	VerbCreateReview       Verb = "create_review"
	VerbContactSupport     Verb = "contact_support"
	VerbContactAgent       Verb = "contact_agent"
	VerbCreateTicket       Verb = "create_ticket"
	VerbShowPaymentInfo    Verb = "show_payment_info"
	VerbShowPaymentDetails Verb = "show_payment_details"
	VerbShowBookingHelp    Verb = "show_booking_help"
	VerbScheduleViewing    Verb = "schedule_viewing"
	VerbMarketAnalysis     Verb = "show_market_analysis"
	VerbROICalculator      Verb = "show_roi_calculator"
	VerbPropertySearch     Verb = "property_search"
	VerbAreaInsights       Verb = "get_area_insights"
	VerbInvestmentAnalysis Verb = "investment_analysis"
	VerbMortgageCalculator Verb = "mortgage_calculator"
)

// Action is a user-clickable affordance attached to a bot turn.
type Action struct {
	Label string         `json:"label"`
	Verb  Verb           `json:"action"`
	Data  map[string]any `json:"data,omitempty"`
}

// String returns Data[key] as a string, or "" when absent.
func (a Action) String(key string) string {
	switch v := a.Data[key].(type) {
	case string:
		return v
	case nil:
		return ""
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case json.Number:
		return v.String()
	default:
		return ""
	}
}

// Int returns Data[key] as an int. Decoded JSON numbers arrive as float64.
func (a Action) Int(key string) (int, bool) {
	switch v := a.Data[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	case json.Number:
		n, err := v.Int64()
		return int(n), err == nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		return n, err == nil
	default:
		return 0, false
	}
}

// Message is one turn in a conversation. ID and Timestamp are assigned by the
// Store when the message is appended.
type Message struct {
	ID           string      `json:"id"`
	Content      string      `json:"content"`
	Sender       Sender      `json:"sender"`
	Timestamp    time.Time   `json:"timestamp"`
	Type         MessageType `json:"type"`
	Actions      []Action    `json:"actions,omitempty"`
	QuickReplies []string    `json:"quickReplies,omitempty"`
}

func UserMessage(content string) Message {
	return Message{Content: content, Sender: SenderUser, Type: TypeText}
}

func BotText(content string) Message {
	return Message{Content: content, Sender: SenderBot, Type: TypeText}
}

// BotActions builds an action turn. With no actions it degrades to text.
func BotActions(content string, actions ...Action) Message {
	m := BotText(content)
	if len(actions) > 0 {
		m.Type = TypeAction
		m.Actions = actions
	}
	return m
}

// BotQuickReplies builds a quick-reply turn. With no replies it degrades to text.
func BotQuickReplies(content string, replies ...string) Message {
	m := BotText(content)
	if len(replies) > 0 {
		m.Type = TypeQuickReply
		m.QuickReplies = replies
	}
	return m
}

func (m Message) clone() Message {
	out := m
	if m.Actions != nil {
		out.Actions = make([]Action, len(m.Actions))
		for i, a := range m.Actions {
			out.Actions[i] = Action{Label: a.Label, Verb: a.Verb, Data: cloneValues(a.Data)}
		}
	}
	if m.QuickReplies != nil {
		out.QuickReplies = append([]string(nil), m.QuickReplies...)
	}
	return out
}

func cloneValues(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
