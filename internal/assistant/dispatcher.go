package assistant

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"estate-assistant-backend/internal/chat"
	"estate-assistant-backend/internal/marketplace"
)

// Outcome is what executing an action produced: the bot turns it appended
// and, for navigate actions, the route handed to the host.
type Outcome struct {
	Messages []chat.Message `json:"messages"`
	Navigate string         `json:"navigate,omitempty"`
}

type actionHandler func(ctx context.Context, a chat.Action) Outcome

// Dispatcher maps action verbs to handlers. Every handler appends at most one
// bot turn.
type Dispatcher struct {
	o        *Orchestrator
	handlers map[chat.Verb]actionHandler
}

func newDispatcher(o *Orchestrator) *Dispatcher {
	d := &Dispatcher{o: o}
	d.handlers = map[chat.Verb]actionHandler{
		chat.VerbNavigate:           d.navigate,
		chat.VerbMarkAllRead:        d.markAllRead,
		chat.VerbCreateReview:       d.createReview,
		chat.VerbContactSupport:     d.contactSupport,
		chat.VerbContactAgent:       d.contactSupport,
		chat.VerbCreateTicket:       d.contactSupport,
		chat.VerbShowPaymentInfo:    d.static(paymentInfo, navigate("Go to Payments", "/payments")),
		chat.VerbShowBookingHelp:    d.static(bookingHowTo, navigate("Check My Bookings", "/bookings")),
		chat.VerbShowPaymentDetails: d.paymentDetails,
		chat.VerbScheduleViewing:    d.startFlow(chat.FlowViewing),
		chat.VerbROICalculator:      d.startFlow(chat.FlowROI),
		chat.VerbMortgageCalculator: d.startFlow(chat.FlowMortgage),
		chat.VerbInvestmentAnalysis: d.startFlow(chat.FlowInvestment),
		chat.VerbPropertySearch:     d.startFlow(chat.FlowPropertySearch),
		chat.VerbMarketAnalysis:     d.marketAnalysis,
		chat.VerbAreaInsights:       d.areaInsights,
	}
	return d
}

// Execute runs a. Unknown verbs and handler panics become a single bot turn.
func (d *Dispatcher) Execute(ctx context.Context, a chat.Action) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			d.o.log.WithField("action", a.Verb).Errorf("assistant: action panicked: %v", r)
			out = d.reply(chat.BotText(errorText))
		}
	}()

	h, ok := d.handlers[a.Verb]
	if !ok {
		d.o.log.WithField("action", a.Verb).Warn("assistant: unsupported action")
		return d.reply(chat.BotText(unsupportedText))
	}
	return h(ctx, a)
}

func (d *Dispatcher) reply(m chat.Message) Outcome {
	return Outcome{Messages: []chat.Message{d.o.store.Append(m)}}
}

func (d *Dispatcher) static(text string, actions ...chat.Action) actionHandler {
	return func(context.Context, chat.Action) Outcome {
		return d.reply(chat.BotActions(text, actions...))
	}
}

func (d *Dispatcher) navigate(ctx context.Context, a chat.Action) Outcome {
	route := a.String("route")
	if route == "" {
		d.o.log.Warn("assistant: navigate action without a route")
		return d.reply(chat.BotText(unsupportedText))
	}
	if nav := d.o.deps.Navigator; nav != nil {
		if err := nav.Navigate(ctx, route); err != nil {
			d.o.log.WithError(err).WithField("route", route).Warn("assistant: navigator rejected route")
		}
	}
	d.o.publish(Event{Kind: EventNavigate, Route: route})
	return Outcome{Navigate: route}
}

// markAllRead acts for the current user only. A userId in the action data
// must name that same user.
func (d *Dispatcher) markAllRead(ctx context.Context, a chat.Action) Outcome {
	user, err := d.o.deps.Identity.CurrentUser(ctx)
	if err != nil {
		d.o.log.WithError(err).Error("assistant: identity lookup failed")
		return d.reply(chat.BotText(markAllReadError))
	}
	if user == nil {
		return d.reply(loginRequired(notificationsLogin))
	}
	if requested := a.String("userId"); requested != "" && requested != user.ID {
		d.o.log.WithFields(logrus.Fields{"user": user.ID, "requested": requested}).Warn("assistant: mark_all_read for another user refused")
		return d.reply(loginRequired(notificationsLogin))
	}
	if err := d.o.deps.Notifications.MarkAllNotificationsRead(ctx, user.ID); err != nil {
		d.o.log.WithError(err).WithField("user", user.ID).Error("assistant: failed to mark notifications read")
		return d.reply(chat.BotText(markAllReadError))
	}
	return d.reply(chat.BotText(markedAllRead))
}

var reviewTargets = []struct{ key, kind string }{
	{"propertyId", "property"},
	{"agentId", "agent"},
	{"agencyId", "agency"},
}

func (d *Dispatcher) createReview(_ context.Context, a chat.Action) Outcome {
	rating, ok := a.Int("rating")
	if !ok || rating < 1 || rating > 5 {
		return d.reply(chat.BotText(reviewNeedsTarget))
	}
	pending := chat.PendingReview{Rating: rating}
	for _, t := range reviewTargets {
		if id := a.String(t.key); id != "" {
			pending.TargetType, pending.TargetID = t.kind, id
			break
		}
	}
	if pending.TargetID == "" {
		return d.reply(chat.BotText(reviewNeedsTarget))
	}
	d.o.store.SetPending(pending)
	return d.reply(chat.BotText(fmt.Sprintf("Great! You've selected %d stars. Please add a comment for your review:", rating)))
}

func (d *Dispatcher) contactSupport(ctx context.Context, a chat.Action) Outcome {
	user, err := d.o.deps.Identity.CurrentUser(ctx)
	if err != nil {
		d.o.log.WithError(err).Warn("assistant: identity lookup failed, contacting support anonymously")
	}
	msg := contactMessage(user, a.String("type"))
	if err := d.o.deps.Contacts.SendContact(ctx, msg); err != nil {
		d.o.log.WithError(err).WithField("subject", msg.Subject).Error("assistant: failed to create support ticket")
		return d.reply(chat.BotText(supportFailed))
	}
	return d.reply(chat.BotText(supportCreated))
}

func contactMessage(user *marketplace.User, kind string) marketplace.ContactMessage {
	msg := marketplace.ContactMessage{
		AgentID:    "support",
		SenderName: "Anonymous",
		Subject:    "Chatbot Support Request - General",
		Message:    "Support request: general - Initiated from chatbot",
	}
	if user != nil {
		if name := user.FullName(); name != "" {
			msg.SenderName = name
		}
		msg.SenderEmail = user.Email
	}
	if kind != "" {
		msg.Subject = "Chatbot Support Request - " + kind
		msg.Message = "Support request: " + kind + " - Initiated from chatbot"
	}
	return msg
}

func (d *Dispatcher) paymentDetails(ctx context.Context, _ chat.Action) Outcome {
	user, err := d.o.deps.Identity.CurrentUser(ctx)
	if err != nil || user == nil {
		return d.reply(loginRequired(paymentsLogin))
	}
	pending, err := d.o.pendingInvoices(ctx)
	if err != nil {
		d.o.log.WithError(err).WithField("user", user.ID).Error("assistant: failed to load invoices")
		return d.reply(chat.BotText(paymentsError))
	}
	if len(pending) == 0 {
		return d.reply(chat.BotActions(paymentsClear, navigate("View Payment History", "/payments")))
	}

	var b strings.Builder
	b.WriteString("Here are your pending invoices:\n")
	for _, inv := range pending {
		b.WriteString("\n")
		b.WriteString(invoiceLine(inv))
		if inv.DueDate != "" {
			b.WriteString(" (due " + inv.DueDate + ")")
		}
	}
	return d.reply(chat.BotActions(b.String(), navigate("Pay Now", "/payments")))
}

func (d *Dispatcher) startFlow(name chat.FlowName) actionHandler {
	return func(context.Context, chat.Action) Outcome {
		return d.reply(d.o.startFlow(name))
	}
}

func areaOf(a chat.Action, fallback string) string {
	if area := strings.TrimSpace(a.String("area")); area != "" {
		return area
	}
	return fallback
}

func (d *Dispatcher) marketAnalysis(_ context.Context, a chat.Action) Outcome {
	text := fmt.Sprintf(marketAnalysisTemplate, areaOf(a, "General Market"))
	return d.reply(chat.BotActions(text,
		chat.Action{Label: "📍 Area Insights", Verb: chat.VerbAreaInsights, Data: a.Data},
		chat.Action{Label: "💰 Calculate ROI", Verb: chat.VerbROICalculator},
	))
}

func (d *Dispatcher) areaInsights(_ context.Context, a chat.Action) Outcome {
	text := fmt.Sprintf(areaInsightsTemplate, areaOf(a, "Your Area"))
	return d.reply(chat.BotActions(text,
		chat.Action{Label: "🔍 Search Properties Here", Verb: chat.VerbPropertySearch},
		chat.Action{Label: "📊 Market Analysis", Verb: chat.VerbMarketAnalysis, Data: a.Data},
	))
}
