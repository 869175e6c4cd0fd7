package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/sirupsen/logrus"

	"estate-assistant-backend/internal/chat"
	"estate-assistant-backend/internal/enhancer"
	"estate-assistant-backend/internal/intent"
	"estate-assistant-backend/internal/marketplace"
	"estate-assistant-backend/internal/provider"
)

const maxListed = 3

func navigate(label, route string) chat.Action {
	return chat.Action{Label: label, Verb: chat.VerbNavigate, Data: map[string]any{"route": route}}
}

func loginRequired(text string) chat.Message {
	return chat.BotActions(text, navigate("Login", "/auth/login"))
}

func (o *Orchestrator) handleNotifications(ctx context.Context) chat.Message {
	user, err := o.deps.Identity.CurrentUser(ctx)
	if err != nil {
		o.log.WithError(err).Error("assistant: identity lookup failed")
		return chat.BotText(notificationsError)
	}
	if user == nil {
		return loginRequired(notificationsLogin)
	}

	list, err := o.deps.Notifications.ListNotifications(ctx, user.ID)
	if err != nil {
		o.log.WithError(err).WithField("user", user.ID).Error("assistant: failed to load notifications")
		return chat.BotText(notificationsError)
	}
	if len(list) == 0 {
		return chat.BotText(notificationsEmpty)
	}

	unread := 0
	for _, n := range list {
		if !n.IsRead {
			unread++
		}
	}
	lines := make([]string, 0, maxListed)
	for _, n := range list[:min(maxListed, len(list))] {
		lines = append(lines, fmt.Sprintf("• %s: %s", n.Title, n.Message))
	}
	content := fmt.Sprintf("You have %d unread notification(s) out of %d total:\n\n%s", unread, len(list), strings.Join(lines, "\n"))
	return chat.BotActions(content,
		navigate("View All Notifications", "/notifications"),
		chat.Action{Label: "Mark All as Read", Verb: chat.VerbMarkAllRead, Data: map[string]any{"userId": user.ID}},
	)
}

func (o *Orchestrator) handlePayments(ctx context.Context) chat.Message {
	user, err := o.deps.Identity.CurrentUser(ctx)
	if err != nil {
		o.log.WithError(err).Error("assistant: identity lookup failed")
		return chat.BotText(paymentsError)
	}
	if user == nil {
		return loginRequired(paymentsLogin)
	}

	pending, err := o.pendingInvoices(ctx)
	if err != nil {
		o.log.WithError(err).WithField("user", user.ID).Error("assistant: failed to load invoices")
		return chat.BotText(paymentsError)
	}
	if len(pending) == 0 {
		return chat.BotActions(paymentsClear, navigate("View Payment History", "/payments"))
	}

	currency, total := invoiceTotal(pending)
	lines := make([]string, 0, maxListed)
	for _, inv := range pending[:min(maxListed, len(pending))] {
		lines = append(lines, invoiceLine(inv))
	}
	content := fmt.Sprintf("You have %d pending payment(s) totaling %s %.2f:\n\n%s", len(pending), currency, total, strings.Join(lines, "\n"))

	numbers := make([]string, len(pending))
	for i, inv := range pending {
		numbers[i] = inv.InvoiceNumber
	}
	return chat.BotActions(content,
		navigate("Pay Now", "/payments"),
		chat.Action{Label: "View Details", Verb: chat.VerbShowPaymentDetails, Data: map[string]any{"invoices": numbers}},
	)
}

func (o *Orchestrator) pendingInvoices(ctx context.Context) ([]marketplace.Invoice, error) {
	all, err := o.deps.Invoices.ListInvoices(ctx)
	if err != nil {
		return nil, err
	}
	var pending []marketplace.Invoice
	for _, inv := range all {
		if inv.Status == marketplace.InvoicePending {
			pending = append(pending, inv)
		}
	}
	return pending, nil
}

// invoiceTotal sums amounts in the first invoice's currency (USD when unset).
// Invoices in another currency are added at face value.
func invoiceTotal(invoices []marketplace.Invoice) (string, float64) {
	currency := usdCode
	if invoices[0].Currency != "" {
		currency = strings.ToUpper(invoices[0].Currency)
	}
	total := money.New(0, currency)
	for _, inv := range invoices {
		next, err := total.Add(money.NewFromFloat(inv.Amount, currency))
		if err != nil {
			continue
		}
		total = next
	}
	return currency, total.AsMajorUnits()
}

func invoiceLine(inv marketplace.Invoice) string {
	return fmt.Sprintf("• Invoice #%s: %s %s", inv.InvoiceNumber, inv.Currency, strconv.FormatFloat(inv.Amount, 'f', -1, 64))
}

func (o *Orchestrator) handleReview(ctx context.Context, in intent.Intent) chat.Message {
	user, err := o.deps.Identity.CurrentUser(ctx)
	if err != nil {
		o.log.WithError(err).Error("assistant: identity lookup failed")
		return chat.BotText(reviewUnavailable)
	}
	if user == nil {
		return loginRequired(reviewLogin)
	}

	if in.PropertyID != "" {
		content := fmt.Sprintf("I'll help you leave a review for property %s. What would you like to rate it?", in.PropertyID)
		var actions []chat.Action
		for _, rating := range []int{5, 4, 3} {
			actions = append(actions, chat.Action{
				Label: fmt.Sprintf("%s (%d stars)", strings.Repeat("⭐", rating), rating),
				Verb:  chat.VerbCreateReview,
				Data:  map[string]any{"propertyId": in.PropertyID, "rating": rating},
			})
		}
		return chat.BotActions(content, actions...)
	}
	if in.AgentID != "" {
		content := fmt.Sprintf("I'll help you leave a review for agent %s. What would you like to rate them?", in.AgentID)
		var actions []chat.Action
		for _, rating := range []int{5, 4, 3} {
			actions = append(actions, chat.Action{
				Label: fmt.Sprintf("%s (%d stars)", strings.Repeat("⭐", rating), rating),
				Verb:  chat.VerbCreateReview,
				Data:  map[string]any{"agentId": in.AgentID, "rating": rating},
			})
		}
		return chat.BotActions(content, actions...)
	}
	return chat.BotQuickReplies(reviewChooseKind, "Review a property", "Review an agent", "Review an agency")
}

func (o *Orchestrator) handleHelp(topic intent.Topic) chat.Message {
	switch topic {
	case intent.TopicBooking:
		return chat.BotActions(helpTexts["booking"],
			chat.Action{Label: "Contact Property Owner", Verb: chat.VerbContactAgent, Data: map[string]any{"type": "booking"}},
			navigate("Check My Booking Status", "/bookings"),
		)
	case intent.TopicPayment:
		return chat.BotActions(helpTexts["payment"],
			chat.Action{Label: "Platform Payment Methods", Verb: chat.VerbShowPaymentInfo},
			chat.Action{Label: "Contact Platform Support", Verb: chat.VerbContactSupport, Data: map[string]any{"type": "payment"}},
		)
	case intent.TopicProperty:
		return chat.BotActions(helpTexts["property"],
			navigate("Browse Platform Properties", "/properties"),
			chat.Action{Label: "Contact Platform Support", Verb: chat.VerbContactAgent, Data: map[string]any{"type": "property"}},
		)
	default:
		return chat.BotActions(helpTexts["general"],
			chat.Action{Label: "Create Platform Support Ticket", Verb: chat.VerbCreateTicket},
			navigate("Platform FAQ", "/faq"),
		)
	}
}

func (o *Orchestrator) handleBookingHelp() chat.Message {
	return chat.BotActions(bookingHelpText,
		navigate("Check My Bookings", "/bookings"),
		chat.Action{Label: "How to Book", Verb: chat.VerbShowBookingHelp},
		chat.Action{Label: "Booking Issues", Verb: chat.VerbContactSupport, Data: map[string]any{"type": "booking"}},
	)
}

func (o *Orchestrator) handlePaymentMethods() chat.Message {
	return chat.BotActions(paymentMethodsText, navigate("Make a Payment", "/payments"))
}

// handleGreeting rotates through the canned greetings.
func (o *Orchestrator) handleGreeting() chat.Message {
	return chat.BotQuickReplies(greetings[o.nextGreeting()], greetingReplies...)
}

func (o *Orchestrator) handleGeneral(ctx context.Context, text string, sess chat.Session) chat.Message {
	fallback := chat.BotQuickReplies(enhancer.Fallback(text), enhancer.FallbackQuickReplies()...)
	if o.deps.Generator == nil {
		return fallback
	}

	prompt, err := o.buildPrompt(ctx, text, sess)
	if err != nil {
		o.log.WithError(err).Error("assistant: failed to build prompt")
		return fallback
	}
	res, err := o.deps.Generator.Generate(ctx, prompt)
	if err != nil {
		entry := o.log.WithError(err)
		if errors.Is(err, provider.ErrExhausted) {
			entry.Info("assistant: providers exhausted, using rule-based answer")
		} else {
			entry.Warn("assistant: generation failed, using rule-based answer")
		}
		return fallback
	}
	o.log.WithFields(logrus.Fields{"provider": res.Provider, "cached": res.Cached}).Debug("assistant: completion received")

	content := enhancer.Enhance(res.Text, text)
	replies := enhancer.QuickReplies(text)
	if actions := enhancer.PlatformActions(text); len(actions) > 0 {
		m := chat.BotActions(content, actions...)
		m.QuickReplies = replies
		return m
	}
	return chat.BotQuickReplies(content, replies...)
}

type promptTurn struct {
	Sender  chat.Sender `json:"sender"`
	Content string      `json:"content"`
}

func (o *Orchestrator) buildPrompt(ctx context.Context, text string, sess chat.Session) (provider.Prompt, error) {
	userContext := "Anonymous user"
	user, err := o.deps.Identity.CurrentUser(ctx)
	if err != nil {
		o.log.WithError(err).Warn("assistant: identity lookup failed, prompting as anonymous")
	}
	if user != nil {
		userContext = fmt.Sprintf("User: %s (%s)", user.FullName(), user.Email)
	}

	recent := "New conversation"
	if n := o.deps.Prompts.RecentTurns; n > 0 && len(sess.Messages) > 1 {
		msgs := sess.Messages[max(0, len(sess.Messages)-n):]
		turns := make([]promptTurn, len(msgs))
		for i, m := range msgs {
			turns[i] = promptTurn{Sender: m.Sender, Content: m.Content}
		}
		b, err := json.Marshal(turns)
		if err != nil {
			return provider.Prompt{}, err
		}
		recent = string(b)
	}

	return o.deps.Prompts.Render(provider.PromptInput{
		UserContext: userContext,
		Recent:      recent,
		Question:    text,
	})
}
