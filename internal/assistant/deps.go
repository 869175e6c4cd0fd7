package assistant

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"estate-assistant-backend/internal/chat"
	"estate-assistant-backend/internal/marketplace"
	"estate-assistant-backend/internal/provider"
)

type Notifications interface {
	ListNotifications(ctx context.Context, userID string) ([]marketplace.Notification, error)
	MarkAllNotificationsRead(ctx context.Context, userID string) error
}

type Invoices interface {
	ListInvoices(ctx context.Context) ([]marketplace.Invoice, error)
}

type Contacts interface {
	SendContact(ctx context.Context, msg marketplace.ContactMessage) error
}

type Reviews interface {
	CreateReview(ctx context.Context, in marketplace.ReviewInput) error
}

// Identity resolves the caller. A nil user with a nil error means anonymous.
type Identity interface {
	CurrentUser(ctx context.Context) (*marketplace.User, error)
}

// Generator produces a raw completion or fails with provider.ErrExhausted.
type Generator interface {
	Generate(ctx context.Context, p provider.Prompt) (provider.Result, error)
}

// Navigator hands a route to the host application.
type Navigator interface {
	Navigate(ctx context.Context, route string) error
}

// Deps wires an Orchestrator. Generator and Navigator are optional: without a
// generator every general question gets the rule-based answer, and without a
// navigator routes are only published as events.
type Deps struct {
	Generator     Generator
	Prompts       provider.PromptSpec
	Notifications Notifications
	Invoices      Invoices
	Contacts      Contacts
	Reviews       Reviews
	Identity      Identity
	Navigator     Navigator
	Log           *logrus.Logger
	StoreOptions  []chat.StoreOption
}

func (d Deps) validate() error {
	switch {
	case d.Notifications == nil:
		return errors.New("assistant: notifications collaborator is required")
	case d.Invoices == nil:
		return errors.New("assistant: invoices collaborator is required")
	case d.Contacts == nil:
		return errors.New("assistant: contacts collaborator is required")
	case d.Reviews == nil:
		return errors.New("assistant: reviews collaborator is required")
	case d.Identity == nil:
		return errors.New("assistant: identity collaborator is required")
	}
	return nil
}

// Marketplace adapts one client that serves every collaborator contract.
type Marketplace interface {
	Notifications
	Invoices
	Contacts
	Reviews
	Identity
}

// WithMarketplace fills every collaborator from m.
func (d Deps) WithMarketplace(m Marketplace) Deps {
	d.Notifications = m
	d.Invoices = m
	d.Contacts = m
	d.Reviews = m
	d.Identity = m
	return d
}
