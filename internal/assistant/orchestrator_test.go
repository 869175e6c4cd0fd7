package assistant_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"estate-assistant-backend/internal/assistant"
	"estate-assistant-backend/internal/chat"
	"estate-assistant-backend/internal/enhancer"
	"estate-assistant-backend/internal/marketplace"
	"estate-assistant-backend/internal/provider"
)

type fakeMarket struct {
	mu sync.Mutex

	user          *marketplace.User
	notifications []marketplace.Notification
	invoices      []marketplace.Invoice
	err           error
	identityErr   error

	markedRead []string
	contacts   []marketplace.ContactMessage
	reviews    []marketplace.ReviewInput
}

func (f *fakeMarket) ListNotifications(_ context.Context, userID string) ([]marketplace.Notification, error) {
	return f.notifications, f.err
}

func (f *fakeMarket) MarkAllNotificationsRead(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.markedRead = append(f.markedRead, userID)
	return f.err
}

func (f *fakeMarket) ListInvoices(context.Context) ([]marketplace.Invoice, error) {
	return f.invoices, f.err
}

func (f *fakeMarket) SendContact(_ context.Context, msg marketplace.ContactMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.contacts = append(f.contacts, msg)
	return f.err
}

func (f *fakeMarket) CreateReview(_ context.Context, in marketplace.ReviewInput) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reviews = append(f.reviews, in)
	return f.err
}

func (f *fakeMarket) CurrentUser(context.Context) (*marketplace.User, error) {
	if f.identityErr != nil {
		return nil, f.identityErr
	}
	return f.user, nil
}

type fakeGenerator struct {
	mu      sync.Mutex
	text    string
	err     error
	delay   time.Duration
	prompts []provider.Prompt
}

func (g *fakeGenerator) Generate(ctx context.Context, p provider.Prompt) (provider.Result, error) {
	g.mu.Lock()
	g.prompts = append(g.prompts, p)
	g.mu.Unlock()
	if g.delay > 0 {
		time.Sleep(g.delay)
	}
	if g.err != nil {
		return provider.Result{}, g.err
	}
	return provider.Result{Text: g.text, Provider: "fake"}, nil
}

type recordingNavigator struct {
	routes []string
}

func (n *recordingNavigator) Navigate(_ context.Context, route string) error {
	n.routes = append(n.routes, route)
	return nil
}

var testUser = &marketplace.User{ID: "u1", FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com"}

func setupOrchestratorTest(t *testing.T, market *fakeMarket, gen assistant.Generator) *assistant.Orchestrator {
	t.Helper()
	log, _ := test.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)
	n := 0
	deps := assistant.Deps{
		Generator: gen,
		Log:       log,
		StoreOptions: []chat.StoreOption{
			chat.WithClock(func() time.Time { return time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC) }),
			chat.WithIDs(func() string { n++; return fmt.Sprintf("id-%d", n) }),
		},
	}.WithMarketplace(market)
	o, err := assistant.New(deps)
	require.NoError(t, err)
	t.Cleanup(o.Close)
	return o
}

func lastBot(t *testing.T, o *assistant.Orchestrator) chat.Message {
	t.Helper()
	m, ok := o.Session().Last()
	require.True(t, ok)
	require.Equal(t, chat.SenderBot, m.Sender)
	return m
}

func TestNewRequiresCollaborators(t *testing.T) {
	t.Parallel()
	_, err := assistant.New(assistant.Deps{})
	require.Error(t, err)
}

func TestNewStartsWithWelcome(t *testing.T) {
	t.Parallel()
	o := setupOrchestratorTest(t, &fakeMarket{}, nil)

	sess := o.Session()
	require.Len(t, sess.Messages, 1)
	assert.True(t, sess.IsActive)
	assert.Contains(t, sess.Messages[0].Content, "Welcome to your AI Real Estate Assistant")
	assert.Equal(t, chat.TypeQuickReply, sess.Messages[0].Type)
	assert.Len(t, sess.Messages[0].QuickReplies, 6)
	assert.Equal(t, assistant.PhaseIdle, o.Phase())
}

func TestSendIgnoresBlankInput(t *testing.T) {
	t.Parallel()
	o := setupOrchestratorTest(t, &fakeMarket{}, nil)

	assert.Nil(t, o.Send(context.Background(), "   "))
	assert.Len(t, o.Session().Messages, 1)
}

func TestGreetingGetsQuickReplies(t *testing.T) {
	t.Parallel()
	o := setupOrchestratorTest(t, &fakeMarket{}, nil)

	out := o.Send(context.Background(), "hello")
	require.Len(t, out, 1)
	assert.Equal(t, chat.TypeQuickReply, out[0].Type)
	assert.Contains(t, out[0].QuickReplies, "Show my notifications")

	sess := o.Session()
	require.Len(t, sess.Messages, 3)
	assert.Equal(t, chat.SenderUser, sess.Messages[1].Sender)
	assert.Equal(t, "hello", sess.Messages[1].Content)
	assert.Equal(t, out[0], lastBot(t, o))
}

func TestGreetingsRotate(t *testing.T) {
	t.Parallel()
	o := setupOrchestratorTest(t, &fakeMarket{}, nil)

	first := o.Send(context.Background(), "hello")[0].Content
	second := o.Send(context.Background(), "hello")[0].Content
	assert.NotEqual(t, first, second)
}

func TestNotifications(t *testing.T) {
	t.Parallel()
	market := &fakeMarket{
		user: testUser,
		notifications: []marketplace.Notification{
			{Title: "Booking", Message: "Confirmed", IsRead: false},
			{Title: "Payment", Message: "Received", IsRead: true},
			{Title: "Review", Message: "New review", IsRead: false},
			{Title: "Hidden", Message: "Fourth", IsRead: true},
		},
	}
	o := setupOrchestratorTest(t, market, nil)

	out := o.Send(context.Background(), "show my notifications")
	require.Len(t, out, 1)
	m := out[0]
	assert.Equal(t, chat.TypeAction, m.Type)
	assert.Contains(t, m.Content, "You have 2 unread notification(s) out of 4 total:")
	assert.Contains(t, m.Content, "• Booking: Confirmed")
	assert.NotContains(t, m.Content, "Hidden")
	require.Len(t, m.Actions, 2)
	assert.Equal(t, chat.VerbNavigate, m.Actions[0].Verb)
	assert.Equal(t, "/notifications", m.Actions[0].String("route"))
	assert.Equal(t, chat.VerbMarkAllRead, m.Actions[1].Verb)

	// first action data lands in the context
	assert.Equal(t, "/notifications", o.Session().Context.Values["route"])

	res := o.ExecuteAction(context.Background(), m.Actions[1])
	require.Len(t, res.Messages, 1)
	assert.Equal(t, "✅ All notifications marked as read!", res.Messages[0].Content)
	assert.Equal(t, []string{"u1"}, market.markedRead)
}

func TestMarkAllReadOnlyForCurrentUser(t *testing.T) {
	t.Parallel()
	other := chat.Action{Label: "Mark All as Read", Verb: chat.VerbMarkAllRead, Data: map[string]any{"userId": "someone-else"}}

	tests := []struct {
		name   string
		market *fakeMarket
		action chat.Action
		want   string
		marked []string
	}{
		{
			name:   "anonymous naming another user",
			market: &fakeMarket{},
			action: other,
			want:   "Please log in to view your notifications.",
		},
		{
			name:   "logged in naming another user",
			market: &fakeMarket{user: testUser},
			action: other,
			want:   "Please log in to view your notifications.",
		},
		{
			name:   "logged in without user id",
			market: &fakeMarket{user: testUser},
			action: chat.Action{Verb: chat.VerbMarkAllRead},
			want:   "✅ All notifications marked as read!",
			marked: []string{"u1"},
		},
		{
			name:   "identity lookup fails",
			market: &fakeMarket{identityErr: errors.New("users api down")},
			action: other,
			want:   "Sorry, I couldn't mark your notifications as read right now.",
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			o := setupOrchestratorTest(t, tt.market, nil)
			res := o.ExecuteAction(context.Background(), tt.action)
			require.Len(t, res.Messages, 1)
			assert.Equal(t, tt.want, res.Messages[0].Content)
			assert.Equal(t, tt.marked, tt.market.markedRead)
		})
	}
}

func TestReviewIdentityFailureIsAnApology(t *testing.T) {
	t.Parallel()
	o := setupOrchestratorTest(t, &fakeMarket{identityErr: errors.New("users api down")}, nil)

	out := o.Send(context.Background(), "leave review for property 42")
	require.Len(t, out, 1)
	assert.Equal(t, "Sorry, I can't start a review right now. Please try again later.", out[0].Content)
	assert.Empty(t, out[0].Actions)
}

func TestNotificationsEmpty(t *testing.T) {
	t.Parallel()
	o := setupOrchestratorTest(t, &fakeMarket{user: testUser}, nil)

	out := o.Send(context.Background(), "my notifications")
	assert.Equal(t, "You have no notifications at the moment. 🔔", out[0].Content)
	assert.Equal(t, chat.TypeText, out[0].Type)
}

func TestLoginRequired(t *testing.T) {
	t.Parallel()
	tests := []struct {
		utterance string
		want      string
	}{
		{"show my notifications", "Please log in to view your notifications."},
		{"check pending payments", "Please log in to view your payment information."},
		{"leave review for property 42", "Please log in to leave a review."},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.utterance, func(t *testing.T) {
			t.Parallel()
			o := setupOrchestratorTest(t, &fakeMarket{}, nil)
			out := o.Send(context.Background(), tt.utterance)
			require.Len(t, out, 1)
			assert.Equal(t, tt.want, out[0].Content)
			require.Len(t, out[0].Actions, 1)
			assert.Equal(t, "Login", out[0].Actions[0].Label)
			assert.Equal(t, "/auth/login", out[0].Actions[0].String("route"))
		})
	}
}

func TestCollaboratorFailureBecomesApology(t *testing.T) {
	t.Parallel()
	o := setupOrchestratorTest(t, &fakeMarket{user: testUser, err: errors.New("boom")}, nil)

	out := o.Send(context.Background(), "show my notifications")
	assert.Equal(t, "Sorry, I couldn't fetch your notifications right now.", out[0].Content)

	out = o.Send(context.Background(), "check pending payments")
	assert.Equal(t, "Sorry, I couldn't fetch your payment information right now.", out[0].Content)
}

func TestPendingPayments(t *testing.T) {
	t.Parallel()
	market := &fakeMarket{
		user: testUser,
		invoices: []marketplace.Invoice{
			{InvoiceNumber: "INV-1", Amount: 100.5, Currency: "USD", Status: "pending"},
			{InvoiceNumber: "INV-2", Amount: 200, Currency: "USD", Status: "pending"},
			{InvoiceNumber: "INV-3", Amount: 999, Currency: "USD", Status: "paid"},
		},
	}
	o := setupOrchestratorTest(t, market, nil)

	m := o.Send(context.Background(), "check pending payments")[0]
	assert.Contains(t, m.Content, "You have 2 pending payment(s) totaling USD 300.50:")
	assert.Contains(t, m.Content, "• Invoice #INV-1: USD 100.5")
	assert.NotContains(t, m.Content, "INV-3")
	require.Len(t, m.Actions, 2)
	assert.Equal(t, "Pay Now", m.Actions[0].Label)
	assert.Equal(t, chat.VerbShowPaymentDetails, m.Actions[1].Verb)

	details := o.ExecuteAction(context.Background(), m.Actions[1])
	require.Len(t, details.Messages, 1)
	assert.Contains(t, details.Messages[0].Content, "INV-2")
}

func TestNoPendingPayments(t *testing.T) {
	t.Parallel()
	market := &fakeMarket{user: testUser, invoices: []marketplace.Invoice{{InvoiceNumber: "INV-3", Status: "paid"}}}
	o := setupOrchestratorTest(t, market, nil)

	m := o.Send(context.Background(), "my payments")[0]
	assert.Equal(t, "Great! You have no pending payments. All your invoices are up to date. 💳✅", m.Content)
	require.Len(t, m.Actions, 1)
	assert.Equal(t, "/payments", m.Actions[0].String("route"))
}

func TestPaymentMethodsBeatPayments(t *testing.T) {
	t.Parallel()
	o := setupOrchestratorTest(t, &fakeMarket{user: testUser}, nil)

	m := o.Send(context.Background(), "what payment methods do you accept")[0]
	assert.Contains(t, m.Content, "Stripe")
	assert.Contains(t, m.Content, "Konnect")
}

func TestReviewFlow(t *testing.T) {
	t.Parallel()
	market := &fakeMarket{user: testUser}
	o := setupOrchestratorTest(t, market, nil)
	ctx := context.Background()

	m := o.Send(ctx, "leave review for property 42")[0]
	require.Len(t, m.Actions, 3)
	assert.Equal(t, "⭐⭐⭐⭐⭐ (5 stars)", m.Actions[0].Label)
	assert.Equal(t, "42", m.Actions[0].String("propertyId"))

	res := o.ExecuteAction(ctx, m.Actions[0])
	require.Len(t, res.Messages, 1)
	assert.Equal(t, "Great! You've selected 5 stars. Please add a comment for your review:", res.Messages[0].Content)
	require.NotNil(t, o.Session().Context.Pending)

	out := o.Send(ctx, "Lovely place, great host")
	assert.Equal(t, "⭐ Thanks! Your 5-star review has been submitted.", out[0].Content)
	require.Len(t, market.reviews, 1)
	assert.Equal(t, marketplace.ReviewInput{Rating: 5, Comment: "Lovely place, great host", TargetType: "property", TargetID: "42"}, market.reviews[0])
	assert.Nil(t, o.Session().Context.Pending)
}

func TestReviewWithoutTarget(t *testing.T) {
	t.Parallel()
	o := setupOrchestratorTest(t, &fakeMarket{user: testUser}, nil)

	m := o.Send(context.Background(), "I want to leave a review")[0]
	assert.Equal(t, chat.TypeQuickReply, m.Type)
	assert.Equal(t, []string{"Review a property", "Review an agent", "Review an agency"}, m.QuickReplies)
}

func TestHelpTopics(t *testing.T) {
	t.Parallel()
	tests := []struct {
		utterance string
		verbs     []chat.Verb
	}{
		{"contact support about my booking", []chat.Verb{chat.VerbContactAgent, chat.VerbNavigate}},
		{"contact support about a listing", []chat.Verb{chat.VerbNavigate, chat.VerbContactAgent}},
		{"contact support", []chat.Verb{chat.VerbCreateTicket, chat.VerbNavigate}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.utterance, func(t *testing.T) {
			t.Parallel()
			o := setupOrchestratorTest(t, &fakeMarket{}, nil)
			m := o.Send(context.Background(), tt.utterance)[0]
			var verbs []chat.Verb
			for _, a := range m.Actions {
				verbs = append(verbs, a.Verb)
			}
			assert.Equal(t, tt.verbs, verbs)
		})
	}
}

func TestContactSupport(t *testing.T) {
	t.Parallel()
	market := &fakeMarket{user: testUser}
	o := setupOrchestratorTest(t, market, nil)

	res := o.ExecuteAction(context.Background(), chat.Action{Verb: chat.VerbContactSupport, Data: map[string]any{"type": "payment"}})
	require.Len(t, res.Messages, 1)
	assert.Equal(t, "✅ Support ticket created! Our team will contact you soon.", res.Messages[0].Content)
	require.Len(t, market.contacts, 1)
	assert.Equal(t, marketplace.ContactMessage{
		AgentID:     "support",
		SenderName:  "Ada Lovelace",
		SenderEmail: "ada@example.com",
		Subject:     "Chatbot Support Request - payment",
		Message:     "Support request: payment - Initiated from chatbot",
	}, market.contacts[0])
}

func TestCreateTicketAnonymousFailure(t *testing.T) {
	t.Parallel()
	market := &fakeMarket{err: errors.New("down")}
	o := setupOrchestratorTest(t, market, nil)

	res := o.ExecuteAction(context.Background(), chat.Action{Verb: chat.VerbCreateTicket})
	assert.Equal(t, "❌ Sorry, couldn't create support ticket. Please try again later.", res.Messages[0].Content)
	require.Len(t, market.contacts, 1)
	assert.Equal(t, "Anonymous", market.contacts[0].SenderName)
	assert.Equal(t, "Chatbot Support Request - General", market.contacts[0].Subject)
}

func TestUnknownActionAddsOneTurn(t *testing.T) {
	t.Parallel()
	o := setupOrchestratorTest(t, &fakeMarket{}, nil)

	res := o.ExecuteAction(context.Background(), chat.Action{Verb: "teleport"})
	require.Len(t, res.Messages, 1)
	assert.Equal(t, "I'm working on implementing that feature. In the meantime, is there anything else I can help you with?", res.Messages[0].Content)
	assert.Len(t, o.Session().Messages, 2)
}

func TestNavigateAction(t *testing.T) {
	t.Parallel()
	nav := &recordingNavigator{}
	log, _ := test.NewNullLogger()
	o, err := assistant.New(assistant.Deps{Navigator: nav, Log: log}.WithMarketplace(&fakeMarket{}))
	require.NoError(t, err)
	defer o.Close()

	var routes []string
	o.Subscribe(func(e assistant.Event) {
		if e.Kind == assistant.EventNavigate {
			routes = append(routes, e.Route)
		}
	})

	res := o.ExecuteAction(context.Background(), chat.Action{Verb: chat.VerbNavigate, Data: map[string]any{"route": "/bookings"}})
	assert.Equal(t, "/bookings", res.Navigate)
	assert.Empty(t, res.Messages)
	assert.Equal(t, []string{"/bookings"}, nav.routes)
	assert.Equal(t, []string{"/bookings"}, routes)
	assert.Len(t, o.Session().Messages, 1)
}

func TestGeneralUsesGenerator(t *testing.T) {
	t.Parallel()
	gen := &fakeGenerator{text: "Assistant: Prices depend on location. [END]"}
	o := setupOrchestratorTest(t, &fakeMarket{user: testUser}, gen)

	m := o.Send(context.Background(), "What is the average price per square foot?")[0]
	assert.Equal(t, "Prices depend on location.", m.Content)
	assert.Equal(t, chat.TypeQuickReply, m.Type)
	assert.Equal(t, enhancer.QuickReplies("price"), m.QuickReplies)

	require.Len(t, gen.prompts, 1)
	assert.Contains(t, gen.prompts[0].User, "User: Ada Lovelace (ada@example.com)")
	assert.Contains(t, gen.prompts[0].User, `USER QUESTION: "What is the average price per square foot?"`)
	assert.NotEmpty(t, gen.prompts[0].System)
}

func TestGeneralFallsBackWhenExhausted(t *testing.T) {
	t.Parallel()
	gen := &fakeGenerator{err: provider.ErrExhausted}
	o := setupOrchestratorTest(t, &fakeMarket{}, gen)

	q := "What is the average price per square foot?"
	m := o.Send(context.Background(), q)[0]
	assert.Equal(t, enhancer.Fallback(q), m.Content)
	assert.Equal(t, enhancer.FallbackQuickReplies(), m.QuickReplies)
	assert.False(t, o.Typing())
}

func TestGeneralWithoutGenerator(t *testing.T) {
	t.Parallel()
	o := setupOrchestratorTest(t, &fakeMarket{}, nil)

	q := "Is now a good time to invest in rental units?"
	m := o.Send(context.Background(), q)[0]
	assert.Equal(t, enhancer.Fallback(q), m.Content)
}

func TestTypingIsPublishedAroundTurn(t *testing.T) {
	t.Parallel()
	o := setupOrchestratorTest(t, &fakeMarket{}, nil)

	var mu sync.Mutex
	var typing []bool
	o.Subscribe(func(e assistant.Event) {
		if e.Kind == assistant.EventTyping {
			mu.Lock()
			typing = append(typing, e.Typing)
			mu.Unlock()
		}
	})

	o.Send(context.Background(), "hello")
	assert.Equal(t, []bool{true, false}, typing)
	assert.False(t, o.Typing())
	assert.Equal(t, assistant.PhaseIdle, o.Phase())
}

type panicGenerator struct{}

func (panicGenerator) Generate(context.Context, provider.Prompt) (provider.Result, error) {
	panic("generator bug")
}

func TestPanicBecomesErrorTurn(t *testing.T) {
	t.Parallel()
	o := setupOrchestratorTest(t, &fakeMarket{}, panicGenerator{})

	m := o.Send(context.Background(), "What is the average price per square foot?")[0]
	assert.Equal(t, "Sorry, I encountered an error. Please try again.", m.Content)
	assert.False(t, o.Typing())
}

func TestSubscriberPanicIsContained(t *testing.T) {
	t.Parallel()
	o := setupOrchestratorTest(t, &fakeMarket{}, nil)
	o.Subscribe(func(assistant.Event) { panic("listener bug") })

	out := o.Send(context.Background(), "hello")
	require.Len(t, out, 1)
}

func TestROIFlow(t *testing.T) {
	t.Parallel()
	o := setupOrchestratorTest(t, &fakeMarket{}, nil)
	ctx := context.Background()

	res := o.ExecuteAction(ctx, chat.Action{Verb: chat.VerbROICalculator})
	require.Len(t, res.Messages, 1)
	assert.Contains(t, res.Messages[0].Content, "ROI Investment Calculator")

	// "hello" would otherwise be a greeting; the pending flow claims it
	m := o.Send(ctx, "hello")[0]
	assert.Contains(t, m.Content, "couldn't read that as a price")

	m = o.Send(ctx, "$250,000")[0]
	assert.Equal(t, "Thanks! What monthly rent do you expect from it?", m.Content)

	m = o.Send(ctx, "1500")[0]
	assert.Contains(t, m.Content, "Gross rental yield: 7.20%")
	assert.Contains(t, m.Content, "$250,000.00")
	assert.Contains(t, m.Content, "$18,000.00")
	assert.Nil(t, o.Session().Context.Pending)
}

func TestMortgageFlow(t *testing.T) {
	t.Parallel()
	o := setupOrchestratorTest(t, &fakeMarket{}, nil)
	ctx := context.Background()

	o.ExecuteAction(ctx, chat.Action{Verb: chat.VerbMortgageCalculator})
	o.Send(ctx, "300k")
	m := o.Send(ctx, "default")[0]
	assert.Contains(t, m.Content, "Monthly payment: $1,516.96")
	assert.Contains(t, m.Content, "Loan amount: $240,000.00")
	assert.NotContains(t, m.Content, "PMI")
}

func TestFlowCancel(t *testing.T) {
	t.Parallel()
	o := setupOrchestratorTest(t, &fakeMarket{}, nil)
	ctx := context.Background()

	o.ExecuteAction(ctx, chat.Action{Verb: chat.VerbPropertySearch})
	require.NotNil(t, o.Session().Context.Pending)

	m := o.Send(ctx, "Never mind!")[0]
	assert.Equal(t, "No problem, I've cancelled that. What else can I help you with?", m.Content)
	assert.Nil(t, o.Session().Context.Pending)
}

func TestPropertySearchFlow(t *testing.T) {
	t.Parallel()
	o := setupOrchestratorTest(t, &fakeMarket{}, nil)
	ctx := context.Background()

	o.ExecuteAction(ctx, chat.Action{Verb: chat.VerbPropertySearch})
	m := o.Send(ctx, "3 bedrooms near schools")[0]
	require.NotEmpty(t, m.Actions)
	assert.Equal(t, "/properties/search?q=3+bedrooms+near+schools", m.Actions[0].String("route"))
}

func TestClearResetsSession(t *testing.T) {
	t.Parallel()
	o := setupOrchestratorTest(t, &fakeMarket{user: testUser}, nil)
	ctx := context.Background()

	o.Send(ctx, "show my notifications")
	o.ExecuteAction(ctx, chat.Action{Verb: chat.VerbROICalculator})
	before := o.Session().ID

	sess := o.Clear()
	require.Len(t, sess.Messages, 1)
	assert.Empty(t, sess.Context.Values)
	assert.Nil(t, sess.Context.Pending)
	assert.NotEqual(t, before, sess.ID)
}

func TestVisibility(t *testing.T) {
	t.Parallel()
	o := setupOrchestratorTest(t, &fakeMarket{}, nil)

	var events []bool
	o.Subscribe(func(e assistant.Event) {
		if e.Kind == assistant.EventVisible {
			events = append(events, e.Visible)
		}
	})

	o.Toggle()
	assert.True(t, o.Visible())
	o.Show()
	o.Hide()
	assert.False(t, o.Visible())
	assert.Equal(t, []bool{true, false}, events)
}

func TestConcurrentSendsAreSerialized(t *testing.T) {
	t.Parallel()
	gen := &fakeGenerator{text: "Sure.", delay: 5 * time.Millisecond}
	o := setupOrchestratorTest(t, &fakeMarket{}, gen)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			o.Send(context.Background(), fmt.Sprintf("question number %d about square footage", i))
		}(i)
	}
	wg.Wait()

	msgs := o.Session().Messages
	require.Len(t, msgs, 11)
	for i := 1; i < len(msgs); i += 2 {
		assert.Equal(t, chat.SenderUser, msgs[i].Sender)
		assert.Equal(t, chat.SenderBot, msgs[i+1].Sender)
	}
}
