package assistant

import (
	"context"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"estate-assistant-backend/internal/chat"
	"estate-assistant-backend/internal/intent"
	"estate-assistant-backend/internal/provider"
)

type Phase string

const (
	PhaseIdle           Phase = "idle"
	PhaseClassifying    Phase = "awaiting_classification"
	PhaseAwaitingModel  Phase = "awaiting_provider"
	PhaseContinuingFlow Phase = "continuing_flow"
)

type EventKind string

const (
	EventSession  EventKind = "session"
	EventVisible  EventKind = "visible"
	EventTyping   EventKind = "typing"
	EventNavigate EventKind = "navigate"
)

// Event is what subscribers observe. Only the field matching Kind is set.
type Event struct {
	Kind    EventKind     `json:"kind"`
	Session *chat.Session `json:"session,omitempty"`
	Visible bool          `json:"visible"`
	Typing  bool          `json:"typing"`
	Route   string        `json:"route,omitempty"`
}

// Orchestrator runs one conversation. Turns and actions are serialized: a
// second utterance waits until the first has its reply appended.
type Orchestrator struct {
	store      *chat.Store
	dispatcher *Dispatcher
	deps       Deps
	log        *logrus.Logger

	turn sync.Mutex

	mu        sync.Mutex
	visible   bool
	typing    bool
	phase     Phase
	greetings int
	listeners map[int]func(Event)
	nextID    int

	unsubscribeStore func()
}

// New builds an Orchestrator with a fresh session.
func New(deps Deps) (*Orchestrator, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	if deps.Log == nil {
		deps.Log = logrus.StandardLogger()
	}
	if deps.Prompts.Template == "" {
		deps.Prompts = provider.DefaultPromptSpec()
	}
	opts := append([]chat.StoreOption{chat.WithLogger(deps.Log)}, deps.StoreOptions...)
	o := &Orchestrator{
		store:     chat.NewStore(welcomeMessage(), opts...),
		deps:      deps,
		log:       deps.Log,
		phase:     PhaseIdle,
		listeners: make(map[int]func(Event)),
	}
	o.dispatcher = newDispatcher(o)
	o.unsubscribeStore = o.store.Subscribe(func(s chat.Session) {
		o.publish(Event{Kind: EventSession, Session: &s})
	})
	o.store.Create()
	return o, nil
}

// Close detaches the orchestrator from its session store.
func (o *Orchestrator) Close() {
	o.unsubscribeStore()
}

// Send processes one utterance and returns the bot turn it produced. Blank
// input is ignored. Failures never escape: they become bot turns.
func (o *Orchestrator) Send(ctx context.Context, text string) []chat.Message {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	o.turn.Lock()
	defer o.turn.Unlock()

	o.store.Append(chat.UserMessage(text))
	o.setTyping(true)
	defer o.setTyping(false)
	defer o.setPhase(PhaseIdle)

	reply := o.respond(ctx, text)
	stored := o.store.Append(reply)
	if len(reply.Actions) > 0 {
		o.store.MergeContext(reply.Actions[0].Data)
	}
	return []chat.Message{stored}
}

func (o *Orchestrator) respond(ctx context.Context, text string) (reply chat.Message) {
	defer func() {
		if r := recover(); r != nil {
			o.log.WithField("utterance", text).Errorf("assistant: turn panicked: %v", r)
			reply = chat.BotText(errorText)
		}
	}()

	sess, _ := o.store.Current()
	if sess.Context.Pending != nil {
		o.setPhase(PhaseContinuingFlow)
		return o.continueFlow(ctx, sess.Context.Pending, text)
	}

	o.setPhase(PhaseClassifying)
	in := intent.Classify(text)
	o.log.WithFields(logrus.Fields{"intent": in.Kind, "session": sess.ID}).Debug("assistant: classified")

	switch in.Kind {
	case intent.ShowNotifications:
		return o.handleNotifications(ctx)
	case intent.CheckPayments:
		return o.handlePayments(ctx)
	case intent.LeaveReview:
		return o.handleReview(ctx, in)
	case intent.GetHelp:
		return o.handleHelp(in.Topic)
	case intent.BookingHelp:
		return o.handleBookingHelp()
	case intent.PaymentMethods:
		return o.handlePaymentMethods()
	case intent.Greeting:
		return o.handleGreeting()
	default:
		o.setPhase(PhaseAwaitingModel)
		return o.handleGeneral(ctx, text, sess)
	}
}

// ExecuteAction runs a clicked action. It never fails; problems become bot
// turns.
func (o *Orchestrator) ExecuteAction(ctx context.Context, a chat.Action) Outcome {
	o.turn.Lock()
	defer o.turn.Unlock()
	return o.dispatcher.Execute(ctx, a)
}

// Clear discards the conversation and starts over with the welcome turn.
func (o *Orchestrator) Clear() chat.Session {
	o.turn.Lock()
	defer o.turn.Unlock()
	return o.store.Create()
}

// Session returns a snapshot of the current conversation.
func (o *Orchestrator) Session() chat.Session {
	s, _ := o.store.Current()
	return s
}

func (o *Orchestrator) Show()   { o.setVisible(func(bool) bool { return true }) }
func (o *Orchestrator) Hide()   { o.setVisible(func(bool) bool { return false }) }
func (o *Orchestrator) Toggle() { o.setVisible(func(v bool) bool { return !v }) }

func (o *Orchestrator) Visible() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.visible
}

func (o *Orchestrator) Typing() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.typing
}

func (o *Orchestrator) Phase() Phase {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.phase
}

func (o *Orchestrator) setVisible(next func(bool) bool) {
	o.mu.Lock()
	v := next(o.visible)
	changed := v != o.visible
	o.visible = v
	o.mu.Unlock()
	if changed {
		o.publish(Event{Kind: EventVisible, Visible: v})
	}
}

func (o *Orchestrator) setTyping(v bool) {
	o.mu.Lock()
	o.typing = v
	o.mu.Unlock()
	o.publish(Event{Kind: EventTyping, Typing: v})
}

func (o *Orchestrator) setPhase(p Phase) {
	o.mu.Lock()
	o.phase = p
	o.mu.Unlock()
}

func (o *Orchestrator) nextGreeting() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	i := o.greetings % len(greetings)
	o.greetings++
	return i
}

// Subscribe registers fn for every Event and returns a function that removes
// it.
func (o *Orchestrator) Subscribe(fn func(Event)) func() {
	o.mu.Lock()
	defer o.mu.Unlock()
	id := o.nextID
	o.nextID++
	o.listeners[id] = fn
	return func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		delete(o.listeners, id)
	}
}

func (o *Orchestrator) publish(e Event) {
	o.mu.Lock()
	fns := make([]func(Event), 0, len(o.listeners))
	for i := 0; i < o.nextID; i++ {
		if fn, ok := o.listeners[i]; ok {
			fns = append(fns, fn)
		}
	}
	o.mu.Unlock()
	for _, fn := range fns {
		func() {
			defer func() {
				if r := recover(); r != nil {
					o.log.WithField("event", e.Kind).Errorf("assistant: subscriber panicked: %v", r)
				}
			}()
			fn(e)
		}()
	}
}
