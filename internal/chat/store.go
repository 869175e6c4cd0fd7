package chat

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Session is the conversation state observed by subscribers.
type Session struct {
	ID       string    `json:"id"`
	Messages []Message `json:"messages"`
	Context  Context   `json:"context"`
	IsActive bool      `json:"isActive"`
}

func (s Session) clone() Session {
	out := Session{ID: s.ID, IsActive: s.IsActive, Context: s.Context.clone()}
	out.Messages = make([]Message, len(s.Messages))
	for i, m := range s.Messages {
		out.Messages[i] = m.clone()
	}
	return out
}

// Last returns the newest message, if any.
func (s Session) Last() (Message, bool) {
	if len(s.Messages) == 0 {
		return Message{}, false
	}
	return s.Messages[len(s.Messages)-1], true
}

// Listener receives a snapshot after every change. Listeners must not call
// back into the Store's mutating methods.
type Listener func(Session)

// Store holds the single current session of one conversation. Messages are
// append-only; every read hands out a deep copy.
type Store struct {
	// pub serializes mutate+notify so listeners see snapshots in order.
	pub sync.Mutex
	mu  sync.Mutex

	session   *Session
	welcome   Message
	listeners map[int]Listener
	nextID    int

	log   *logrus.Logger
	now   func() time.Time
	newID func() string
}

type StoreOption func(*Store)

func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) { s.now = now }
}

func WithIDs(newID func() string) StoreOption {
	return func(s *Store) { s.newID = newID }
}

func WithLogger(log *logrus.Logger) StoreOption {
	return func(s *Store) { s.log = log }
}

// NewStore returns an empty store. welcome seeds every session it creates.
func NewStore(welcome Message, opts ...StoreOption) *Store {
	s := &Store{
		welcome:   welcome,
		listeners: make(map[int]Listener),
		log:       logrus.StandardLogger(),
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create replaces whatever session exists with a fresh one holding only the
// welcome turn.
func (s *Store) Create() Session {
	s.pub.Lock()
	defer s.pub.Unlock()
	s.mu.Lock()
	s.session = s.freshLocked()
	snap := s.session.clone()
	s.mu.Unlock()
	s.notify(snap)
	return snap
}

func (s *Store) freshLocked() *Session {
	welcome := s.welcome.clone()
	s.stampLocked(&welcome)
	return &Session{
		ID:       "session_" + s.newID(),
		Messages: []Message{welcome},
		Context:  Context{Values: map[string]any{}},
		IsActive: true,
	}
}

func (s *Store) stampLocked(m *Message) {
	if m.ID == "" {
		m.ID = s.newID()
	}
	if m.Timestamp.IsZero() {
		m.Timestamp = s.now()
	}
}

// Append adds msg to the current session, creating one first if needed, and
// returns the stored copy.
func (s *Store) Append(msg Message) Message {
	var stored Message
	s.mutate(func(sess *Session) {
		m := msg.clone()
		s.stampLocked(&m)
		sess.Messages = append(sess.Messages, m)
		stored = m.clone()
	})
	return stored
}

// MergeContext shallow-merges patch into the context values; later writes win.
func (s *Store) MergeContext(patch map[string]any) {
	if len(patch) == 0 {
		return
	}
	s.mutate(func(sess *Session) {
		for k, v := range patch {
			sess.Context.Values[k] = v
		}
	})
}

// SetPending parks a flow on the session. A nil flow clears it.
func (s *Store) SetPending(f Flow) {
	s.mutate(func(sess *Session) {
		if f == nil {
			sess.Context.Pending = nil
			return
		}
		sess.Context.Pending = f.clone()
	})
}

func (s *Store) ClearPending() { s.SetPending(nil) }

func (s *Store) mutate(fn func(*Session)) {
	s.pub.Lock()
	defer s.pub.Unlock()
	s.mu.Lock()
	if s.session == nil {
		s.session = s.freshLocked()
	}
	fn(s.session)
	snap := s.session.clone()
	s.mu.Unlock()
	s.notify(snap)
}

// Current returns a snapshot of the session, or false before Create.
func (s *Store) Current() (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return Session{}, false
	}
	return s.session.clone(), true
}

// Subscribe registers l and returns a function that removes it.
func (s *Store) Subscribe(l Listener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = l
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

func (s *Store) notify(snap Session) {
	s.mu.Lock()
	ls := make([]Listener, 0, len(s.listeners))
	for i := 0; i < s.nextID; i++ {
		if l, ok := s.listeners[i]; ok {
			ls = append(ls, l)
		}
	}
	s.mu.Unlock()

	for _, l := range ls {
		func() {
			defer func() {
				if r := recover(); r != nil {
					s.log.WithField("session", snap.ID).Errorf("chat: session listener panicked: %v", r)
				}
			}()
			// each listener gets its own copy
			l(snap.clone())
		}()
	}
}
