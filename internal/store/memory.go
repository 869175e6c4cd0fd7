package store

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"estate-assistant-backend/internal/assistant"
)

// Factory builds the conversation for a visitor seen for the first time.
type Factory func(visitorID string) (*assistant.Orchestrator, error)

type entry struct {
	conv     *assistant.Orchestrator
	lastSeen time.Time
}

// MemoryStore keeps one conversation per visitor in memory and evicts the ones
// idle for longer than the TTL.
type MemoryStore struct {
	mu      sync.RWMutex
	convs   map[string]*entry
	ttl     time.Duration
	factory Factory
	log     logrus.FieldLogger

	now func() time.Time
}

func NewMemoryStore(factory Factory, ttl time.Duration, log logrus.FieldLogger) *MemoryStore {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &MemoryStore{
		convs:   make(map[string]*entry),
		ttl:     ttl,
		factory: factory,
		log:     log,
		now:     time.Now,
	}
}

// Get returns the visitor's conversation, creating it on first use.
func (m *MemoryStore) Get(visitorID string) (*assistant.Orchestrator, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.convs[visitorID]; ok {
		e.lastSeen = m.now()
		return e.conv, nil
	}
	conv, err := m.factory(visitorID)
	if err != nil {
		return nil, err
	}
	m.convs[visitorID] = &entry{conv: conv, lastSeen: m.now()}
	m.log.WithField("visitor", visitorID).Debug("conversation created")
	return conv, nil
}

// Lookup returns an existing conversation without creating or touching it.
func (m *MemoryStore) Lookup(visitorID string) (*assistant.Orchestrator, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.convs[visitorID]
	if !ok {
		return nil, false
	}
	return e.conv, true
}

// Remove closes and forgets the visitor's conversation.
func (m *MemoryStore) Remove(visitorID string) {
	m.mu.Lock()
	e, ok := m.convs[visitorID]
	delete(m.convs, visitorID)
	m.mu.Unlock()
	if ok {
		e.conv.Close()
	}
}

func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.convs)
}

// Sweep evicts idle conversations and returns how many it removed. A
// non-positive TTL keeps everything.
func (m *MemoryStore) Sweep() int {
	if m.ttl <= 0 {
		return 0
	}
	cutoff := m.now().Add(-m.ttl)

	m.mu.Lock()
	var idle []*assistant.Orchestrator
	for id, e := range m.convs {
		if e.lastSeen.Before(cutoff) {
			idle = append(idle, e.conv)
			delete(m.convs, id)
		}
	}
	m.mu.Unlock()

	for _, conv := range idle {
		conv.Close()
	}
	if len(idle) > 0 {
		m.log.WithField("evicted", len(idle)).Info("idle conversations evicted")
	}
	return len(idle)
}

// Run sweeps every interval until ctx is done.
func (m *MemoryStore) Run(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			m.Sweep()
		}
	}
}
