package store

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"estate-assistant-backend/internal/assistant"
	"estate-assistant-backend/internal/chat"
)

const saveTimeout = 5 * time.Second

// Transcript is the archived form of a session. Pending flows are not kept.
type Transcript struct {
	SessionID string         `json:"sessionId"`
	VisitorID string         `json:"visitorId"`
	IsActive  bool           `json:"isActive"`
	Context   map[string]any `json:"context"`
	Messages  []chat.Message `json:"messages"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

func NewTranscript(visitorID string, s chat.Session, at time.Time) Transcript {
	ctx := s.Context.Values
	if ctx == nil {
		ctx = map[string]any{}
	}
	return Transcript{
		SessionID: s.ID,
		VisitorID: visitorID,
		IsActive:  s.IsActive,
		Context:   ctx,
		Messages:  s.Messages,
		UpdatedAt: at,
	}
}

// Archive persists transcripts. Load returns nil, nil for unknown sessions and
// Delete is a no-op for them.
type Archive interface {
	Save(ctx context.Context, t Transcript) error
	Load(ctx context.Context, sessionID string) (*Transcript, error)
	Delete(ctx context.Context, sessionID string) error
}

// Record archives the current session right away and then every snapshot conv
// publishes. Failures are logged; the conversation carries on. The returned
// function stops recording.
func Record(conv *assistant.Orchestrator, visitorID string, archive Archive, log logrus.FieldLogger) func() {
	save := func(s chat.Session) {
		ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
		defer cancel()
		if err := archive.Save(ctx, NewTranscript(visitorID, s, time.Now())); err != nil {
			log.WithError(err).WithFields(logrus.Fields{"session": s.ID, "visitor": visitorID}).Error("failed to archive transcript")
		}
	}
	stop := conv.Subscribe(func(e assistant.Event) {
		if e.Kind == assistant.EventSession && e.Session != nil {
			save(*e.Session)
		}
	})
	save(conv.Session())
	return stop
}
