package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"estate-assistant-backend/internal/chat"
	"estate-assistant-backend/internal/db"
)

// DatabaseStore archives transcripts in PostgreSQL
type DatabaseStore struct {
	db *db.DB
}

// NewDatabaseStore creates a new database store
func NewDatabaseStore(database *db.DB) *DatabaseStore {
	return &DatabaseStore{db: database}
}

// Save upserts the session row and inserts any message not stored yet.
// Messages are append-only, so existing rows are left untouched.
func (ds *DatabaseStore) Save(ctx context.Context, t Transcript) error {
	if t.SessionID == "" {
		return fmt.Errorf("session_id is required")
	}
	values, err := json.Marshal(t.Context)
	if err != nil {
		return fmt.Errorf("failed to encode context: %w", err)
	}
	if t.Context == nil {
		values = []byte("{}")
	}

	tx, err := ds.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO chat_sessions (session_id, visitor_id, context, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		ON CONFLICT (session_id)
		DO UPDATE SET
			context = EXCLUDED.context,
			is_active = EXCLUDED.is_active,
			updated_at = EXCLUDED.updated_at
	`, t.SessionID, t.VisitorID, string(values), t.IsActive, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	for i, m := range t.Messages {
		actions, replies, err := encodeExtras(m)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO chat_messages (session_id, message_id, position, sender, type, content, actions, quick_replies, sent_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (session_id, message_id) DO NOTHING
		`, t.SessionID, m.ID, i, string(m.Sender), string(m.Type), m.Content, actions, replies, m.Timestamp)
		if err != nil {
			return fmt.Errorf("failed to save message %s: %w", m.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transcript: %w", err)
	}
	return nil
}

// encodeExtras returns JSON text for the optional columns, or nil for NULL.
func encodeExtras(m chat.Message) (actions, replies any, err error) {
	if len(m.Actions) > 0 {
		b, err := json.Marshal(m.Actions)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to encode actions: %w", err)
		}
		actions = string(b)
	}
	if len(m.QuickReplies) > 0 {
		b, err := json.Marshal(m.QuickReplies)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to encode quick replies: %w", err)
		}
		replies = string(b)
	}
	return actions, replies, nil
}

// Load reads a transcript back, messages in conversation order.
func (ds *DatabaseStore) Load(ctx context.Context, sessionID string) (*Transcript, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("session_id is required")
	}

	t := Transcript{SessionID: sessionID}
	var values []byte
	err := ds.db.QueryRowContext(ctx, `
		SELECT visitor_id, context, is_active, updated_at
		FROM chat_sessions
		WHERE session_id = $1
	`, sessionID).Scan(&t.VisitorID, &values, &t.IsActive, &t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if err := json.Unmarshal(values, &t.Context); err != nil {
		return nil, fmt.Errorf("failed to decode context: %w", err)
	}

	rows, err := ds.db.QueryContext(ctx, `
		SELECT message_id, sender, type, content, actions, quick_replies, sent_at
		FROM chat_messages
		WHERE session_id = $1
		ORDER BY position
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get messages: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			m                chat.Message
			sender, typ      string
			actions, replies []byte
		)
		if err := rows.Scan(&m.ID, &sender, &typ, &m.Content, &actions, &replies, &m.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		m.Sender, m.Type = chat.Sender(sender), chat.MessageType(typ)
		if len(actions) > 0 {
			if err := json.Unmarshal(actions, &m.Actions); err != nil {
				return nil, fmt.Errorf("failed to decode actions: %w", err)
			}
		}
		if len(replies) > 0 {
			if err := json.Unmarshal(replies, &m.QuickReplies); err != nil {
				return nil, fmt.Errorf("failed to decode quick replies: %w", err)
			}
		}
		t.Messages = append(t.Messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read messages: %w", err)
	}
	return &t, nil
}

// Delete removes a session and, by cascade, its messages.
func (ds *DatabaseStore) Delete(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("session_id is required")
	}
	if _, err := ds.db.ExecContext(ctx, `DELETE FROM chat_sessions WHERE session_id = $1`, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}
