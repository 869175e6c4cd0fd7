package store_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"estate-assistant-backend/internal/assistant"
	"estate-assistant-backend/internal/chat"
	"estate-assistant-backend/internal/db"
	"estate-assistant-backend/internal/marketplace"
	"estate-assistant-backend/internal/store"
)

type anonymousMarket struct{}

func (anonymousMarket) ListNotifications(context.Context, string) ([]marketplace.Notification, error) {
	return nil, nil
}
func (anonymousMarket) MarkAllNotificationsRead(context.Context, string) error { return nil }
func (anonymousMarket) ListInvoices(context.Context) ([]marketplace.Invoice, error) {
	return nil, nil
}
func (anonymousMarket) SendContact(context.Context, marketplace.ContactMessage) error { return nil }
func (anonymousMarket) CreateReview(context.Context, marketplace.ReviewInput) error   { return nil }
func (anonymousMarket) CurrentUser(context.Context) (*marketplace.User, error)      { return nil, nil }

func newConversation(t *testing.T) *assistant.Orchestrator {
	t.Helper()
	log, _ := test.NewNullLogger()
	o, err := assistant.New(assistant.Deps{Log: log}.WithMarketplace(anonymousMarket{}))
	require.NoError(t, err)
	return o
}

func setupMemoryStoreTest(t *testing.T, ttl time.Duration) (*store.MemoryStore, *int) {
	t.Helper()
	log, _ := test.NewNullLogger()
	created := 0
	m := store.NewMemoryStore(func(string) (*assistant.Orchestrator, error) {
		created++
		return newConversation(t), nil
	}, ttl, log)
	return m, &created
}

func TestMemoryStoreReusesConversation(t *testing.T) {
	t.Parallel()
	m, created := setupMemoryStoreTest(t, time.Hour)

	a, err := m.Get("visitor-1")
	require.NoError(t, err)
	b, err := m.Get("visitor-1")
	require.NoError(t, err)
	c, err := m.Get("visitor-2")
	require.NoError(t, err)

	assert.Same(t, a, b)
	assert.NotSame(t, a, c)
	assert.Equal(t, 2, *created)
	assert.Equal(t, 2, m.Len())

	got, ok := m.Lookup("visitor-2")
	assert.True(t, ok)
	assert.Same(t, c, got)
	_, ok = m.Lookup("nobody")
	assert.False(t, ok)
}

func TestMemoryStoreFactoryError(t *testing.T) {
	t.Parallel()
	m := store.NewMemoryStore(func(string) (*assistant.Orchestrator, error) {
		return nil, errors.New("no deps")
	}, time.Hour, nil)

	_, err := m.Get("visitor")
	require.Error(t, err)
	assert.Equal(t, 0, m.Len())
}

func TestMemoryStoreSweep(t *testing.T) {
	t.Parallel()
	m, _ := setupMemoryStoreTest(t, time.Nanosecond)

	_, err := m.Get("visitor-1")
	require.NoError(t, err)
	time.Sleep(time.Millisecond)

	assert.Equal(t, 1, m.Sweep())
	assert.Equal(t, 0, m.Len())
}

func TestMemoryStoreSweepDisabled(t *testing.T) {
	t.Parallel()
	m, _ := setupMemoryStoreTest(t, 0)

	_, err := m.Get("visitor-1")
	require.NoError(t, err)
	assert.Equal(t, 0, m.Sweep())
	assert.Equal(t, 1, m.Len())
}

func TestMemoryStoreRemove(t *testing.T) {
	t.Parallel()
	m, created := setupMemoryStoreTest(t, time.Hour)

	_, err := m.Get("visitor-1")
	require.NoError(t, err)
	m.Remove("visitor-1")
	assert.Equal(t, 0, m.Len())

	_, err = m.Get("visitor-1")
	require.NoError(t, err)
	assert.Equal(t, 2, *created)
}

func sampleTranscript() store.Transcript {
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	return store.Transcript{
		SessionID: "session_abc",
		VisitorID: "visitor-1",
		IsActive:  true,
		Context:   map[string]any{"route": "/notifications"},
		Messages: []chat.Message{
			{ID: "m1", Content: "Welcome", Sender: chat.SenderBot, Type: chat.TypeQuickReply, Timestamp: at, QuickReplies: []string{"I need help"}},
			{ID: "m2", Content: "show my notifications", Sender: chat.SenderUser, Type: chat.TypeText, Timestamp: at},
			{ID: "m3", Content: "Please log in", Sender: chat.SenderBot, Type: chat.TypeAction, Timestamp: at,
				Actions: []chat.Action{{Label: "Login", Verb: chat.VerbNavigate, Data: map[string]any{"route": "/auth/login"}}}},
		},
		UpdatedAt: at,
	}
}

func TestFileArchiveRoundTrip(t *testing.T) {
	t.Parallel()
	dir := filepath.Join(t.TempDir(), "transcripts")
	archive := store.NewFileArchive(dir)
	ctx := context.Background()

	missing, err := archive.Load(ctx, "session_abc")
	require.NoError(t, err)
	assert.Nil(t, missing)

	want := sampleTranscript()
	require.NoError(t, archive.Save(ctx, want))

	info, err := os.Stat(filepath.Join(dir, "session_abc.json"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	got, err := archive.Load(ctx, "session_abc")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, want.VisitorID, got.VisitorID)
	require.Len(t, got.Messages, 3)
	assert.Equal(t, "/auth/login", got.Messages[2].Actions[0].String("route"))
	assert.Equal(t, []string{"I need help"}, got.Messages[0].QuickReplies)

	require.NoError(t, archive.Delete(ctx, "session_abc"))
	gone, err := archive.Load(ctx, "session_abc")
	require.NoError(t, err)
	assert.Nil(t, gone)
	require.NoError(t, archive.Delete(ctx, "session_abc"))
}

func TestFileArchiveRejectsPathLikeIDs(t *testing.T) {
	t.Parallel()
	archive := store.NewFileArchive(t.TempDir())

	for _, id := range []string{"", "../escape", "a/b", ".hidden"} {
		tr := sampleTranscript()
		tr.SessionID = id
		assert.Error(t, archive.Save(context.Background(), tr), id)
	}
}

func setupDatabaseStoreTest(t *testing.T) (*store.DatabaseStore, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	log, _ := test.NewNullLogger()
	return store.NewDatabaseStore(db.Wrap(sqlDB, log)), mock
}

func TestDatabaseStoreSave(t *testing.T) {
	t.Parallel()
	ds, mock := setupDatabaseStoreTest(t)
	tr := sampleTranscript()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO chat_sessions")).
		WithArgs("session_abc", "visitor-1", `{"route":"/notifications"}`, true, tr.UpdatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO chat_messages")).
		WithArgs("session_abc", "m1", 0, "bot", "quick-reply", "Welcome", nil, `["I need help"]`, tr.UpdatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO chat_messages")).
		WithArgs("session_abc", "m2", 1, "user", "text", "show my notifications", nil, nil, tr.UpdatedAt).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO chat_messages")).
		WithArgs("session_abc", "m3", 2, "bot", "action", "Please log in",
			`[{"label":"Login","action":"navigate","data":{"route":"/auth/login"}}]`, nil, tr.UpdatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, ds.Save(context.Background(), tr))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDatabaseStoreSaveRollsBack(t *testing.T) {
	t.Parallel()
	ds, mock := setupDatabaseStoreTest(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO chat_sessions")).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	err := ds.Save(context.Background(), sampleTranscript())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to save session")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDatabaseStoreLoad(t *testing.T) {
	t.Parallel()
	ds, mock := setupDatabaseStoreTest(t)
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("FROM chat_sessions")).
		WithArgs("session_abc").
		WillReturnRows(sqlmock.NewRows([]string{"visitor_id", "context", "is_active", "updated_at"}).
			AddRow("visitor-1", []byte(`{"route":"/payments"}`), true, at))
	mock.ExpectQuery(regexp.QuoteMeta("FROM chat_messages")).
		WithArgs("session_abc").
		WillReturnRows(sqlmock.NewRows([]string{"message_id", "sender", "type", "content", "actions", "quick_replies", "sent_at"}).
			AddRow("m1", "bot", "quick-reply", "Welcome", nil, []byte(`["I need help"]`), at).
			AddRow("m2", "bot", "action", "Pay", []byte(`[{"label":"Pay Now","action":"navigate","data":{"route":"/payments"}}]`), nil, at))

	got, err := ds.Load(context.Background(), "session_abc")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "visitor-1", got.VisitorID)
	assert.Equal(t, "/payments", got.Context["route"])
	require.Len(t, got.Messages, 2)
	assert.Equal(t, chat.TypeQuickReply, got.Messages[0].Type)
	assert.Equal(t, []string{"I need help"}, got.Messages[0].QuickReplies)
	assert.Equal(t, chat.VerbNavigate, got.Messages[1].Actions[0].Verb)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDatabaseStoreLoadMissing(t *testing.T) {
	t.Parallel()
	ds, mock := setupDatabaseStoreTest(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM chat_sessions")).
		WithArgs("session_none").
		WillReturnRows(sqlmock.NewRows([]string{"visitor_id", "context", "is_active", "updated_at"}))

	got, err := ds.Load(context.Background(), "session_none")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestDatabaseStoreDelete(t *testing.T) {
	t.Parallel()
	ds, mock := setupDatabaseStoreTest(t)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM chat_sessions")).
		WithArgs("session_abc").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, ds.Delete(context.Background(), "session_abc"))
	require.Error(t, ds.Delete(context.Background(), ""))
	require.NoError(t, mock.ExpectationsWereMet())
}

type memArchive struct {
	mu    sync.Mutex
	saved []store.Transcript
	err   error
}

func (a *memArchive) Save(_ context.Context, t store.Transcript) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.saved = append(a.saved, t)
	return a.err
}

func (a *memArchive) Load(context.Context, string) (*store.Transcript, error) { return nil, nil }

func (a *memArchive) Delete(context.Context, string) error { return nil }

func (a *memArchive) last() store.Transcript {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.saved[len(a.saved)-1]
}

func TestRecordArchivesEverySessionChange(t *testing.T) {
	t.Parallel()
	conv := newConversation(t)
	defer conv.Close()
	archive := &memArchive{}
	log, _ := test.NewNullLogger()

	stop := store.Record(conv, "visitor-1", archive, log)
	conv.Send(context.Background(), "hello")

	tr := archive.last()
	assert.Equal(t, "visitor-1", tr.VisitorID)
	assert.Equal(t, conv.Session().ID, tr.SessionID)
	assert.Len(t, tr.Messages, 3)

	stop()
	n := len(archive.saved)
	conv.Send(context.Background(), "hello")
	assert.Len(t, archive.saved, n)
}

func TestRecordSavesCurrentSession(t *testing.T) {
	t.Parallel()
	conv := newConversation(t)
	defer conv.Close()
	archive := &memArchive{}
	log, _ := test.NewNullLogger()

	stop := store.Record(conv, "visitor-1", archive, log)
	defer stop()

	require.Len(t, archive.saved, 1)
	tr := archive.last()
	assert.Equal(t, conv.Session().ID, tr.SessionID)
	require.Len(t, tr.Messages, 1)
	assert.Equal(t, chat.SenderBot, tr.Messages[0].Sender)
}

func TestRecordLogsFailures(t *testing.T) {
	t.Parallel()
	conv := newConversation(t)
	defer conv.Close()
	log, hook := test.NewNullLogger()

	store.Record(conv, "visitor-1", &memArchive{err: errors.New("disk full")}, log)
	out := conv.Send(context.Background(), "hello")

	require.Len(t, out, 1)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, "failed to archive transcript", hook.LastEntry().Message)
}
