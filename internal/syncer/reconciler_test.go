package syncer_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"snorq/internal/domain/connection"
	"snorq/internal/ingest"
	"snorq/internal/platform"
	"snorq/internal/repository/memory"
	"snorq/internal/syncer"
	"snorq/pkg/logger"
)

type fakeGraph struct {
	threads    []platform.RemoteThread
	histories  map[string][]platform.RemoteMessage
	listErr    error
	historyErr map[string]error
}

func (f *fakeGraph) SendMessage(ctx context.Context, conn connection.PlatformConnection, recipientID, text string) (string, error) {
	return "mid.sent", nil
}

func (f *fakeGraph) ListConversations(ctx context.Context, conn connection.PlatformConnection) ([]platform.RemoteThread, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.threads, nil
}

func (f *fakeGraph) GetMessageHistory(ctx context.Context, conn connection.PlatformConnection, threadID string) ([]platform.RemoteMessage, error) {
	if err, ok := f.historyErr[threadID]; ok {
		return nil, err
	}
	return f.histories[threadID], nil
}

func (f *fakeGraph) ListPages(ctx context.Context, userAccessToken string) ([]platform.RemotePage, error) {
	return nil, nil
}

func (f *fakeGraph) SubscribePage(ctx context.Context, conn connection.PlatformConnection) error {
	return nil
}

func newTestReconciler(t *testing.T, fg *fakeGraph) (*syncer.Reconciler, *ingest.Engine, *memory.Store, connection.PlatformConnection) {
	t.Helper()

	store := memory.NewStore()
	conn := connection.PlatformConnection{
		ID:             uuid.New(),
		OrganizationID: uuid.New(),
		Platform:       connection.PlatformFacebook,
		PlatformUserID: "page-1",
		AccessToken:    "page-token",
		Status:         connection.StatusActive,
	}
	store.AddConnection(conn)

	log := logger.New("test")
	eng := ingest.NewEngine(
		store.UnitOfWork(),
		store.Connections(),
		store.Conversations(),
		store.Messages(),
		fg,
		nil,
		log,
	)
	return syncer.NewReconciler(fg, eng, log), eng, store, conn
}

func thread(id, contactID, contactName string) platform.RemoteThread {
	return platform.RemoteThread{
		ID: id,
		Participants: []platform.RemoteParticipant{
			{ID: "page-1", Name: "My Page"},
			{ID: contactID, Name: contactName},
		},
	}
}

func TestSyncAppliesMissedMessages(t *testing.T) {
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	fg := &fakeGraph{
		threads: []platform.RemoteThread{thread("t_1", "contact-42", "Pat")},
		histories: map[string][]platform.RemoteMessage{
			"t_1": {
				{ID: "mid.1", Text: "first", FromID: "contact-42", CreatedTime: base},
				{ID: "mid.2", Text: "second", FromID: "page-1", CreatedTime: base.Add(time.Minute)},
			},
		},
	}
	rec, _, store, conn := newTestReconciler(t, fg)

	report, err := rec.SyncConversations(context.Background(), conn)
	require.NoError(t, err)

	assert.Equal(t, 1, report.ConversationsSeen)
	assert.Equal(t, 2, report.MessagesApplied)
	assert.Equal(t, 0, report.MessagesSkipped)
	assert.False(t, report.Incomplete)

	assert.Equal(t, 1, store.ConversationCount())
	assert.Equal(t, 2, store.MessageCount())

	convs, _, err := store.Conversations().ListByOrganization(context.Background(), conn.OrganizationID, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, "Pat", convs[0].ContactName)
	assert.Equal(t, 1, convs[0].UnreadCount, "only the inbound message counts as unread")
}

func TestSyncConvergesWithWebhookIngestion(t *testing.T) {
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	fg := &fakeGraph{
		threads: []platform.RemoteThread{thread("t_1", "contact-42", "Pat")},
		histories: map[string][]platform.RemoteMessage{
			"t_1": {
				{ID: "mid.pushed", Text: "came via webhook", FromID: "contact-42", CreatedTime: base},
				{ID: "mid.missed", Text: "webhook dropped me", FromID: "contact-42", CreatedTime: base.Add(time.Minute)},
			},
		},
	}
	rec, eng, store, conn := newTestReconciler(t, fg)
	ctx := context.Background()

	// The first message already arrived through the webhook path.
	require.NoError(t, eng.ProcessInbound(ctx, ingest.InboundEvent{
		Platform:  connection.PlatformFacebook,
		PageID:    "page-1",
		SenderID:  "contact-42",
		MessageID: "mid.pushed",
		Text:      "came via webhook",
		Timestamp: base,
	}))
	require.Equal(t, 1, store.ConversationCount())

	report, err := rec.SyncConversations(ctx, conn)
	require.NoError(t, err)

	assert.Equal(t, 1, report.MessagesApplied, "only the missed message is new")
	assert.Equal(t, 1, report.MessagesSkipped, "the pushed message dedupes on its mid")
	assert.Equal(t, 1, store.ConversationCount(), "webhook and sync share one conversation row")
	assert.Equal(t, 2, store.MessageCount())
}

func TestSyncRerunIsNoOp(t *testing.T) {
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	fg := &fakeGraph{
		threads: []platform.RemoteThread{thread("t_1", "contact-42", "Pat")},
		histories: map[string][]platform.RemoteMessage{
			"t_1": {{ID: "mid.1", Text: "first", FromID: "contact-42", CreatedTime: base}},
		},
	}
	rec, _, store, conn := newTestReconciler(t, fg)
	ctx := context.Background()

	_, err := rec.SyncConversations(ctx, conn)
	require.NoError(t, err)

	report, err := rec.SyncConversations(ctx, conn)
	require.NoError(t, err)
	assert.Equal(t, 0, report.MessagesApplied)
	assert.Equal(t, 1, report.MessagesSkipped)
	assert.Equal(t, 1, store.MessageCount())

	convs, _, err := store.Conversations().ListByOrganization(ctx, conn.OrganizationID, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, convs[0].UnreadCount, "re-running sync must not inflate unread")
}

func TestSyncListFailureFailsWholeRun(t *testing.T) {
	fg := &fakeGraph{listErr: &platform.GraphError{Message: "down", HTTPStatus: 500}}
	rec, _, store, conn := newTestReconciler(t, fg)

	report, err := rec.SyncConversations(context.Background(), conn)
	require.Error(t, err)
	assert.True(t, report.Incomplete)
	assert.Equal(t, 0, store.MessageCount())
}

func TestSyncPartialThreadFailure(t *testing.T) {
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	fg := &fakeGraph{
		threads: []platform.RemoteThread{
			thread("t_bad", "contact-1", "Alex"),
			thread("t_good", "contact-2", "Sam"),
		},
		histories: map[string][]platform.RemoteMessage{
			"t_good": {{ID: "mid.ok", Text: "still here", FromID: "contact-2", CreatedTime: base}},
		},
		historyErr: map[string]error{
			"t_bad": &platform.GraphError{Message: "transient", HTTPStatus: 500},
		},
	}
	rec, _, store, conn := newTestReconciler(t, fg)

	report, err := rec.SyncConversations(context.Background(), conn)
	require.Error(t, err, "a failed thread surfaces as the run's error")
	assert.True(t, report.Incomplete)
	assert.Equal(t, 1, report.MessagesApplied, "the healthy thread still lands")
	assert.Equal(t, 1, store.MessageCount())
}
