package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"snorq/internal/domain/connection"
	"snorq/internal/domain/organization"
	"snorq/internal/ingest"
	"snorq/internal/platform"
	"snorq/internal/repository/memory"
	"snorq/internal/services"
	"snorq/internal/syncer"
	snorq_errors "snorq/pkg/errors"
	"snorq/pkg/logger"
)

type stubPlatform struct{}

func (stubPlatform) SendMessage(ctx context.Context, conn connection.PlatformConnection, recipientID, text string) (string, error) {
	return "mid.sent", nil
}

func (stubPlatform) ListConversations(ctx context.Context, conn connection.PlatformConnection) ([]platform.RemoteThread, error) {
	return nil, nil
}

func (stubPlatform) GetMessageHistory(ctx context.Context, conn connection.PlatformConnection, threadID string) ([]platform.RemoteMessage, error) {
	return nil, nil
}

func (stubPlatform) ListPages(ctx context.Context, userAccessToken string) ([]platform.RemotePage, error) {
	return nil, nil
}

func (stubPlatform) SubscribePage(ctx context.Context, conn connection.PlatformConnection) error {
	return nil
}

type inboxFixture struct {
	svc      *services.InboxService
	store    *memory.Store
	conn     connection.PlatformConnection
	member   uuid.UUID
	outsider uuid.UUID
}

func newInboxFixture(t *testing.T) *inboxFixture {
	t.Helper()

	store := memory.NewStore()
	orgs := newFakeOrgRepo()
	log := logger.New("test")

	orgID := uuid.New()
	memberID := uuid.New()
	require.NoError(t, orgs.Create(context.Background(), &organization.Organization{ID: orgID, Name: "Acme"}))
	require.NoError(t, orgs.AddMember(context.Background(), &organization.Member{
		OrganizationID: orgID,
		UserID:         memberID,
		Role:           organization.RoleOwner,
		JoinedAt:       time.Now(),
	}))

	conn := connection.PlatformConnection{
		ID:             uuid.New(),
		OrganizationID: orgID,
		Platform:       connection.PlatformFacebook,
		PlatformUserID: "page-1",
		AccessToken:    "page-token",
		Status:         connection.StatusActive,
	}
	store.AddConnection(conn)

	eng := ingest.NewEngine(
		store.UnitOfWork(),
		store.Connections(),
		store.Conversations(),
		store.Messages(),
		stubPlatform{},
		nil,
		log,
	)
	rec := syncer.NewReconciler(stubPlatform{}, eng, log)

	svc := services.NewInboxService(orgs, store.Connections(), store.Conversations(), store.Messages(), eng, rec)
	return &inboxFixture{
		svc:      svc,
		store:    store,
		conn:     conn,
		member:   memberID,
		outsider: uuid.New(),
	}
}

func (f *inboxFixture) ingest(t *testing.T, mid string) uuid.UUID {
	t.Helper()

	eng := ingest.NewEngine(
		f.store.UnitOfWork(),
		f.store.Connections(),
		f.store.Conversations(),
		f.store.Messages(),
		stubPlatform{},
		nil,
		logger.New("test"),
	)
	require.NoError(t, eng.ProcessInbound(context.Background(), ingest.InboundEvent{
		Platform:  connection.PlatformFacebook,
		PageID:    "page-1",
		SenderID:  "contact-42",
		MessageID: mid,
		Text:      "hello",
		Timestamp: time.Now().UTC(),
	}))

	convs, _, err := f.store.Conversations().ListByOrganization(context.Background(), f.conn.OrganizationID, 1, 10)
	require.NoError(t, err)
	require.NotEmpty(t, convs)
	return convs[0].ID
}

func TestListConversationsRequiresMembership(t *testing.T) {
	f := newInboxFixture(t)
	f.ingest(t, "mid.1")
	ctx := context.Background()

	items, total, err := f.svc.ListConversations(ctx, f.conn.OrganizationID, f.member, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Len(t, items, 1)

	_, _, err = f.svc.ListConversations(ctx, f.conn.OrganizationID, f.outsider, 1, 10)
	assert.ErrorIs(t, err, snorq_errors.ErrForbidden)
}

func TestListMessagesRequiresMembership(t *testing.T) {
	f := newInboxFixture(t)
	convID := f.ingest(t, "mid.1")
	ctx := context.Background()

	items, total, err := f.svc.ListMessages(ctx, convID, f.member, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Len(t, items, 1)

	_, _, err = f.svc.ListMessages(ctx, convID, f.outsider, 1, 10)
	assert.ErrorIs(t, err, snorq_errors.ErrForbidden)
}

func TestSendMessageRequiresMembership(t *testing.T) {
	f := newInboxFixture(t)
	convID := f.ingest(t, "mid.1")
	ctx := context.Background()

	_, err := f.svc.SendMessage(ctx, convID, f.outsider, "sneaky reply")
	assert.ErrorIs(t, err, snorq_errors.ErrForbidden)

	m, err := f.svc.SendMessage(ctx, convID, f.member, "real reply")
	require.NoError(t, err)
	assert.Equal(t, "mid.sent", m.ExternalID.String)
}

func TestSendMessageRejectsEmptyContent(t *testing.T) {
	f := newInboxFixture(t)
	convID := f.ingest(t, "mid.1")

	_, err := f.svc.SendMessage(context.Background(), convID, f.member, "")
	assert.ErrorIs(t, err, snorq_errors.ErrInvalidInput)
}

func TestMarkReadResetsUnread(t *testing.T) {
	f := newInboxFixture(t)
	convID := f.ingest(t, "mid.1")
	f.ingest(t, "mid.2")
	ctx := context.Background()

	convs, _, err := f.store.Conversations().ListByOrganization(ctx, f.conn.OrganizationID, 1, 10)
	require.NoError(t, err)
	require.Equal(t, 2, convs[0].UnreadCount)

	require.NoError(t, f.svc.MarkRead(ctx, convID, f.member))

	convs, _, err = f.store.Conversations().ListByOrganization(ctx, f.conn.OrganizationID, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 0, convs[0].UnreadCount)

	assert.ErrorIs(t, f.svc.MarkRead(ctx, convID, f.outsider), snorq_errors.ErrForbidden)
}

func TestTriggerSyncRequiresMembership(t *testing.T) {
	f := newInboxFixture(t)
	ctx := context.Background()

	_, err := f.svc.TriggerSync(ctx, f.conn.ID, f.outsider)
	assert.ErrorIs(t, err, snorq_errors.ErrForbidden)

	report, err := f.svc.TriggerSync(ctx, f.conn.ID, f.member)
	require.NoError(t, err)
	assert.Equal(t, 0, report.ConversationsSeen)
}
