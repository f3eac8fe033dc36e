package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"snorq/internal/domain/connection"
	"snorq/internal/domain/conversation"
	"snorq/internal/domain/message"
	"snorq/internal/domain/organization"
	"snorq/internal/domain/user"
)

type UserRepository interface {
	Create(ctx context.Context, u *user.User) error
	GetByID(ctx context.Context, id uuid.UUID) (user.User, error)
	GetByEmail(ctx context.Context, email string) (user.User, error)
}

type OrganizationRepository interface {
	Create(ctx context.Context, o *organization.Organization) error
	GetByID(ctx context.Context, id uuid.UUID) (organization.Organization, error)
	AddMember(ctx context.Context, m *organization.Member) error
	IsMember(ctx context.Context, organizationID, userID uuid.UUID) (bool, error)
	GetUserOrganizations(ctx context.Context, userID uuid.UUID) ([]organization.Organization, error)
}

type ConnectionRepository interface {
	// Resolve looks up the connection owning an external account id. Used by
	// the webhook path to attribute an inbound event to a tenant; a miss means
	// the event is undeliverable and must be dropped.
	Resolve(ctx context.Context, platform connection.Platform, platformUserID string) (connection.PlatformConnection, error)
	GetByID(ctx context.Context, id uuid.UUID) (connection.PlatformConnection, error)
	ListByOrganization(ctx context.Context, organizationID uuid.UUID) ([]connection.PlatformConnection, error)
	Upsert(ctx context.Context, c *connection.PlatformConnection) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
}

type ConversationRepository interface {
	// FindOrCreate inserts the conversation keyed by
	// (platform_connection_id, external_id), or loads the existing row into c.
	FindOrCreate(ctx context.Context, c *conversation.Conversation) error
	GetByID(ctx context.Context, id uuid.UUID) (conversation.Conversation, error)
	ListByOrganization(ctx context.Context, organizationID uuid.UUID, page, limit int) ([]conversation.Conversation, int64, error)

	// ApplyInbound atomically bumps unread_count, reopens the thread and
	// advances last_message_at/preview without regressing on stale timestamps.
	ApplyInbound(ctx context.Context, id uuid.UUID, ts time.Time, preview string) error
	// ApplyOutbound advances last_message_at/preview only; unread_count is
	// untouched for agent-sent messages.
	ApplyOutbound(ctx context.Context, id uuid.UUID, ts time.Time, preview string) error
	ResetUnread(ctx context.Context, id uuid.UUID) error
}

type MessageRepository interface {
	// Insert persists a message; when external_id collides with an existing
	// row of the same conversation the insert is a no-op and Insert reports
	// false. This is the duplicate-delivery guard.
	Insert(ctx context.Context, m *message.Message) (bool, error)
	GetByID(ctx context.Context, id uuid.UUID) (message.Message, error)
	ListByConversation(ctx context.Context, conversationID uuid.UUID, page, limit int) ([]message.Message, int64, error)
	UpdateDelivery(ctx context.Context, id uuid.UUID, status string, externalID string) error
	MarkFailed(ctx context.Context, id uuid.UUID) error
}

// RepositorySet bundles the repositories that participate in a single
// ingestion transaction.
type RepositorySet struct {
	Conversations ConversationRepository
	Messages      MessageRepository
}

// UnitOfWork runs a function with a RepositorySet bound to one transaction.
// The upsert engine uses it so a message insert and the conversation counter
// update commit or roll back together.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(r RepositorySet) error) error
}

type gormUnitOfWork struct {
	db *gorm.DB
}

func NewUnitOfWork(db *gorm.DB) UnitOfWork {
	return &gormUnitOfWork{db: db}
}

func (u *gormUnitOfWork) Do(ctx context.Context, fn func(r RepositorySet) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(RepositorySet{
			Conversations: NewConversationRepository(tx),
			Messages:      NewMessageRepository(tx),
		})
	})
}
