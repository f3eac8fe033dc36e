package conversation

import (
	"time"

	"github.com/google/uuid"

	"snorq/internal/domain/connection"
)

// Conversation status values.
const (
	StatusOpen   = "OPEN"
	StatusClosed = "CLOSED"
)

// Conversation represents the conversations table: one thread between a
// platform contact and a connected account.
//
// (platform_connection_id, external_id) is the upsert identity: a webhook
// event and a synced thread for the same contact converge to one row.
// unread_count is only ever moved by atomic SQL updates, never read-modify-
// write, because the ingestion path and the agent read-state path are
// independent writers.
type Conversation struct {
	ID                   uuid.UUID           `gorm:"type:uuid;primaryKey"`
	PlatformConnectionID uuid.UUID           `gorm:"type:uuid;not null;uniqueIndex:ux_conversations_connection_external"`
	OrganizationID       uuid.UUID           `gorm:"type:uuid;not null;index:ix_conversations_org_last_message"`
	Platform             connection.Platform `gorm:"not null"`
	ExternalID           string              `gorm:"not null;uniqueIndex:ux_conversations_connection_external"`
	ContactExternalID    string              `gorm:"not null"`
	ContactName          string
	Status               string `gorm:"not null;default:OPEN"`
	UnreadCount          int    `gorm:"not null;default:0"`
	LastMessageAt        time.Time
	LastMessagePreview   string
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

func (Conversation) TableName() string {
	return "conversations"
}
