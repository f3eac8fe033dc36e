package message

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Direction of a message relative to the inbox.
const (
	DirectionInbound  = "INBOUND"
	DirectionOutbound = "OUTBOUND"
)

// Message status values. Inbound messages are DELIVERED on arrival; outbound
// messages move SENT -> DELIVERED/FAILED based on the platform response.
const (
	StatusSent      = "SENT"
	StatusDelivered = "DELIVERED"
	StatusFailed    = "FAILED"
)

// Content types.
const (
	ContentTypeText = "TEXT"
)

// Message represents the messages table.
//
// external_id is the platform message id (mid). The unique index on
// (conversation_id, external_id) is the duplicate-delivery guard: the same
// mid delivered twice inserts at most one row. NULL external ids (outbound
// messages not yet acknowledged by the platform) never conflict.
type Message struct {
	ID                uuid.UUID      `gorm:"type:uuid;primaryKey"`
	ConversationID    uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:ux_messages_conversation_external;index"`
	Direction         string         `gorm:"not null"`
	Content           string         `gorm:"not null"`
	ExternalID        sql.NullString `gorm:"uniqueIndex:ux_messages_conversation_external"`
	ContentType       string         `gorm:"not null;default:TEXT"`
	Status            string         `gorm:"not null"`
	PlatformTimestamp time.Time
	CreatedAt         time.Time
}

func (Message) TableName() string {
	return "messages"
}
