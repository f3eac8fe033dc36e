package connection

import (
	"time"

	"github.com/google/uuid"
)

// Platform identifies the external messaging platform of a connection.
type Platform string

const (
	PlatformFacebook  Platform = "FACEBOOK"
	PlatformInstagram Platform = "INSTAGRAM"
	PlatformWhatsApp  Platform = "WHATSAPP"
	PlatformTikTok    Platform = "TIKTOK"
)

// Status of a platform connection.
const (
	StatusActive       = "ACTIVE"
	StatusExpired      = "EXPIRED"
	StatusError        = "ERROR"
	StatusDisconnected = "DISCONNECTED"
)

// PlatformConnection represents the platform_connections table: one external
// account (e.g. a Facebook page) linked to an organization. The row owns the
// page access token; it is never hard-deleted, only marked DISCONNECTED.
//
// (organization_id, platform, platform_user_id) is unique; the webhook path
// attributes inbound events by (platform, platform_user_id).
type PlatformConnection struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	OrganizationID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:ux_connections_org_platform_account;index"`
	Platform       Platform  `gorm:"not null;uniqueIndex:ux_connections_org_platform_account;index:ix_connections_platform_account"`
	PlatformUserID string    `gorm:"not null;uniqueIndex:ux_connections_org_platform_account;index:ix_connections_platform_account"`
	PageName       string
	AccessToken    string `gorm:"not null"`
	Status         string `gorm:"not null;default:ACTIVE"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (PlatformConnection) TableName() string {
	return "platform_connections"
}
