package organization

import (
	"time"

	"github.com/google/uuid"
)

// Organization represents the organizations table. It is the tenant root:
// every connection, conversation and realtime room hangs off one org.
type Organization struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name      string    `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Member represents the organization_members table
type Member struct {
	OrganizationID uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	Role           string    `gorm:"not null;default:MEMBER"`
	JoinedAt       time.Time
}

const (
	RoleOwner  = "OWNER"
	RoleMember = "MEMBER"
)

func (Organization) TableName() string {
	return "organizations"
}

func (Member) TableName() string {
	return "organization_members"
}
