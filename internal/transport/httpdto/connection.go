package httpdto

import (
	"time"

	"snorq/internal/domain/connection"
)

// ConnectPagesRequest is used for POST /organizations/:id/connections
type ConnectPagesRequest struct {
	UserAccessToken string `json:"user_access_token" binding:"required"`
	Platform        string `json:"platform,omitempty"`
}

// ConnectionView represents a platform connection in API responses. The
// access token never leaves the server.
type ConnectionView struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organization_id"`
	Platform       string    `json:"platform"`
	PlatformUserID string    `json:"platform_user_id"`
	PageName       string    `json:"page_name"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func ToConnectionView(c connection.PlatformConnection) ConnectionView {
	return ConnectionView{
		ID:             c.ID.String(),
		OrganizationID: c.OrganizationID.String(),
		Platform:       string(c.Platform),
		PlatformUserID: c.PlatformUserID,
		PageName:       c.PageName,
		Status:         c.Status,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
	}
}

func ToConnectionViews(items []connection.PlatformConnection) []ConnectionView {
	out := make([]ConnectionView, 0, len(items))
	for _, c := range items {
		out = append(out, ToConnectionView(c))
	}
	return out
}
