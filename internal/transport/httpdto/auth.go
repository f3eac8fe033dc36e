package httpdto

// RegisterRequest is used for POST /auth/register
type RegisterRequest struct {
	Email            string `json:"email" binding:"required"`
	Password         string `json:"password" binding:"required"`
	DisplayName      string `json:"display_name" binding:"required"`
	OrganizationName string `json:"organization_name,omitempty"`
}

// LoginRequest is used for POST /auth/login
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// OrganizationView represents an organization in API responses
type OrganizationView struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
