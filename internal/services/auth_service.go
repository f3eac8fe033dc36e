package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"snorq/config"
	"snorq/internal/domain/organization"
	"snorq/internal/domain/user"
	"snorq/internal/repository"
	snorq_errors "snorq/pkg/errors"
)

type AuthService struct {
	userRepo  repository.UserRepository
	orgRepo   repository.OrganizationRepository
	jwtSecret []byte
	accessTTL time.Duration
}

func NewAuthService(userRepo repository.UserRepository, orgRepo repository.OrganizationRepository, cfg *config.Config) *AuthService {
	return &AuthService{
		userRepo:  userRepo,
		orgRepo:   orgRepo,
		jwtSecret: []byte(cfg.JWTSecret),
		accessTTL: time.Duration(cfg.JWTExpiryMin) * time.Minute,
	}
}

type RegisterInput struct {
	Email            string
	Password         string
	DisplayName      string
	OrganizationName string
}

type LoginInput struct {
	Email    string
	Password string
}

type AuthResponse struct {
	AccessToken string   `json:"access_token"`
	ExpiresIn   int64    `json:"expires_in"`
	User        UserInfo `json:"user"`
}

type UserInfo struct {
	ID             string `json:"id"`
	DisplayName    string `json:"display_name"`
	Email          string `json:"email"`
	OrganizationID string `json:"organization_id,omitempty"`
}

type AccessClaims struct {
	UserID string `json:"sub"`
	jwt.RegisteredClaims
}

// Register creates the user together with their first organization; the
// registering user becomes its owner.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (AuthResponse, error) {
	if in.Email == "" || len(in.Password) < 8 || in.DisplayName == "" {
		return AuthResponse{}, snorq_errors.ErrInvalidInput
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return AuthResponse{}, err
	}

	newUser := &user.User{
		ID:           uuid.New(),
		Email:        strings.ToLower(strings.TrimSpace(in.Email)),
		PasswordHash: string(hash),
		DisplayName:  in.DisplayName,
	}
	if err := s.userRepo.Create(ctx, newUser); err != nil {
		return AuthResponse{}, err
	}

	orgName := in.OrganizationName
	if orgName == "" {
		orgName = in.DisplayName
	}
	org := &organization.Organization{
		ID:   uuid.New(),
		Name: orgName,
	}
	if err := s.orgRepo.Create(ctx, org); err != nil {
		return AuthResponse{}, err
	}
	if err := s.orgRepo.AddMember(ctx, &organization.Member{
		OrganizationID: org.ID,
		UserID:         newUser.ID,
		Role:           organization.RoleOwner,
		JoinedAt:       time.Now(),
	}); err != nil {
		return AuthResponse{}, err
	}

	return s.issueResponse(*newUser, org.ID.String())
}

func (s *AuthService) Login(ctx context.Context, in LoginInput) (AuthResponse, error) {
	u, err := s.userRepo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(in.Email)))
	if err != nil {
		if errors.Is(err, snorq_errors.ErrNotFound) {
			return AuthResponse{}, snorq_errors.ErrUnauthorized
		}
		return AuthResponse{}, err
	}

	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(in.Password)) != nil {
		return AuthResponse{}, snorq_errors.ErrUnauthorized
	}

	orgID := ""
	if orgs, err := s.orgRepo.GetUserOrganizations(ctx, u.ID); err == nil && len(orgs) > 0 {
		orgID = orgs[0].ID.String()
	}
	return s.issueResponse(u, orgID)
}

func (s *AuthService) issueResponse(u user.User, orgID string) (AuthResponse, error) {
	token, err := s.IssueAccessToken(u.ID)
	if err != nil {
		return AuthResponse{}, err
	}
	return AuthResponse{
		AccessToken: token,
		ExpiresIn:   int64(s.accessTTL.Seconds()),
		User: UserInfo{
			ID:             u.ID.String(),
			DisplayName:    u.DisplayName,
			Email:          u.Email,
			OrganizationID: orgID,
		},
	}, nil
}

func (s *AuthService) IssueAccessToken(userID uuid.UUID) (string, error) {
	now := time.Now()
	claims := AccessClaims{
		UserID: userID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

func (s *AuthService) ParseAccessToken(tokenStr string) (AccessClaims, error) {
	if tokenStr == "" {
		return AccessClaims{}, snorq_errors.ErrUnauthorized
	}

	var claims AccessClaims
	token, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, snorq_errors.ErrUnauthorized
		}
		return s.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return AccessClaims{}, snorq_errors.ErrUnauthorized
	}
	if _, err := uuid.Parse(claims.UserID); err != nil {
		return AccessClaims{}, snorq_errors.ErrUnauthorized
	}
	return claims, nil
}

// HTTPStatus maps service errors to response status codes.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, snorq_errors.ErrInvalidInput):
		return 400
	case errors.Is(err, snorq_errors.ErrUnauthorized):
		return 401
	case errors.Is(err, snorq_errors.ErrForbidden):
		return 403
	case errors.Is(err, snorq_errors.ErrNotFound):
		return 404
	case errors.Is(err, snorq_errors.ErrAlreadyExists), errors.Is(err, snorq_errors.ErrConflict), errors.Is(err, snorq_errors.ErrConnectionInactive):
		return 409
	case errors.Is(err, snorq_errors.ErrRateLimited):
		return 429
	case errors.Is(err, snorq_errors.ErrUpstream):
		return 502
	default:
		return 500
	}
}
