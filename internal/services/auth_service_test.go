package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"snorq/config"
	"snorq/internal/domain/organization"
	"snorq/internal/domain/user"
	"snorq/internal/services"
	snorq_errors "snorq/pkg/errors"
)

type fakeUserRepo struct {
	users map[string]user.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]user.User)}
}

func (r *fakeUserRepo) Create(ctx context.Context, u *user.User) error {
	if _, exists := r.users[u.Email]; exists {
		return snorq_errors.ErrAlreadyExists
	}
	r.users[u.Email] = *u
	return nil
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id uuid.UUID) (user.User, error) {
	for _, u := range r.users {
		if u.ID == id {
			return u, nil
		}
	}
	return user.User{}, snorq_errors.ErrNotFound
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	u, ok := r.users[email]
	if !ok {
		return user.User{}, snorq_errors.ErrNotFound
	}
	return u, nil
}

type fakeOrgRepo struct {
	orgs    map[uuid.UUID]organization.Organization
	members map[uuid.UUID][]organization.Member
}

func newFakeOrgRepo() *fakeOrgRepo {
	return &fakeOrgRepo{
		orgs:    make(map[uuid.UUID]organization.Organization),
		members: make(map[uuid.UUID][]organization.Member),
	}
}

func (r *fakeOrgRepo) Create(ctx context.Context, o *organization.Organization) error {
	r.orgs[o.ID] = *o
	return nil
}

func (r *fakeOrgRepo) GetByID(ctx context.Context, id uuid.UUID) (organization.Organization, error) {
	o, ok := r.orgs[id]
	if !ok {
		return organization.Organization{}, snorq_errors.ErrNotFound
	}
	return o, nil
}

func (r *fakeOrgRepo) AddMember(ctx context.Context, m *organization.Member) error {
	r.members[m.OrganizationID] = append(r.members[m.OrganizationID], *m)
	return nil
}

func (r *fakeOrgRepo) IsMember(ctx context.Context, organizationID, userID uuid.UUID) (bool, error) {
	for _, m := range r.members[organizationID] {
		if m.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeOrgRepo) GetUserOrganizations(ctx context.Context, userID uuid.UUID) ([]organization.Organization, error) {
	var out []organization.Organization
	for orgID, members := range r.members {
		for _, m := range members {
			if m.UserID == userID {
				out = append(out, r.orgs[orgID])
			}
		}
	}
	return out, nil
}

func newAuthService() (*services.AuthService, *fakeUserRepo, *fakeOrgRepo) {
	users := newFakeUserRepo()
	orgs := newFakeOrgRepo()
	svc := services.NewAuthService(users, orgs, &config.Config{
		JWTSecret:    "test-secret",
		JWTExpiryMin: 60,
	})
	return svc, users, orgs
}

func TestRegisterCreatesOwnerAndOrganization(t *testing.T) {
	svc, users, orgs := newAuthService()
	ctx := context.Background()

	res, err := svc.Register(ctx, services.RegisterInput{
		Email:            "pat@example.com",
		Password:         "supersecret1",
		DisplayName:      "Pat",
		OrganizationName: "Pat's Shop",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.Equal(t, "pat@example.com", res.User.Email)
	require.NotEmpty(t, res.User.OrganizationID)

	u, err := users.GetByEmail(ctx, "pat@example.com")
	require.NoError(t, err)
	assert.NotEqual(t, "supersecret1", u.PasswordHash, "password must be hashed")

	userOrgs, err := orgs.GetUserOrganizations(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, userOrgs, 1)
	assert.Equal(t, "Pat's Shop", userOrgs[0].Name)
}

func TestRegisterRejectsWeakInput(t *testing.T) {
	svc, _, _ := newAuthService()

	_, err := svc.Register(context.Background(), services.RegisterInput{
		Email:       "pat@example.com",
		Password:    "short",
		DisplayName: "Pat",
	})
	assert.ErrorIs(t, err, snorq_errors.ErrInvalidInput)
}

func TestLoginRoundtrip(t *testing.T) {
	svc, _, _ := newAuthService()
	ctx := context.Background()

	_, err := svc.Register(ctx, services.RegisterInput{
		Email:       "pat@example.com",
		Password:    "supersecret1",
		DisplayName: "Pat",
	})
	require.NoError(t, err)

	res, err := svc.Login(ctx, services.LoginInput{Email: "pat@example.com", Password: "supersecret1"})
	require.NoError(t, err)

	claims, err := svc.ParseAccessToken(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, claims.UserID)
}

func TestLoginWrongPassword(t *testing.T) {
	svc, _, _ := newAuthService()
	ctx := context.Background()

	_, err := svc.Register(ctx, services.RegisterInput{
		Email:       "pat@example.com",
		Password:    "supersecret1",
		DisplayName: "Pat",
	})
	require.NoError(t, err)

	_, err = svc.Login(ctx, services.LoginInput{Email: "pat@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, snorq_errors.ErrUnauthorized)
}

func TestLoginUnknownUser(t *testing.T) {
	svc, _, _ := newAuthService()

	_, err := svc.Login(context.Background(), services.LoginInput{Email: "nobody@example.com", Password: "whatever"})
	assert.ErrorIs(t, err, snorq_errors.ErrUnauthorized)
}

func TestParseAccessTokenRejectsForgedToken(t *testing.T) {
	svc, _, _ := newAuthService()

	// Signed with a different secret.
	forged := jwt.NewWithClaims(jwt.SigningMethodHS256, services.AccessClaims{
		UserID: uuid.New().String(),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	tokenStr, err := forged.SignedString([]byte("other-secret"))
	require.NoError(t, err)

	_, err = svc.ParseAccessToken(tokenStr)
	assert.ErrorIs(t, err, snorq_errors.ErrUnauthorized)
}

func TestParseAccessTokenRejectsExpired(t *testing.T) {
	svc, _, _ := newAuthService()

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, services.AccessClaims{
		UserID: uuid.New().String(),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	})
	tokenStr, err := expired.SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = svc.ParseAccessToken(tokenStr)
	assert.ErrorIs(t, err, snorq_errors.ErrUnauthorized)
}

func TestParseAccessTokenRejectsEmpty(t *testing.T) {
	svc, _, _ := newAuthService()
	_, err := svc.ParseAccessToken("")
	assert.ErrorIs(t, err, snorq_errors.ErrUnauthorized)
}
