package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"snorq/internal/domain/connection"
	"snorq/internal/platform"
	"snorq/internal/repository"
	snorq_errors "snorq/pkg/errors"
	"snorq/pkg/logger"
)

// ConnectService runs the page-connect flow: given a user access token
// produced by the OAuth dialog (an external collaborator), it lists the
// pages that user manages, stores one PlatformConnection per page, and
// subscribes each page to webhook delivery.
type ConnectService struct {
	orgs        repository.OrganizationRepository
	connections repository.ConnectionRepository
	platform    platform.Service
	log         *logger.Logger
}

func NewConnectService(orgs repository.OrganizationRepository, connections repository.ConnectionRepository, platformSvc platform.Service, log *logger.Logger) *ConnectService {
	return &ConnectService{orgs: orgs, connections: connections, platform: platformSvc, log: log}
}

func (s *ConnectService) requireMembership(ctx context.Context, organizationID, userID uuid.UUID) error {
	ok, err := s.orgs.IsMember(ctx, organizationID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return snorq_errors.ErrForbidden
	}
	return nil
}

// ConnectPages stores connections for every page the token grants. Platform
// errors surface to the caller; a page whose webhook subscription fails is
// stored with status ERROR rather than dropped, so the user can see and
// retry it.
func (s *ConnectService) ConnectPages(ctx context.Context, organizationID, userID uuid.UUID, plat connection.Platform, userAccessToken string) ([]connection.PlatformConnection, error) {
	if err := s.requireMembership(ctx, organizationID, userID); err != nil {
		return nil, err
	}

	pages, err := s.platform.ListPages(ctx, userAccessToken)
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}

	var result []connection.PlatformConnection
	for _, page := range pages {
		conn := connection.PlatformConnection{
			ID:             uuid.New(),
			OrganizationID: organizationID,
			Platform:       plat,
			PlatformUserID: page.ID,
			PageName:       page.Name,
			AccessToken:    page.AccessToken,
			Status:         connection.StatusActive,
			UpdatedAt:      time.Now(),
		}
		if err := s.connections.Upsert(ctx, &conn); err != nil {
			return result, fmt.Errorf("store connection for page %s: %w", page.ID, err)
		}

		if err := s.platform.SubscribePage(ctx, conn); err != nil {
			s.log.Errorf("subscribe page %s: %v", page.ID, err)
			if statusErr := s.connections.UpdateStatus(ctx, conn.ID, connection.StatusError); statusErr == nil {
				conn.Status = connection.StatusError
			}
		}
		result = append(result, conn)
	}
	return result, nil
}

func (s *ConnectService) ListConnections(ctx context.Context, organizationID, userID uuid.UUID) ([]connection.PlatformConnection, error) {
	if err := s.requireMembership(ctx, organizationID, userID); err != nil {
		return nil, err
	}
	return s.connections.ListByOrganization(ctx, organizationID)
}

// Disconnect marks a connection DISCONNECTED. The row survives so history
// stays attributable; only an explicit re-connect revives it.
func (s *ConnectService) Disconnect(ctx context.Context, id, userID uuid.UUID) error {
	conn, err := s.connections.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.requireMembership(ctx, conn.OrganizationID, userID); err != nil {
		return err
	}
	return s.connections.UpdateStatus(ctx, id, connection.StatusDisconnected)
}
