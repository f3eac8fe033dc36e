package services

import (
	"context"

	"github.com/google/uuid"

	"snorq/internal/domain/organization"
	"snorq/internal/repository"
)

type OrganizationService struct {
	orgRepo repository.OrganizationRepository
}

func NewOrganizationService(orgRepo repository.OrganizationRepository) *OrganizationService {
	return &OrganizationService{orgRepo: orgRepo}
}

func (s *OrganizationService) ListForUser(ctx context.Context, userID uuid.UUID) ([]organization.Organization, error) {
	return s.orgRepo.GetUserOrganizations(ctx, userID)
}
