package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"snorq/internal/domain/organization"
	snorq_errors "snorq/pkg/errors"
)

type PostgresOrganizationRepository struct {
	db *gorm.DB
}

func NewOrganizationRepository(db *gorm.DB) OrganizationRepository {
	return &PostgresOrganizationRepository{db: db}
}

func (r *PostgresOrganizationRepository) Create(ctx context.Context, o *organization.Organization) error {
	res := r.db.WithContext(ctx).Create(o)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return snorq_errors.ErrAlreadyExists
		}
		return res.Error
	}
	return nil
}

func (r *PostgresOrganizationRepository) GetByID(ctx context.Context, id uuid.UUID) (organization.Organization, error) {
	var o organization.Organization
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&o).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return organization.Organization{}, snorq_errors.ErrNotFound
		}
		return organization.Organization{}, err
	}
	return o, nil
}

func (r *PostgresOrganizationRepository) AddMember(ctx context.Context, m *organization.Member) error {
	res := r.db.WithContext(ctx).Create(m)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return snorq_errors.ErrAlreadyExists
		}
		return res.Error
	}
	return nil
}

func (r *PostgresOrganizationRepository) IsMember(ctx context.Context, organizationID, userID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&organization.Member{}).
		Where("organization_id = ? AND user_id = ?", organizationID, userID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *PostgresOrganizationRepository) GetUserOrganizations(ctx context.Context, userID uuid.UUID) ([]organization.Organization, error) {
	var orgs []organization.Organization

	subQuery := r.db.Model(&organization.Member{}).
		Select("organization_id").
		Where("user_id = ?", userID)

	err := r.db.WithContext(ctx).
		Where("id IN (?)", subQuery).
		Order("created_at ASC").
		Find(&orgs).Error
	if err != nil {
		return nil, err
	}
	return orgs, nil
}
