package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"snorq/internal/domain/connection"
	snorq_errors "snorq/pkg/errors"
)

type PostgresConnectionRepository struct {
	db *gorm.DB
}

func NewConnectionRepository(db *gorm.DB) ConnectionRepository {
	return &PostgresConnectionRepository{db: db}
}

func (r *PostgresConnectionRepository) Resolve(ctx context.Context, platform connection.Platform, platformUserID string) (connection.PlatformConnection, error) {
	var c connection.PlatformConnection
	err := r.db.WithContext(ctx).
		Where("platform = ? AND platform_user_id = ? AND status <> ?",
			platform, platformUserID, connection.StatusDisconnected).
		First(&c).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return connection.PlatformConnection{}, snorq_errors.ErrNotFound
		}
		return connection.PlatformConnection{}, err
	}
	return c, nil
}

func (r *PostgresConnectionRepository) GetByID(ctx context.Context, id uuid.UUID) (connection.PlatformConnection, error) {
	var c connection.PlatformConnection
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&c).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return connection.PlatformConnection{}, snorq_errors.ErrNotFound
		}
		return connection.PlatformConnection{}, err
	}
	return c, nil
}

func (r *PostgresConnectionRepository) ListByOrganization(ctx context.Context, organizationID uuid.UUID) ([]connection.PlatformConnection, error) {
	var conns []connection.PlatformConnection
	err := r.db.WithContext(ctx).
		Where("organization_id = ?", organizationID).
		Order("created_at ASC").
		Find(&conns).Error
	if err != nil {
		return nil, err
	}
	return conns, nil
}

// Upsert creates the connection or, when the same page was connected before,
// refreshes its token, name and status in place. Reconnecting a DISCONNECTED
// page revives the same row.
func (r *PostgresConnectionRepository) Upsert(ctx context.Context, c *connection.PlatformConnection) error {
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "organization_id"},
			{Name: "platform"},
			{Name: "platform_user_id"},
		},
		DoUpdates: clause.AssignmentColumns([]string{"access_token", "page_name", "status", "updated_at"}),
	}).Create(c)
	if res.Error != nil {
		return res.Error
	}
	// The insert path does not return the surviving row id on conflict, so
	// reload by the natural key.
	return r.db.WithContext(ctx).
		Where("organization_id = ? AND platform = ? AND platform_user_id = ?",
			c.OrganizationID, c.Platform, c.PlatformUserID).
		First(c).Error
}

func (r *PostgresConnectionRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	res := r.db.WithContext(ctx).
		Model(&connection.PlatformConnection{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return snorq_errors.ErrNotFound
	}
	return nil
}
