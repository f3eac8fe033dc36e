package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"snorq/internal/domain/message"
	snorq_errors "snorq/pkg/errors"
)

type PostgresMessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &PostgresMessageRepository{db: db}
}

// Insert is the atomic check-and-insert behind at-least-once webhook
// delivery: ON CONFLICT DO NOTHING on (conversation_id, external_id), so a
// redelivered mid inserts zero rows and the caller learns via the false
// return that the event was already applied. Messages without an external id
// (unacknowledged outbound) never hit the index.
func (r *PostgresMessageRepository) Insert(ctx context.Context, m *message.Message) (bool, error) {
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "conversation_id"},
			{Name: "external_id"},
		},
		DoNothing: true,
	}).Create(m)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *PostgresMessageRepository) GetByID(ctx context.Context, id uuid.UUID) (message.Message, error) {
	var m message.Message
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return message.Message{}, snorq_errors.ErrNotFound
		}
		return message.Message{}, err
	}
	return m, nil
}

func (r *PostgresMessageRepository) ListByConversation(ctx context.Context, conversationID uuid.UUID, page, limit int) ([]message.Message, int64, error) {
	var messages []message.Message
	var total int64

	q := r.db.WithContext(ctx).
		Model(&message.Message{}).
		Where("conversation_id = ?", conversationID)

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := q.
		Order("platform_timestamp DESC, created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&messages).Error; err != nil {
		return nil, 0, err
	}

	return messages, total, nil
}

func (r *PostgresMessageRepository) UpdateDelivery(ctx context.Context, id uuid.UUID, status string, externalID string) error {
	updates := map[string]interface{}{
		"status": status,
	}
	if externalID != "" {
		updates["external_id"] = sql.NullString{String: externalID, Valid: true}
	}
	res := r.db.WithContext(ctx).
		Model(&message.Message{}).
		Where("id = ?", id).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return snorq_errors.ErrNotFound
	}
	return nil
}

func (r *PostgresMessageRepository) MarkFailed(ctx context.Context, id uuid.UUID) error {
	return r.UpdateDelivery(ctx, id, message.StatusFailed, "")
}
