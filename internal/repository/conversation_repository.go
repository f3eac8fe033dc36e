package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"snorq/internal/domain/conversation"
	snorq_errors "snorq/pkg/errors"
)

type PostgresConversationRepository struct {
	db *gorm.DB
}

func NewConversationRepository(db *gorm.DB) ConversationRepository {
	return &PostgresConversationRepository{db: db}
}

// FindOrCreate resolves the conversation identity for
// (platform_connection_id, external_id) with a single atomic statement.
// Two concurrent first deliveries for the same contact race on the unique
// index, not on a read-then-write window; the loser falls through to the
// reload and both end up on the same row.
func (r *PostgresConversationRepository) FindOrCreate(ctx context.Context, c *conversation.Conversation) error {
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "platform_connection_id"},
			{Name: "external_id"},
		},
		DoNothing: true,
	}).Create(c)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return r.db.WithContext(ctx).
			Where("platform_connection_id = ? AND external_id = ?", c.PlatformConnectionID, c.ExternalID).
			First(c).Error
	}
	return nil
}

func (r *PostgresConversationRepository) GetByID(ctx context.Context, id uuid.UUID) (conversation.Conversation, error) {
	var c conversation.Conversation
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&c).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return conversation.Conversation{}, snorq_errors.ErrNotFound
		}
		return conversation.Conversation{}, err
	}
	return c, nil
}

func (r *PostgresConversationRepository) ListByOrganization(ctx context.Context, organizationID uuid.UUID, page, limit int) ([]conversation.Conversation, int64, error) {
	var conversations []conversation.Conversation
	var total int64

	q := r.db.WithContext(ctx).
		Model(&conversation.Conversation{}).
		Where("organization_id = ?", organizationID)

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := q.
		Order("last_message_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&conversations).Error; err != nil {
		return nil, 0, err
	}

	return conversations, total, nil
}

// ApplyInbound folds one newly persisted inbound message into the
// conversation row. Everything happens inside a single UPDATE so two
// concurrent deliveries cannot lose an increment, and a stale event cannot
// drag last_message_at or the preview backwards: the preview only swaps when
// the event timestamp is at least as new as the stored one, and
// last_message_at is clamped with GREATEST.
func (r *PostgresConversationRepository) ApplyInbound(ctx context.Context, id uuid.UUID, ts time.Time, preview string) error {
	res := r.db.WithContext(ctx).
		Model(&conversation.Conversation{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"unread_count":         gorm.Expr("unread_count + 1"),
			"status":               conversation.StatusOpen,
			"last_message_preview": gorm.Expr("CASE WHEN last_message_at <= ? THEN ? ELSE last_message_preview END", ts, preview),
			"last_message_at":      gorm.Expr("GREATEST(last_message_at, ?)", ts),
			"updated_at":           time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return snorq_errors.ErrNotFound
	}
	return nil
}

func (r *PostgresConversationRepository) ApplyOutbound(ctx context.Context, id uuid.UUID, ts time.Time, preview string) error {
	res := r.db.WithContext(ctx).
		Model(&conversation.Conversation{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"last_message_preview": gorm.Expr("CASE WHEN last_message_at <= ? THEN ? ELSE last_message_preview END", ts, preview),
			"last_message_at":      gorm.Expr("GREATEST(last_message_at, ?)", ts),
			"updated_at":           time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return snorq_errors.ErrNotFound
	}
	return nil
}

func (r *PostgresConversationRepository) ResetUnread(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Model(&conversation.Conversation{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"unread_count": 0,
			"updated_at":   time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return snorq_errors.ErrNotFound
	}
	return nil
}
