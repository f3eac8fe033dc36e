package services

import (
	"context"

	"github.com/google/uuid"

	"snorq/internal/domain/conversation"
	"snorq/internal/domain/message"
	"snorq/internal/ingest"
	"snorq/internal/repository"
	"snorq/internal/syncer"
	snorq_errors "snorq/pkg/errors"
)

// InboxService is the REST-facing surface over the inbox: tenant-scoped
// listing, outbound sends, read-state and manual sync. Every operation
// requires the acting user to be a member of the owning organization.
type InboxService struct {
	orgs          repository.OrganizationRepository
	connections   repository.ConnectionRepository
	conversations repository.ConversationRepository
	messages      repository.MessageRepository
	engine        *ingest.Engine
	reconciler    *syncer.Reconciler
}

func NewInboxService(
	orgs repository.OrganizationRepository,
	connections repository.ConnectionRepository,
	conversations repository.ConversationRepository,
	messages repository.MessageRepository,
	engine *ingest.Engine,
	reconciler *syncer.Reconciler,
) *InboxService {
	return &InboxService{
		orgs:          orgs,
		connections:   connections,
		conversations: conversations,
		messages:      messages,
		engine:        engine,
		reconciler:    reconciler,
	}
}

func (s *InboxService) requireMembership(ctx context.Context, organizationID, userID uuid.UUID) error {
	ok, err := s.orgs.IsMember(ctx, organizationID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return snorq_errors.ErrForbidden
	}
	return nil
}

func (s *InboxService) ListConversations(ctx context.Context, organizationID, userID uuid.UUID, page, limit int) ([]conversation.Conversation, int64, error) {
	if err := s.requireMembership(ctx, organizationID, userID); err != nil {
		return nil, 0, err
	}
	if page <= 0 {
		page = 1
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.conversations.ListByOrganization(ctx, organizationID, page, limit)
}

func (s *InboxService) ListMessages(ctx context.Context, conversationID, userID uuid.UUID, page, limit int) ([]message.Message, int64, error) {
	conv, err := s.conversations.GetByID(ctx, conversationID)
	if err != nil {
		return nil, 0, err
	}
	if err := s.requireMembership(ctx, conv.OrganizationID, userID); err != nil {
		return nil, 0, err
	}
	if page <= 0 {
		page = 1
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.messages.ListByConversation(ctx, conversationID, page, limit)
}

// SendMessage records an agent reply through the upsert engine's outbound
// path. Platform failures propagate to the caller as structured errors so
// the UI can revert its optimistic state.
func (s *InboxService) SendMessage(ctx context.Context, conversationID, userID uuid.UUID, content string) (message.Message, error) {
	if content == "" {
		return message.Message{}, snorq_errors.ErrInvalidInput
	}
	conv, err := s.conversations.GetByID(ctx, conversationID)
	if err != nil {
		return message.Message{}, err
	}
	if err := s.requireMembership(ctx, conv.OrganizationID, userID); err != nil {
		return message.Message{}, err
	}
	return s.engine.RecordOutbound(ctx, conversationID, content)
}

// MarkRead resets unread_count with a single atomic update; it never races
// with the ingestion path's increments.
func (s *InboxService) MarkRead(ctx context.Context, conversationID, userID uuid.UUID) error {
	conv, err := s.conversations.GetByID(ctx, conversationID)
	if err != nil {
		return err
	}
	if err := s.requireMembership(ctx, conv.OrganizationID, userID); err != nil {
		return err
	}
	return s.conversations.ResetUnread(ctx, conversationID)
}

// TriggerSync runs the pull-based reconciler for one connection. The report
// is returned even when the run failed partway, together with the error, so
// the caller can distinguish "partial" from "up to date".
func (s *InboxService) TriggerSync(ctx context.Context, connectionID, userID uuid.UUID) (syncer.Report, error) {
	conn, err := s.connections.GetByID(ctx, connectionID)
	if err != nil {
		return syncer.Report{}, err
	}
	if err := s.requireMembership(ctx, conn.OrganizationID, userID); err != nil {
		return syncer.Report{}, err
	}
	return s.reconciler.SyncConversations(ctx, conn)
}
