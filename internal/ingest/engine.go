package ingest

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"snorq/internal/domain/connection"
	"snorq/internal/domain/conversation"
	"snorq/internal/domain/message"
	"snorq/internal/events"
	"snorq/internal/platform"
	"snorq/internal/repository"
	"snorq/internal/transport/httpdto"
	snorq_errors "snorq/pkg/errors"
	"snorq/pkg/logger"
)

// graphCodeInvalidToken is Meta's error code for an expired or revoked
// page access token.
const graphCodeInvalidToken = 190

// Emitter is the fan-out trigger. The engine fires it after a successful
// commit; implementations must never block or fail the caller.
type Emitter interface {
	EmitToOrganization(ctx context.Context, organizationID uuid.UUID, event string, payload interface{})
}

// InboundEvent is one canonical message extracted from a webhook delivery.
type InboundEvent struct {
	Platform  connection.Platform
	PageID    string
	SenderID  string
	MessageID string
	Text      string
	Timestamp time.Time
}

// ApplyInput carries one message into the upsert path. The webhook path sets
// ThreadExternalID to the sender id; the sync path sets it to the remote
// contact's id, so both converge on the same conversation row.
type ApplyInput struct {
	ThreadExternalID  string
	ContactExternalID string
	ContactName       string
	Direction         string
	Text              string
	ExternalMessageID string
	Timestamp         time.Time
}

// ApplyResult reports what one Apply call did. Created is false when the
// message was a duplicate delivery and nothing changed.
type ApplyResult struct {
	Conversation conversation.Conversation
	Message      message.Message
	Created      bool
}

// Engine is the conversation upsert engine: it maps canonical events onto
// conversation/message state. Correctness under concurrent duplicate
// deliveries comes from the store's unique constraints and atomic updates,
// not from in-process locking; the engine holds no lock across I/O.
type Engine struct {
	uow           repository.UnitOfWork
	connections   repository.ConnectionRepository
	conversations repository.ConversationRepository
	messages      repository.MessageRepository
	platform      platform.Service
	emitter       Emitter
	log           *logger.Logger
}

func NewEngine(
	uow repository.UnitOfWork,
	connections repository.ConnectionRepository,
	conversations repository.ConversationRepository,
	messages repository.MessageRepository,
	platformSvc platform.Service,
	emitter Emitter,
	log *logger.Logger,
) *Engine {
	return &Engine{
		uow:           uow,
		connections:   connections,
		conversations: conversations,
		messages:      messages,
		platform:      platformSvc,
		emitter:       emitter,
		log:           log,
	}
}

// ProcessInbound attributes one webhook event to a connection and applies it.
// An event whose page id resolves to no connection is structurally
// undeliverable: it returns ErrUnattributable and touches nothing.
func (e *Engine) ProcessInbound(ctx context.Context, ev InboundEvent) error {
	conn, err := e.connections.Resolve(ctx, ev.Platform, ev.PageID)
	if err != nil {
		if errors.Is(err, snorq_errors.ErrNotFound) {
			return snorq_errors.ErrUnattributable
		}
		return err
	}

	_, err = e.Apply(ctx, conn, ApplyInput{
		ThreadExternalID:  ev.SenderID,
		ContactExternalID: ev.SenderID,
		Direction:         message.DirectionInbound,
		Text:              ev.Text,
		ExternalMessageID: ev.MessageID,
		Timestamp:         ev.Timestamp,
	})
	return err
}

// ProcessBatch applies each event of one webhook delivery independently.
// A failing event is logged and skipped; its siblings still run. The caller
// acknowledges the delivery regardless, since the platform retries or
// disables endpoints that report errors.
func (e *Engine) ProcessBatch(ctx context.Context, events []InboundEvent) {
	for _, ev := range events {
		if err := e.ProcessInbound(ctx, ev); err != nil {
			if errors.Is(err, snorq_errors.ErrUnattributable) {
				e.log.Warnf("dropping event %s: no connection for %s page %s", ev.MessageID, ev.Platform, ev.PageID)
				continue
			}
			e.log.Errorf("processing event %s failed: %v", ev.MessageID, err)
		}
	}
}

// Apply runs the upsert state machine for one message inside a single
// transaction: find-or-create the conversation on its identity key, insert
// the message guarded by the (conversation_id, external_id) constraint, and
// fold counters in only when the insert actually happened, so a duplicate
// mid can neither add a row nor double-increment unread_count. The fan-out
// trigger fires after commit.
func (e *Engine) Apply(ctx context.Context, conn connection.PlatformConnection, in ApplyInput) (ApplyResult, error) {
	var result ApplyResult

	err := e.uow.Do(ctx, func(r repository.RepositorySet) error {
		conv := conversation.Conversation{
			ID:                   uuid.New(),
			PlatformConnectionID: conn.ID,
			OrganizationID:       conn.OrganizationID,
			Platform:             conn.Platform,
			ExternalID:           in.ThreadExternalID,
			ContactExternalID:    in.ContactExternalID,
			ContactName:          contactNameOrDefault(in.ContactName, in.ContactExternalID),
			Status:               conversation.StatusOpen,
			LastMessageAt:        time.Unix(0, 0).UTC(),
		}
		if err := r.Conversations.FindOrCreate(ctx, &conv); err != nil {
			return fmt.Errorf("find or create conversation: %w", err)
		}

		m := message.Message{
			ID:                uuid.New(),
			ConversationID:    conv.ID,
			Direction:         in.Direction,
			Content:           in.Text,
			ExternalID:        toNullString(in.ExternalMessageID),
			ContentType:       message.ContentTypeText,
			Status:            message.StatusDelivered,
			PlatformTimestamp: in.Timestamp,
		}
		created, err := r.Messages.Insert(ctx, &m)
		if err != nil {
			return fmt.Errorf("insert message: %w", err)
		}

		if created {
			if in.Direction == message.DirectionInbound {
				err = r.Conversations.ApplyInbound(ctx, conv.ID, in.Timestamp, in.Text)
			} else {
				err = r.Conversations.ApplyOutbound(ctx, conv.ID, in.Timestamp, in.Text)
			}
			if err != nil {
				return fmt.Errorf("apply conversation update: %w", err)
			}
		}

		updated, err := r.Conversations.GetByID(ctx, conv.ID)
		if err != nil {
			return err
		}
		result = ApplyResult{Conversation: updated, Message: m, Created: created}
		return nil
	})
	if err != nil {
		return ApplyResult{}, err
	}

	if result.Created {
		e.emitNewMessage(ctx, result)
	}
	return result, nil
}

// RecordOutbound persists an agent reply optimistically, sends it through the
// platform, and settles the row to DELIVERED (stamping the platform's mid) or
// FAILED. A platform failure comes back to the caller as a structured error;
// the message row is never left dangling in SENT.
func (e *Engine) RecordOutbound(ctx context.Context, conversationID uuid.UUID, content string) (message.Message, error) {
	conv, err := e.conversations.GetByID(ctx, conversationID)
	if err != nil {
		return message.Message{}, err
	}

	conn, err := e.connections.GetByID(ctx, conv.PlatformConnectionID)
	if err != nil {
		return message.Message{}, err
	}
	if conn.Status != connection.StatusActive {
		return message.Message{}, snorq_errors.ErrConnectionInactive
	}

	now := time.Now().UTC()
	m := message.Message{
		ID:                uuid.New(),
		ConversationID:    conv.ID,
		Direction:         message.DirectionOutbound,
		Content:           content,
		ContentType:       message.ContentTypeText,
		Status:            message.StatusSent,
		PlatformTimestamp: now,
	}
	if _, err := e.messages.Insert(ctx, &m); err != nil {
		return message.Message{}, fmt.Errorf("persist outbound message: %w", err)
	}

	externalID, err := e.platform.SendMessage(ctx, conn, conv.ContactExternalID, content)
	if err != nil {
		if markErr := e.messages.MarkFailed(ctx, m.ID); markErr != nil {
			e.log.Errorf("marking message %s failed: %v", m.ID, markErr)
		}
		var graphErr *platform.GraphError
		if errors.As(err, &graphErr) && graphErr.Code == graphCodeInvalidToken {
			if statusErr := e.connections.UpdateStatus(ctx, conn.ID, connection.StatusExpired); statusErr != nil {
				e.log.Errorf("marking connection %s expired: %v", conn.ID, statusErr)
			}
		}
		m.Status = message.StatusFailed
		return m, fmt.Errorf("platform send: %w", err)
	}

	if err := e.messages.UpdateDelivery(ctx, m.ID, message.StatusDelivered, externalID); err != nil {
		return m, err
	}
	m.Status = message.StatusDelivered
	m.ExternalID = toNullString(externalID)

	if err := e.conversations.ApplyOutbound(ctx, conv.ID, now, content); err != nil {
		return m, err
	}

	updated, err := e.conversations.GetByID(ctx, conv.ID)
	if err == nil {
		e.emitNewMessage(ctx, ApplyResult{Conversation: updated, Message: m, Created: true})
	}
	return m, nil
}

func (e *Engine) emitNewMessage(ctx context.Context, result ApplyResult) {
	if e.emitter == nil {
		return
	}
	e.emitter.EmitToOrganization(ctx, result.Conversation.OrganizationID, events.EventNewMessage, httpdto.NewMessageEvent{
		ConversationID: result.Conversation.ID.String(),
		Message:        httpdto.ToMessageView(result.Message),
		Conversation:   httpdto.ToConversationView(result.Conversation),
	})
}

// contactNameOrDefault truncates the external id into a readable placeholder
// when the platform gave no profile name.
func contactNameOrDefault(name, externalID string) string {
	if name != "" {
		return name
	}
	id := externalID
	if len(id) > 8 {
		id = id[:8]
	}
	return "Guest " + id
}

func toNullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
