// Package memory provides in-memory repository implementations mirroring the
// Postgres semantics: upsert identity keys, duplicate-insert guards and
// monotonic conversation counters. Used by engine and reconciler tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"snorq/internal/domain/connection"
	"snorq/internal/domain/conversation"
	"snorq/internal/domain/message"
	"snorq/internal/repository"
	snorq_errors "snorq/pkg/errors"
)

// Store holds all three repositories over shared maps. A single mutex stands
// in for the database's transaction isolation; the tests are sequential.
type Store struct {
	mu            sync.Mutex
	connections   map[uuid.UUID]connection.PlatformConnection
	conversations map[uuid.UUID]conversation.Conversation
	messages      map[uuid.UUID]message.Message
}

func NewStore() *Store {
	return &Store{
		connections:   make(map[uuid.UUID]connection.PlatformConnection),
		conversations: make(map[uuid.UUID]conversation.Conversation),
		messages:      make(map[uuid.UUID]message.Message),
	}
}

func (s *Store) Connections() repository.ConnectionRepository {
	return &connectionStore{s}
}

func (s *Store) Conversations() repository.ConversationRepository {
	return &conversationStore{s}
}

func (s *Store) Messages() repository.MessageRepository {
	return &messageStore{s}
}

// UnitOfWork returns a pass-through unit of work over the same store.
func (s *Store) UnitOfWork() repository.UnitOfWork {
	return &unitOfWork{s}
}

type unitOfWork struct {
	s *Store
}

func (u *unitOfWork) Do(ctx context.Context, fn func(r repository.RepositorySet) error) error {
	return fn(repository.RepositorySet{
		Conversations: u.s.Conversations(),
		Messages:      u.s.Messages(),
	})
}

// AddConnection seeds a connection.
func (s *Store) AddConnection(c connection.PlatformConnection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connections[c.ID] = c
}

// ConversationCount reports how many conversation rows exist.
func (s *Store) ConversationCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conversations)
}

// MessageCount reports how many message rows exist.
func (s *Store) MessageCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

type connectionStore struct {
	s *Store
}

func (r *connectionStore) Resolve(ctx context.Context, platform connection.Platform, platformUserID string) (connection.PlatformConnection, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, c := range r.s.connections {
		if c.Platform == platform && c.PlatformUserID == platformUserID && c.Status != connection.StatusDisconnected {
			return c, nil
		}
	}
	return connection.PlatformConnection{}, snorq_errors.ErrNotFound
}

func (r *connectionStore) GetByID(ctx context.Context, id uuid.UUID) (connection.PlatformConnection, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.connections[id]
	if !ok {
		return connection.PlatformConnection{}, snorq_errors.ErrNotFound
	}
	return c, nil
}

func (r *connectionStore) ListByOrganization(ctx context.Context, organizationID uuid.UUID) ([]connection.PlatformConnection, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []connection.PlatformConnection
	for _, c := range r.s.connections {
		if c.OrganizationID == organizationID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *connectionStore) Upsert(ctx context.Context, c *connection.PlatformConnection) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, existing := range r.s.connections {
		if existing.OrganizationID == c.OrganizationID && existing.Platform == c.Platform && existing.PlatformUserID == c.PlatformUserID {
			existing.AccessToken = c.AccessToken
			existing.PageName = c.PageName
			existing.Status = c.Status
			existing.UpdatedAt = c.UpdatedAt
			r.s.connections[id] = existing
			*c = existing
			return nil
		}
	}
	r.s.connections[c.ID] = *c
	return nil
}

func (r *connectionStore) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.connections[id]
	if !ok {
		return snorq_errors.ErrNotFound
	}
	c.Status = status
	r.s.connections[id] = c
	return nil
}

type conversationStore struct {
	s *Store
}

func (r *conversationStore) FindOrCreate(ctx context.Context, c *conversation.Conversation) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.conversations {
		if existing.PlatformConnectionID == c.PlatformConnectionID && existing.ExternalID == c.ExternalID {
			*c = existing
			return nil
		}
	}
	r.s.conversations[c.ID] = *c
	return nil
}

func (r *conversationStore) GetByID(ctx context.Context, id uuid.UUID) (conversation.Conversation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.conversations[id]
	if !ok {
		return conversation.Conversation{}, snorq_errors.ErrNotFound
	}
	return c, nil
}

func (r *conversationStore) ListByOrganization(ctx context.Context, organizationID uuid.UUID, page, limit int) ([]conversation.Conversation, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []conversation.Conversation
	for _, c := range r.s.conversations {
		if c.OrganizationID == organizationID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].LastMessageAt.After(out[j].LastMessageAt)
	})
	return out, int64(len(out)), nil
}

// applyActivity mirrors the SQL update: the preview only moves forward when
// the stored timestamp is not newer, and last_message_at never regresses.
func (r *conversationStore) applyActivity(id uuid.UUID, ts time.Time, preview string, bumpUnread bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.conversations[id]
	if !ok {
		return snorq_errors.ErrNotFound
	}
	if !c.LastMessageAt.After(ts) {
		c.LastMessagePreview = preview
	}
	if ts.After(c.LastMessageAt) {
		c.LastMessageAt = ts
	}
	if bumpUnread {
		c.UnreadCount++
	}
	c.Status = conversation.StatusOpen
	r.s.conversations[id] = c
	return nil
}

func (r *conversationStore) ApplyInbound(ctx context.Context, id uuid.UUID, ts time.Time, preview string) error {
	return r.applyActivity(id, ts, preview, true)
}

func (r *conversationStore) ApplyOutbound(ctx context.Context, id uuid.UUID, ts time.Time, preview string) error {
	return r.applyActivity(id, ts, preview, false)
}

func (r *conversationStore) ResetUnread(ctx context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.conversations[id]
	if !ok {
		return snorq_errors.ErrNotFound
	}
	c.UnreadCount = 0
	r.s.conversations[id] = c
	return nil
}

type messageStore struct {
	s *Store
}

func (r *messageStore) Insert(ctx context.Context, m *message.Message) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if m.ExternalID.Valid {
		for _, existing := range r.s.messages {
			if existing.ConversationID == m.ConversationID && existing.ExternalID.Valid && existing.ExternalID.String == m.ExternalID.String {
				return false, nil
			}
		}
	}
	m.CreatedAt = time.Now()
	r.s.messages[m.ID] = *m
	return true, nil
}

func (r *messageStore) GetByID(ctx context.Context, id uuid.UUID) (message.Message, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.messages[id]
	if !ok {
		return message.Message{}, snorq_errors.ErrNotFound
	}
	return m, nil
}

func (r *messageStore) ListByConversation(ctx context.Context, conversationID uuid.UUID, page, limit int) ([]message.Message, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []message.Message
	for _, m := range r.s.messages {
		if m.ConversationID == conversationID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].PlatformTimestamp.After(out[j].PlatformTimestamp)
	})
	return out, int64(len(out)), nil
}

func (r *messageStore) UpdateDelivery(ctx context.Context, id uuid.UUID, status string, externalID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.messages[id]
	if !ok {
		return snorq_errors.ErrNotFound
	}
	m.Status = status
	if externalID != "" {
		m.ExternalID.String = externalID
		m.ExternalID.Valid = true
	}
	r.s.messages[id] = m
	return nil
}

func (r *messageStore) MarkFailed(ctx context.Context, id uuid.UUID) error {
	return r.UpdateDelivery(ctx, id, message.StatusFailed, "")
}
