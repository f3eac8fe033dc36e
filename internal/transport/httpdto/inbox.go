package httpdto

import (
	"time"

	"snorq/internal/domain/conversation"
	"snorq/internal/domain/message"
)

type SendMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

type ConversationView struct {
	ID                 string    `json:"id"`
	OrganizationID     string    `json:"organization_id"`
	Platform           string    `json:"platform"`
	ExternalID         string    `json:"external_id"`
	ContactExternalID  string    `json:"contact_external_id"`
	ContactName        string    `json:"contact_name"`
	Status             string    `json:"status"`
	UnreadCount        int       `json:"unread_count"`
	LastMessageAt      time.Time `json:"last_message_at"`
	LastMessagePreview string    `json:"last_message_preview"`
}

type MessageView struct {
	ID                string    `json:"id"`
	ConversationID    string    `json:"conversation_id"`
	Direction         string    `json:"direction"`
	Content           string    `json:"content"`
	ExternalID        string    `json:"external_id,omitempty"`
	ContentType       string    `json:"content_type"`
	Status            string    `json:"status"`
	PlatformTimestamp time.Time `json:"platform_timestamp"`
	CreatedAt         time.Time `json:"created_at"`
}

// NewMessageEvent is the realtime payload pushed to an organization's room
// when a message lands in the inbox.
type NewMessageEvent struct {
	ConversationID string           `json:"conversation_id"`
	Message        MessageView      `json:"message"`
	Conversation   ConversationView `json:"conversation"`
}

type SyncReportView struct {
	ConversationsSeen int    `json:"conversations_seen"`
	MessagesApplied   int    `json:"messages_applied"`
	MessagesSkipped   int    `json:"messages_skipped"`
	Incomplete        bool   `json:"incomplete"`
	Error             string `json:"error,omitempty"`
}

type ListConversationsResponse struct {
	Conversations []ConversationView `json:"conversations"`
	Total         int64              `json:"total"`
}

type ListMessagesResponse struct {
	Messages []MessageView `json:"messages"`
	Total    int64         `json:"total"`
}

func ToConversationView(c conversation.Conversation) ConversationView {
	return ConversationView{
		ID:                 c.ID.String(),
		OrganizationID:     c.OrganizationID.String(),
		Platform:           string(c.Platform),
		ExternalID:         c.ExternalID,
		ContactExternalID:  c.ContactExternalID,
		ContactName:        c.ContactName,
		Status:             c.Status,
		UnreadCount:        c.UnreadCount,
		LastMessageAt:      c.LastMessageAt,
		LastMessagePreview: c.LastMessagePreview,
	}
}

func ToMessageView(m message.Message) MessageView {
	v := MessageView{
		ID:                m.ID.String(),
		ConversationID:    m.ConversationID.String(),
		Direction:         m.Direction,
		Content:           m.Content,
		ContentType:       m.ContentType,
		Status:            m.Status,
		PlatformTimestamp: m.PlatformTimestamp,
		CreatedAt:         m.CreatedAt,
	}
	if m.ExternalID.Valid {
		v.ExternalID = m.ExternalID.String
	}
	return v
}

func ToConversationViews(items []conversation.Conversation) []ConversationView {
	views := make([]ConversationView, 0, len(items))
	for _, c := range items {
		views = append(views, ToConversationView(c))
	}
	return views
}

func ToMessageViews(items []message.Message) []MessageView {
	views := make([]MessageView, 0, len(items))
	for _, m := range items {
		views = append(views, ToMessageView(m))
	}
	return views
}
