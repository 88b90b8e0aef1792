package httpdto

import (
	"time"

	"github.com/google/uuid"
)

type SendMessageRequest struct {
	ConversationID string `json:"conversation_id" binding:"required"`
	Content        string `json:"content"`
	Kind           string `json:"kind"`
}

// MessageResponse is the enriched message DTO: persisted fields plus the
// resolved sender identity.
type MessageResponse struct {
	ID             uuid.UUID `json:"id"`
	ConversationID uuid.UUID `json:"conversation_id"`
	SenderID       uuid.UUID `json:"sender_id"`
	SenderName     string    `json:"sender_name"`
	SenderEmail    string    `json:"sender_email,omitempty"`
	Content        string    `json:"content"`
	Kind           string    `json:"kind"`
	IsRead         bool      `json:"is_read"`
	SentAt         time.Time `json:"sent_at"`
}

type MessagesPageResponse struct {
	Messages []MessageResponse `json:"messages"`
	Total    int64             `json:"total"`
	Page     int               `json:"page"`
	Size     int               `json:"size"`
}

type UnreadCountResponse struct {
	ConversationID *uuid.UUID `json:"conversation_id,omitempty"`
	Count          int64      `json:"count"`
}
