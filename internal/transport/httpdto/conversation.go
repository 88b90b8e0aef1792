package httpdto

import (
	"time"

	"github.com/google/uuid"
)

type CreateConversationRequest struct {
	Subject        string   `json:"subject" binding:"required"`
	Participants   []string `json:"participants" binding:"required"`
	SessionID      string   `json:"session_id"`
	InitialMessage string   `json:"initial_message"`
}

// UpdateConversationRequest carries a partial update; nil fields are left
// untouched.
type UpdateConversationRequest struct {
	Subject  *string `json:"subject"`
	Archived *bool   `json:"archived"`
}

type AddParticipantRequest struct {
	UserID string `json:"user_id" binding:"required"`
}

type ParticipantResponse struct {
	UserID   uuid.UUID `json:"user_id"`
	Name     string    `json:"name"`
	Email    string    `json:"email,omitempty"`
	Role     string    `json:"role"`
	JoinedAt time.Time `json:"joined_at"`
}

// ConversationSummary is the enriched conversation DTO returned by every
// conversation read path.
type ConversationSummary struct {
	ID            uuid.UUID             `json:"id"`
	Subject       string                `json:"subject"`
	SessionID     *uuid.UUID            `json:"session_id,omitempty"`
	Archived      bool                  `json:"archived"`
	CreatedAt     time.Time             `json:"created_at"`
	IsGroup       bool                  `json:"is_group"`
	TotalMessages int64                 `json:"total_messages"`
	UnreadCount   int64                 `json:"unread_count"`
	LastMessage   *MessageResponse      `json:"last_message,omitempty"`
	Participants  []ParticipantResponse `json:"participants"`
}

type ListConversationsResponse struct {
	Conversations []ConversationSummary `json:"conversations"`
	Total         int                   `json:"total"`
}
