package events

import (
	"context"
	"time"

	"github.com/google/uuid"

	"tutorchat/internal/transport/httpdto"
)

// Type enumerates the outbound event kinds carried by the broadcast stream.
type Type string

const (
	TypeNewMessage        Type = "NEW_MESSAGE"
	TypeUserTyping        Type = "USER_TYPING"
	TypeUserStoppedTyping Type = "USER_STOPPED_TYPING"
	TypeMessagesRead      Type = "MESSAGES_READ"
	TypeUserJoined        Type = "USER_JOINED"
	TypeUserOffline       Type = "USER_OFFLINE"
	TypeError             Type = "ERROR"
)

// Event is the wire shape pushed to WebSocket clients. TargetUserID addresses
// the event to a single user (error events); when nil the event fans out to
// the conversation membership.
type Event struct {
	Type           Type                     `json:"type"`
	ConversationID *uuid.UUID               `json:"conversation_id,omitempty"`
	UserID         *uuid.UUID               `json:"user_id,omitempty"`
	Message        *httpdto.MessageResponse `json:"message,omitempty"`
	Error          string                   `json:"error,omitempty"`
	Timestamp      time.Time                `json:"timestamp"`

	TargetUserID *uuid.UUID `json:"-"`
	// Origin identifies the publishing instance so the Redis bridge can skip
	// events it published itself.
	Origin string `json:"origin,omitempty"`
}

// Publisher mirrors local broadcast events to other instances.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}
