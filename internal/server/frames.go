package server

import (
	"encoding/json"

	"github.com/google/uuid"
)

// FrameKind is the closed set of inbound frame types. Anything else decodes
// to FrameUnknown and is logged and dropped, never closing the connection.
type FrameKind string

const (
	FrameSendMessage      FrameKind = "SEND_MESSAGE"
	FrameTypingStart      FrameKind = "TYPING_START"
	FrameTypingStop       FrameKind = "TYPING_STOP"
	FrameMarkRead         FrameKind = "MARK_READ"
	FrameJoinConversation FrameKind = "JOIN_CONVERSATION"
	FrameUnknown          FrameKind = "UNKNOWN"
)

// Frame is an inbound client frame.
type Frame struct {
	Type           FrameKind `json:"type"`
	ConversationID uuid.UUID `json:"conversation_id"`
	Content        string    `json:"content,omitempty"`
	MessageType    string    `json:"message_type,omitempty"`
}

// ParseFrame decodes a raw frame and normalizes the kind.
func ParseFrame(data []byte) (Frame, error) {
	var frame Frame
	if err := json.Unmarshal(data, &frame); err != nil {
		return Frame{}, err
	}
	switch frame.Type {
	case FrameSendMessage, FrameTypingStart, FrameTypingStop, FrameMarkRead, FrameJoinConversation:
	default:
		frame.Type = FrameUnknown
	}
	return frame, nil
}
