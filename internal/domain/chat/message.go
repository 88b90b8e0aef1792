package chat

import (
	"time"

	"github.com/google/uuid"
)

// MessageKind classifies a message payload.
type MessageKind string

const (
	KindText   MessageKind = "TEXT"
	KindFile   MessageKind = "FILE"
	KindImage  MessageKind = "IMAGE"
	KindSystem MessageKind = "SYSTEM"
)

// Message represents the messages table. IsRead only ever transitions
// false to true.
type Message struct {
	ID             uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	ConversationID uuid.UUID   `gorm:"type:uuid;not null;index:idx_messages_conversation,priority:1" json:"conversation_id"`
	SenderID       uuid.UUID   `gorm:"type:uuid;not null" json:"sender_id"`
	Content        string      `gorm:"type:text" json:"content"`
	Kind           MessageKind `gorm:"type:varchar(16);default:'TEXT';not null" json:"kind"`
	IsRead         bool        `gorm:"default:false;not null" json:"is_read"`
	SentAt         time.Time   `gorm:"default:CURRENT_TIMESTAMP;index:idx_messages_conversation,priority:2,sort:desc" json:"sent_at"`
}

func (Message) TableName() string {
	return "messages"
}
