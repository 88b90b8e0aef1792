package chat

import (
	"time"

	"github.com/google/uuid"
)

// Participant roles.
const (
	RoleParticipant = "PARTICIPANT"
	RoleTutor       = "TUTOR"
	RoleStudent     = "STUDENT"
)

// Conversation represents the conversations table. Conversations are archived,
// never physically deleted.
type Conversation struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Subject   string     `gorm:"type:varchar(255);not null" json:"subject"`
	SessionID *uuid.UUID `gorm:"type:uuid" json:"session_id,omitempty"`
	Archived  bool       `gorm:"default:false;not null" json:"archived"`
	CreatedAt time.Time  `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time  `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`

	// Relationships
	Participants []Participant `gorm:"foreignKey:ConversationID" json:"participants,omitempty"`
}

// Participant represents the conversation_participants table. A row with
// Active=false is a historical membership; the (conversation, user) pair is
// unique while active.
type Participant struct {
	ConversationID uuid.UUID `gorm:"type:uuid;primaryKey" json:"conversation_id"`
	UserID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"user_id"`
	Role           string    `gorm:"type:varchar(32);default:'PARTICIPANT';not null" json:"role"`
	Active         bool      `gorm:"default:true;not null" json:"active"`
	JoinedAt       time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"joined_at"`
}

func (Conversation) TableName() string {
	return "conversations"
}

func (Participant) TableName() string {
	return "conversation_participants"
}
