package repository

import (
	"context"

	"github.com/google/uuid"

	"tutorchat/internal/domain/chat"
	"tutorchat/internal/domain/user"
)

type UserRepository interface {
	Create(ctx context.Context, u *user.User) error
	GetByID(ctx context.Context, id uuid.UUID) (user.User, error)
	GetByEmail(ctx context.Context, email string) (user.User, error)
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}

type ConversationRepository interface {
	Create(ctx context.Context, c *chat.Conversation) error
	GetByID(ctx context.Context, id uuid.UUID) (chat.Conversation, error)
	Update(ctx context.Context, c chat.Conversation) error

	AddParticipant(ctx context.Context, p *chat.Participant) error
	GetParticipant(ctx context.Context, conversationID, userID uuid.UUID) (chat.Participant, error)
	GetParticipants(ctx context.Context, conversationID uuid.UUID) ([]chat.Participant, error)
	SetParticipantActive(ctx context.Context, conversationID, userID uuid.UUID, active bool) error
	IsActiveParticipant(ctx context.Context, conversationID, userID uuid.UUID) (bool, error)

	GetUserConversations(ctx context.Context, userID uuid.UUID, includeArchived bool) ([]chat.Conversation, error)
	GetUserConversationIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
	GetUnreadConversationIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
	SearchBySubject(ctx context.Context, userID uuid.UUID, term string) ([]chat.Conversation, error)
}

type MessageRepository interface {
	Create(ctx context.Context, m *chat.Message) error
	GetByID(ctx context.Context, id uuid.UUID) (chat.Message, error)
	Delete(ctx context.Context, id uuid.UUID) error

	// GetPage returns messages newest-first along with the conversation total.
	GetPage(ctx context.Context, conversationID uuid.UUID, page, size int) ([]chat.Message, int64, error)
	// GetRecent returns the newest limit messages, newest-first.
	GetRecent(ctx context.Context, conversationID uuid.UUID, limit int) ([]chat.Message, error)
	GetLatest(ctx context.Context, conversationID uuid.UUID) (chat.Message, error)

	GetUnread(ctx context.Context, conversationID, userID uuid.UUID) ([]chat.Message, error)
	CountUnread(ctx context.Context, conversationID, userID uuid.UUID) (int64, error)
	CountByConversation(ctx context.Context, conversationID uuid.UUID) (int64, error)
	CountTotalUnreadForUser(ctx context.Context, userID uuid.UUID) (int64, error)

	MarkRead(ctx context.Context, id uuid.UUID) error
	MarkAllRead(ctx context.Context, conversationID, userID uuid.UUID) error

	SearchInConversations(ctx context.Context, conversationIDs []uuid.UUID, term string, limit int) ([]chat.Message, error)
}
