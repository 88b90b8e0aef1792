package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"tutorchat/internal/domain/chat"
	"tutorchat/internal/domain/user"
	"tutorchat/internal/proxy"
)

type fixture struct {
	userRepo *memUserRepo
	convRepo *memConversationRepo
	msgRepo  *memMessageRepo

	users         *UserService
	messages      *MessageService
	conversations *ConversationService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	msgRepo := newMemMessageRepo()
	convRepo := newMemConversationRepo(msgRepo)
	userRepo := newMemUserRepo()

	access := proxy.NewAccessControl(convRepo)
	users := NewUserService(userRepo)
	messages := NewMessageService(msgRepo, convRepo, users, access)
	conversations := NewConversationService(convRepo, msgRepo, messages, users, access, nil)

	return &fixture{
		userRepo:      userRepo,
		convRepo:      convRepo,
		msgRepo:       msgRepo,
		users:         users,
		messages:      messages,
		conversations: conversations,
	}
}

func (f *fixture) addUser(t *testing.T, first, last, role string) uuid.UUID {
	t.Helper()
	u := &user.User{
		ID:        uuid.New(),
		FirstName: first,
		LastName:  last,
		Email:     first + "@example.com",
		Role:      role,
		CreatedAt: time.Now(),
	}
	require.NoError(t, f.userRepo.Create(context.Background(), u))
	return u.ID
}

func (f *fixture) createConversation(t *testing.T, creatorID uuid.UUID, subject string, others ...uuid.UUID) uuid.UUID {
	t.Helper()
	summary, err := f.conversations.Create(context.Background(), CreateConversationInput{
		Subject:        subject,
		CreatorID:      creatorID,
		ParticipantIDs: others,
	})
	require.NoError(t, err)
	return summary.ID
}

// insertMessage writes directly to the store with an explicit timestamp so
// ordering tests are deterministic.
func (f *fixture) insertMessage(t *testing.T, conversationID, senderID uuid.UUID, content string, sentAt time.Time) uuid.UUID {
	t.Helper()
	msg := &chat.Message{
		ID:             uuid.New(),
		ConversationID: conversationID,
		SenderID:       senderID,
		Content:        content,
		Kind:           chat.KindText,
		SentAt:         sentAt,
	}
	require.NoError(t, f.msgRepo.Create(context.Background(), msg))
	return msg.ID
}
