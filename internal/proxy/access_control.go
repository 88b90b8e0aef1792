package proxy

import (
	"context"

	"github.com/google/uuid"

	"tutorchat/internal/repository"
	chaterrors "tutorchat/pkg/errors"
)

// AccessControl answers the participant predicate the chat core gates every
// conversation-scoped operation on.
type AccessControl struct {
	conversationRepo repository.ConversationRepository
}

func NewAccessControl(conversationRepo repository.ConversationRepository) *AccessControl {
	return &AccessControl{conversationRepo: conversationRepo}
}

// CanViewConversation fails with ErrForbidden unless userID is an active
// participant of the conversation.
func (a *AccessControl) CanViewConversation(ctx context.Context, userID, conversationID uuid.UUID) error {
	return a.ensureParticipant(ctx, conversationID, userID)
}

// CanSendMessage currently mirrors the view predicate; kept separate so the
// two can diverge (e.g. muted participants).
func (a *AccessControl) CanSendMessage(ctx context.Context, userID, conversationID uuid.UUID) error {
	return a.ensureParticipant(ctx, conversationID, userID)
}

func (a *AccessControl) ensureParticipant(ctx context.Context, conversationID, userID uuid.UUID) error {
	if a.conversationRepo == nil {
		return chaterrors.ErrForbidden
	}
	ok, err := a.conversationRepo.IsActiveParticipant(ctx, conversationID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return chaterrors.ErrForbidden
	}
	return nil
}
