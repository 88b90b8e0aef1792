package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"tutorchat/internal/domain/chat"
	"tutorchat/internal/proxy"
	"tutorchat/internal/repository"
	"tutorchat/internal/transport/httpdto"
	chaterrors "tutorchat/pkg/errors"
)

type MessageService struct {
	messageRepo      repository.MessageRepository
	conversationRepo repository.ConversationRepository
	users            *UserService
	access           *proxy.AccessControl
}

func NewMessageService(
	messageRepo repository.MessageRepository,
	conversationRepo repository.ConversationRepository,
	users *UserService,
	access *proxy.AccessControl,
) *MessageService {
	return &MessageService{
		messageRepo:      messageRepo,
		conversationRepo: conversationRepo,
		users:            users,
		access:           access,
	}
}

// Send persists a message from an active participant and returns the
// enriched response.
func (s *MessageService) Send(ctx context.Context, conversationID, senderID uuid.UUID, content string, kind chat.MessageKind) (httpdto.MessageResponse, error) {
	if err := s.access.CanSendMessage(ctx, senderID, conversationID); err != nil {
		return httpdto.MessageResponse{}, err
	}

	if kind == "" {
		kind = chat.KindText
	}
	switch kind {
	case chat.KindText, chat.KindFile, chat.KindImage, chat.KindSystem:
	default:
		return httpdto.MessageResponse{}, chaterrors.Invalidf("unknown message kind %q", kind)
	}
	if kind == chat.KindText && strings.TrimSpace(content) == "" {
		return httpdto.MessageResponse{}, chaterrors.Invalidf("message content must not be empty")
	}

	msg := chat.Message{
		ID:             uuid.New(),
		ConversationID: conversationID,
		SenderID:       senderID,
		Content:        content,
		Kind:           kind,
		IsRead:         false,
		SentAt:         time.Now(),
	}
	if err := s.messageRepo.Create(ctx, &msg); err != nil {
		return httpdto.MessageResponse{}, err
	}
	return s.enrich(ctx, msg), nil
}

// GetPage returns one page of messages. The store pages newest-first; the
// returned slice is flipped to oldest-first for chat-window rendering, so
// callers combining pages must re-sort by sent_at.
func (s *MessageService) GetPage(ctx context.Context, conversationID, userID uuid.UUID, page, size int) (httpdto.MessagesPageResponse, error) {
	if err := s.access.CanViewConversation(ctx, userID, conversationID); err != nil {
		return httpdto.MessagesPageResponse{}, err
	}
	if size <= 0 {
		size = 50
	}
	messages, total, err := s.messageRepo.GetPage(ctx, conversationID, page, size)
	if err != nil {
		return httpdto.MessagesPageResponse{}, err
	}

	enriched := make([]httpdto.MessageResponse, 0, len(messages))
	for i := len(messages) - 1; i >= 0; i-- {
		enriched = append(enriched, s.enrich(ctx, messages[i]))
	}
	return httpdto.MessagesPageResponse{
		Messages: enriched,
		Total:    total,
		Page:     page,
		Size:     size,
	}, nil
}

// GetRecent returns the last limit messages, ascending by send time.
func (s *MessageService) GetRecent(ctx context.Context, conversationID, userID uuid.UUID, limit int) ([]httpdto.MessageResponse, error) {
	if err := s.access.CanViewConversation(ctx, userID, conversationID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 20
	}
	messages, err := s.messageRepo.GetRecent(ctx, conversationID, limit)
	if err != nil {
		return nil, err
	}
	enriched := make([]httpdto.MessageResponse, 0, len(messages))
	for i := len(messages) - 1; i >= 0; i-- {
		enriched = append(enriched, s.enrich(ctx, messages[i]))
	}
	return enriched, nil
}

func (s *MessageService) GetUnread(ctx context.Context, conversationID, userID uuid.UUID) ([]httpdto.MessageResponse, error) {
	if err := s.access.CanViewConversation(ctx, userID, conversationID); err != nil {
		return nil, err
	}
	messages, err := s.messageRepo.GetUnread(ctx, conversationID, userID)
	if err != nil {
		return nil, err
	}
	enriched := make([]httpdto.MessageResponse, 0, len(messages))
	for _, m := range messages {
		enriched = append(enriched, s.enrich(ctx, m))
	}
	return enriched, nil
}

func (s *MessageService) CountUnread(ctx context.Context, conversationID, userID uuid.UUID) (int64, error) {
	if err := s.access.CanViewConversation(ctx, userID, conversationID); err != nil {
		return 0, err
	}
	return s.messageRepo.CountUnread(ctx, conversationID, userID)
}

func (s *MessageService) CountTotalUnread(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.messageRepo.CountTotalUnreadForUser(ctx, userID)
}

// MarkMessageRead marks a single message read. Marking one's own message is
// a no-op, not an error.
func (s *MessageService) MarkMessageRead(ctx context.Context, messageID, userID uuid.UUID) error {
	msg, err := s.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		return err
	}
	if msg.SenderID == userID {
		return nil
	}
	if err := s.access.CanViewConversation(ctx, userID, msg.ConversationID); err != nil {
		return err
	}
	return s.messageRepo.MarkRead(ctx, messageID)
}

// MarkAllRead marks every unread message addressed to userID in the
// conversation. Idempotent.
func (s *MessageService) MarkAllRead(ctx context.Context, conversationID, userID uuid.UUID) error {
	if err := s.access.CanViewConversation(ctx, userID, conversationID); err != nil {
		return err
	}
	return s.messageRepo.MarkAllRead(ctx, conversationID, userID)
}

// Delete removes a message; only the original sender may delete.
func (s *MessageService) Delete(ctx context.Context, messageID, userID uuid.UUID) error {
	msg, err := s.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		return err
	}
	if msg.SenderID != userID {
		return chaterrors.ErrForbidden
	}
	return s.messageRepo.Delete(ctx, messageID)
}

// Search matches message content across the user's conversations. A blank
// term yields an empty result, unlike conversation search which falls back
// to the full listing.
func (s *MessageService) Search(ctx context.Context, userID uuid.UUID, term string, limit int) ([]httpdto.MessageResponse, error) {
	if strings.TrimSpace(term) == "" {
		return []httpdto.MessageResponse{}, nil
	}
	if limit <= 0 {
		limit = 50
	}
	conversationIDs, err := s.conversationRepo.GetUserConversationIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	messages, err := s.messageRepo.SearchInConversations(ctx, conversationIDs, term, limit)
	if err != nil {
		return nil, err
	}
	enriched := make([]httpdto.MessageResponse, 0, len(messages))
	for _, m := range messages {
		enriched = append(enriched, s.enrich(ctx, m))
	}
	return enriched, nil
}

func (s *MessageService) enrich(ctx context.Context, m chat.Message) httpdto.MessageResponse {
	name, email := s.users.ResolveName(ctx, m.SenderID)
	return httpdto.MessageResponse{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		SenderName:     name,
		SenderEmail:    email,
		Content:        m.Content,
		Kind:           string(m.Kind),
		IsRead:         m.IsRead,
		SentAt:         m.SentAt,
	}
}
