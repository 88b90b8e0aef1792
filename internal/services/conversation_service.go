package services

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"tutorchat/internal/domain/chat"
	"tutorchat/internal/proxy"
	"tutorchat/internal/repository"
	"tutorchat/internal/transport/httpdto"
	chaterrors "tutorchat/pkg/errors"
	"tutorchat/pkg/logger"
)

type CreateConversationInput struct {
	Subject        string
	SessionID      *uuid.UUID
	CreatorID      uuid.UUID
	ParticipantIDs []uuid.UUID
	InitialMessage string
}

type ConversationService struct {
	repo     repository.ConversationRepository
	messages *MessageService
	users    *UserService
	access   *proxy.AccessControl
	logger   *logger.Logger

	messageRepo repository.MessageRepository
}

func NewConversationService(
	repo repository.ConversationRepository,
	messageRepo repository.MessageRepository,
	messages *MessageService,
	users *UserService,
	access *proxy.AccessControl,
	l *logger.Logger,
) *ConversationService {
	return &ConversationService{
		repo:        repo,
		messageRepo: messageRepo,
		messages:    messages,
		users:       users,
		access:      access,
		logger:      l,
	}
}

// Create validates the request, persists the conversation and inserts one
// participant row per id. Participant inserts are independent: a failure on
// one id is logged and does not roll back the conversation or the rows
// already inserted.
func (s *ConversationService) Create(ctx context.Context, in CreateConversationInput) (httpdto.ConversationSummary, error) {
	subject := strings.TrimSpace(in.Subject)
	if subject == "" {
		return httpdto.ConversationSummary{}, chaterrors.Invalidf("subject must not be empty")
	}
	if len(in.ParticipantIDs) == 0 {
		return httpdto.ConversationSummary{}, chaterrors.Invalidf("participant list must not be empty")
	}

	participantIDs := dedupe(in.ParticipantIDs)
	if !contains(participantIDs, in.CreatorID) {
		participantIDs = append([]uuid.UUID{in.CreatorID}, participantIDs...)
	}

	for _, id := range participantIDs {
		exists, err := s.users.Exists(ctx, id)
		if err != nil {
			return httpdto.ConversationSummary{}, err
		}
		if !exists {
			return httpdto.ConversationSummary{}, chaterrors.Invalidf("user %s does not exist", id)
		}
	}

	now := time.Now()
	conv := chat.Conversation{
		ID:        uuid.New(),
		Subject:   subject,
		SessionID: in.SessionID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, &conv); err != nil {
		return httpdto.ConversationSummary{}, err
	}

	for _, id := range participantIDs {
		p := &chat.Participant{
			ConversationID: conv.ID,
			UserID:         id,
			Role:           chat.RoleParticipant,
			Active:         true,
			JoinedAt:       now,
		}
		if err := s.repo.AddParticipant(ctx, p); err != nil {
			if s.logger != nil {
				s.logger.Errorf("conversation %s: adding participant %s failed: %s", conv.ID, id, err)
			}
		}
	}

	if strings.TrimSpace(in.InitialMessage) != "" {
		if _, err := s.messages.Send(ctx, conv.ID, in.CreatorID, in.InitialMessage, chat.KindText); err != nil {
			if s.logger != nil {
				s.logger.Errorf("conversation %s: initial message failed: %s", conv.ID, err)
			}
		}
	}

	created, err := s.repo.GetByID(ctx, conv.ID)
	if err != nil {
		return httpdto.ConversationSummary{}, err
	}
	return s.summarize(ctx, created, in.CreatorID)
}

// Get returns the enriched summary for an active participant.
func (s *ConversationService) Get(ctx context.Context, conversationID, userID uuid.UUID) (httpdto.ConversationSummary, error) {
	if err := s.access.CanViewConversation(ctx, userID, conversationID); err != nil {
		return httpdto.ConversationSummary{}, err
	}
	conv, err := s.repo.GetByID(ctx, conversationID)
	if err != nil {
		return httpdto.ConversationSummary{}, err
	}
	return s.summarize(ctx, conv, userID)
}

// ListForUser returns the user's conversations, newest activity first
// (last message timestamp, else creation timestamp).
func (s *ConversationService) ListForUser(ctx context.Context, userID uuid.UUID, includeArchived bool) ([]httpdto.ConversationSummary, error) {
	conversations, err := s.repo.GetUserConversations(ctx, userID, includeArchived)
	if err != nil {
		return nil, err
	}
	return s.summarizeAll(ctx, conversations, userID)
}

// ListUnread returns the user's conversations holding at least one unread
// message addressed to them.
func (s *ConversationService) ListUnread(ctx context.Context, userID uuid.UUID) ([]httpdto.ConversationSummary, error) {
	ids, err := s.repo.GetUnreadConversationIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	conversations := make([]chat.Conversation, 0, len(ids))
	for _, id := range ids {
		conv, err := s.repo.GetByID(ctx, id)
		if err != nil {
			if s.logger != nil {
				s.logger.Errorf("unread listing: loading conversation %s failed: %s", id, err)
			}
			continue
		}
		conversations = append(conversations, conv)
	}
	return s.summarizeAll(ctx, conversations, userID)
}

// Update applies the present fields of the request. Each sub-operation is
// independently optional.
func (s *ConversationService) Update(ctx context.Context, conversationID, userID uuid.UUID, req httpdto.UpdateConversationRequest) (httpdto.ConversationSummary, error) {
	if err := s.access.CanViewConversation(ctx, userID, conversationID); err != nil {
		return httpdto.ConversationSummary{}, err
	}
	conv, err := s.repo.GetByID(ctx, conversationID)
	if err != nil {
		return httpdto.ConversationSummary{}, err
	}

	if req.Subject != nil {
		subject := strings.TrimSpace(*req.Subject)
		if subject == "" {
			return httpdto.ConversationSummary{}, chaterrors.Invalidf("subject must not be empty")
		}
		conv.Subject = subject
	}
	if req.Archived != nil {
		conv.Archived = *req.Archived
	}
	conv.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, conv); err != nil {
		return httpdto.ConversationSummary{}, err
	}
	return s.summarize(ctx, conv, userID)
}

// AddParticipant is idempotent: an already-active member is returned as-is
// and an inactive historical row is reactivated.
func (s *ConversationService) AddParticipant(ctx context.Context, conversationID, requesterID, newUserID uuid.UUID) (httpdto.ParticipantResponse, error) {
	if err := s.access.CanViewConversation(ctx, requesterID, conversationID); err != nil {
		return httpdto.ParticipantResponse{}, err
	}
	exists, err := s.users.Exists(ctx, newUserID)
	if err != nil {
		return httpdto.ParticipantResponse{}, err
	}
	if !exists {
		return httpdto.ParticipantResponse{}, chaterrors.NotFoundf("user %s", newUserID)
	}

	existing, err := s.repo.GetParticipant(ctx, conversationID, newUserID)
	switch {
	case err == nil && existing.Active:
		return s.enrichParticipant(ctx, existing), nil
	case err == nil:
		if err := s.repo.SetParticipantActive(ctx, conversationID, newUserID, true); err != nil {
			return httpdto.ParticipantResponse{}, err
		}
		existing.Active = true
		return s.enrichParticipant(ctx, existing), nil
	case !errors.Is(err, chaterrors.ErrNotFound):
		return httpdto.ParticipantResponse{}, err
	}

	p := chat.Participant{
		ConversationID: conversationID,
		UserID:         newUserID,
		Role:           chat.RoleParticipant,
		Active:         true,
		JoinedAt:       time.Now(),
	}
	if err := s.repo.AddParticipant(ctx, &p); err != nil {
		return httpdto.ParticipantResponse{}, err
	}
	return s.enrichParticipant(ctx, p), nil
}

// RemoveParticipant deactivates the membership; the historical row persists.
func (s *ConversationService) RemoveParticipant(ctx context.Context, conversationID, requesterID, targetID uuid.UUID) error {
	if err := s.access.CanViewConversation(ctx, requesterID, conversationID); err != nil {
		return err
	}
	return s.repo.SetParticipantActive(ctx, conversationID, targetID, false)
}

// Leave deactivates the caller's own membership. No participant check beyond
// owning the row.
func (s *ConversationService) Leave(ctx context.Context, conversationID, userID uuid.UUID) error {
	return s.repo.SetParticipantActive(ctx, conversationID, userID, false)
}

func (s *ConversationService) GetParticipants(ctx context.Context, conversationID, userID uuid.UUID) ([]httpdto.ParticipantResponse, error) {
	if err := s.access.CanViewConversation(ctx, userID, conversationID); err != nil {
		return nil, err
	}
	participants, err := s.repo.GetParticipants(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	enriched := make([]httpdto.ParticipantResponse, 0, len(participants))
	for _, p := range participants {
		enriched = append(enriched, s.enrichParticipant(ctx, p))
	}
	return enriched, nil
}

// Search matches subjects within the user's conversations. A blank term
// falls back to the full listing.
func (s *ConversationService) Search(ctx context.Context, userID uuid.UUID, term string) ([]httpdto.ConversationSummary, error) {
	if strings.TrimSpace(term) == "" {
		return s.ListForUser(ctx, userID, false)
	}
	conversations, err := s.repo.SearchBySubject(ctx, userID, strings.TrimSpace(term))
	if err != nil {
		return nil, err
	}
	return s.summarizeAll(ctx, conversations, userID)
}

// ActiveConversationIDs feeds the presence registry's membership cache.
func (s *ConversationService) ActiveConversationIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	return s.repo.GetUserConversationIDs(ctx, userID)
}

func (s *ConversationService) summarizeAll(ctx context.Context, conversations []chat.Conversation, userID uuid.UUID) ([]httpdto.ConversationSummary, error) {
	summaries := make([]httpdto.ConversationSummary, 0, len(conversations))
	for _, conv := range conversations {
		summary, err := s.summarize(ctx, conv, userID)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, summary)
	}
	sort.SliceStable(summaries, func(i, j int) bool {
		return lastActivity(summaries[i]).After(lastActivity(summaries[j]))
	})
	return summaries, nil
}

func (s *ConversationService) summarize(ctx context.Context, conv chat.Conversation, viewerID uuid.UUID) (httpdto.ConversationSummary, error) {
	participants := conv.Participants
	if participants == nil {
		loaded, err := s.repo.GetParticipants(ctx, conv.ID)
		if err != nil {
			return httpdto.ConversationSummary{}, err
		}
		participants = loaded
	}

	enriched := make([]httpdto.ParticipantResponse, 0, len(participants))
	for _, p := range participants {
		if !p.Active {
			continue
		}
		enriched = append(enriched, s.enrichParticipant(ctx, p))
	}

	total, err := s.messageRepo.CountByConversation(ctx, conv.ID)
	if err != nil {
		return httpdto.ConversationSummary{}, err
	}
	unread, err := s.messageRepo.CountUnread(ctx, conv.ID, viewerID)
	if err != nil {
		return httpdto.ConversationSummary{}, err
	}

	summary := httpdto.ConversationSummary{
		ID:            conv.ID,
		Subject:       conv.Subject,
		SessionID:     conv.SessionID,
		Archived:      conv.Archived,
		CreatedAt:     conv.CreatedAt,
		IsGroup:       len(enriched) > 2,
		TotalMessages: total,
		UnreadCount:   unread,
		Participants:  enriched,
	}

	if latest, err := s.messageRepo.GetLatest(ctx, conv.ID); err == nil {
		preview := s.messages.enrich(ctx, latest)
		summary.LastMessage = &preview
	}
	return summary, nil
}

func (s *ConversationService) enrichParticipant(ctx context.Context, p chat.Participant) httpdto.ParticipantResponse {
	name, email := s.users.ResolveName(ctx, p.UserID)
	return httpdto.ParticipantResponse{
		UserID:   p.UserID,
		Name:     name,
		Email:    email,
		Role:     p.Role,
		JoinedAt: p.JoinedAt,
	}
}

func lastActivity(summary httpdto.ConversationSummary) time.Time {
	if summary.LastMessage != nil {
		return summary.LastMessage.SentAt
	}
	return summary.CreatedAt
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

func contains(ids []uuid.UUID, id uuid.UUID) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}
