package services

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"tutorchat/internal/domain/chat"
	"tutorchat/internal/domain/user"
	chaterrors "tutorchat/pkg/errors"
)

// memUserRepo is an in-memory UserRepository.
type memUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]user.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: make(map[uuid.UUID]user.User)}
}

func (r *memUserRepo) Create(_ context.Context, u *user.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[u.ID]; ok {
		return chaterrors.ErrAlreadyExists
	}
	r.users[u.ID] = *u
	return nil
}

func (r *memUserRepo) GetByID(_ context.Context, id uuid.UUID) (user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return user.User{}, chaterrors.ErrNotFound
	}
	return u, nil
}

func (r *memUserRepo) GetByEmail(_ context.Context, email string) (user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return user.User{}, chaterrors.ErrNotFound
}

func (r *memUserRepo) Exists(_ context.Context, id uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.users[id]
	return ok, nil
}

// memMessageRepo is an in-memory MessageRepository keeping messages in
// insertion order; queries sort by sent_at like the Postgres implementation.
type memMessageRepo struct {
	mu       sync.Mutex
	messages []chat.Message

	// membership mirrors the participant table for the user-scoped unread
	// queries; the fixture keeps it in sync with the conversation repo.
	membership func(conversationID, userID uuid.UUID) bool
}

func newMemMessageRepo() *memMessageRepo {
	return &memMessageRepo{}
}

func (r *memMessageRepo) Create(_ context.Context, m *chat.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.messages {
		if existing.ID == m.ID {
			return chaterrors.ErrAlreadyExists
		}
	}
	r.messages = append(r.messages, *m)
	return nil
}

func (r *memMessageRepo) GetByID(_ context.Context, id uuid.UUID) (chat.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.messages {
		if m.ID == id {
			return m, nil
		}
	}
	return chat.Message{}, chaterrors.ErrNotFound
}

func (r *memMessageRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, m := range r.messages {
		if m.ID == id {
			r.messages = append(r.messages[:i], r.messages[i+1:]...)
			return nil
		}
	}
	return chaterrors.ErrNotFound
}

func (r *memMessageRepo) newestFirst(conversationID uuid.UUID) []chat.Message {
	var out []chat.Message
	for _, m := range r.messages {
		if m.ConversationID == conversationID {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SentAt.After(out[j].SentAt)
	})
	return out
}

func (r *memMessageRepo) GetPage(_ context.Context, conversationID uuid.UUID, page, size int) ([]chat.Message, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := r.newestFirst(conversationID)
	total := int64(len(all))

	if page < 0 {
		page = 0
	}
	start := page * size
	if start >= len(all) {
		return nil, total, nil
	}
	end := start + size
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], total, nil
}

func (r *memMessageRepo) GetRecent(_ context.Context, conversationID uuid.UUID, limit int) ([]chat.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := r.newestFirst(conversationID)
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (r *memMessageRepo) GetLatest(_ context.Context, conversationID uuid.UUID) (chat.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := r.newestFirst(conversationID)
	if len(all) == 0 {
		return chat.Message{}, chaterrors.ErrNotFound
	}
	return all[0], nil
}

func (r *memMessageRepo) GetUnread(_ context.Context, conversationID, userID uuid.UUID) ([]chat.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []chat.Message
	for _, m := range r.messages {
		if m.ConversationID == conversationID && !m.IsRead && m.SenderID != userID {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SentAt.Before(out[j].SentAt)
	})
	return out, nil
}

func (r *memMessageRepo) CountUnread(_ context.Context, conversationID, userID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, m := range r.messages {
		if m.ConversationID == conversationID && !m.IsRead && m.SenderID != userID {
			count++
		}
	}
	return count, nil
}

func (r *memMessageRepo) CountByConversation(_ context.Context, conversationID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, m := range r.messages {
		if m.ConversationID == conversationID {
			count++
		}
	}
	return count, nil
}

func (r *memMessageRepo) CountTotalUnreadForUser(_ context.Context, userID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, m := range r.messages {
		if m.IsRead || m.SenderID == userID {
			continue
		}
		if r.membership != nil && !r.membership(m.ConversationID, userID) {
			continue
		}
		count++
	}
	return count, nil
}

func (r *memMessageRepo) MarkRead(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.messages {
		if r.messages[i].ID == id {
			r.messages[i].IsRead = true
			return nil
		}
	}
	return chaterrors.ErrNotFound
}

func (r *memMessageRepo) MarkAllRead(_ context.Context, conversationID, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.messages {
		m := &r.messages[i]
		if m.ConversationID == conversationID && !m.IsRead && m.SenderID != userID {
			m.IsRead = true
		}
	}
	return nil
}

func (r *memMessageRepo) SearchInConversations(_ context.Context, conversationIDs []uuid.UUID, term string, limit int) ([]chat.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	allowed := make(map[uuid.UUID]bool, len(conversationIDs))
	for _, id := range conversationIDs {
		allowed[id] = true
	}
	needle := strings.ToLower(term)

	var out []chat.Message
	for _, m := range r.messages {
		if allowed[m.ConversationID] && strings.Contains(strings.ToLower(m.Content), needle) {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SentAt.After(out[j].SentAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// memConversationRepo is an in-memory ConversationRepository.
type memConversationRepo struct {
	mu            sync.Mutex
	conversations map[uuid.UUID]chat.Conversation
	participants  map[uuid.UUID][]chat.Participant

	// messages backs the unread-conversation listing.
	messages *memMessageRepo

	// failAddFor injects insert failures per user id.
	failAddFor map[uuid.UUID]error
}

func newMemConversationRepo(messages *memMessageRepo) *memConversationRepo {
	r := &memConversationRepo{
		conversations: make(map[uuid.UUID]chat.Conversation),
		participants:  make(map[uuid.UUID][]chat.Participant),
		messages:      messages,
	}
	if messages != nil {
		messages.membership = func(conversationID, userID uuid.UUID) bool {
			active, _ := r.IsActiveParticipant(context.Background(), conversationID, userID)
			return active
		}
	}
	return r
}

func (r *memConversationRepo) Create(_ context.Context, c *chat.Conversation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.conversations[c.ID]; ok {
		return chaterrors.ErrAlreadyExists
	}
	stored := *c
	stored.Participants = nil
	r.conversations[c.ID] = stored
	return nil
}

func (r *memConversationRepo) GetByID(_ context.Context, id uuid.UUID) (chat.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.conversations[id]
	if !ok {
		return chat.Conversation{}, chaterrors.ErrNotFound
	}
	c.Participants = r.activeParticipants(id)
	return c, nil
}

func (r *memConversationRepo) Update(_ context.Context, c chat.Conversation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.conversations[c.ID]; !ok {
		return chaterrors.ErrNotFound
	}
	c.Participants = nil
	r.conversations[c.ID] = c
	return nil
}

func (r *memConversationRepo) AddParticipant(_ context.Context, p *chat.Participant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err, ok := r.failAddFor[p.UserID]; ok {
		return err
	}
	for _, existing := range r.participants[p.ConversationID] {
		if existing.UserID == p.UserID {
			return chaterrors.ErrAlreadyExists
		}
	}
	r.participants[p.ConversationID] = append(r.participants[p.ConversationID], *p)
	return nil
}

func (r *memConversationRepo) GetParticipant(_ context.Context, conversationID, userID uuid.UUID) (chat.Participant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.participants[conversationID] {
		if p.UserID == userID {
			return p, nil
		}
	}
	return chat.Participant{}, chaterrors.ErrNotFound
}

func (r *memConversationRepo) GetParticipants(_ context.Context, conversationID uuid.UUID) ([]chat.Participant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.activeParticipants(conversationID), nil
}

func (r *memConversationRepo) activeParticipants(conversationID uuid.UUID) []chat.Participant {
	var out []chat.Participant
	for _, p := range r.participants[conversationID] {
		if p.Active {
			out = append(out, p)
		}
	}
	return out
}

func (r *memConversationRepo) SetParticipantActive(_ context.Context, conversationID, userID uuid.UUID, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	list := r.participants[conversationID]
	for i := range list {
		if list[i].UserID == userID {
			list[i].Active = active
			return nil
		}
	}
	return chaterrors.ErrNotFound
}

func (r *memConversationRepo) IsActiveParticipant(_ context.Context, conversationID, userID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.participants[conversationID] {
		if p.UserID == userID && p.Active {
			return true, nil
		}
	}
	return false, nil
}

func (r *memConversationRepo) GetUserConversations(_ context.Context, userID uuid.UUID, includeArchived bool) ([]chat.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []chat.Conversation
	for id, c := range r.conversations {
		if !includeArchived && c.Archived {
			continue
		}
		if r.isActiveLocked(id, userID) {
			c.Participants = r.activeParticipants(id)
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *memConversationRepo) GetUserConversationIDs(_ context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []uuid.UUID
	for id := range r.conversations {
		if r.isActiveLocked(id, userID) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (r *memConversationRepo) GetUnreadConversationIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	memberOf, err := r.GetUserConversationIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	var ids []uuid.UUID
	for _, id := range memberOf {
		count, err := r.messages.CountUnread(ctx, id, userID)
		if err != nil {
			return nil, err
		}
		if count > 0 {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (r *memConversationRepo) SearchBySubject(_ context.Context, userID uuid.UUID, term string) ([]chat.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	needle := strings.ToLower(term)
	var out []chat.Conversation
	for id, c := range r.conversations {
		if r.isActiveLocked(id, userID) && strings.Contains(strings.ToLower(c.Subject), needle) {
			c.Participants = r.activeParticipants(id)
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *memConversationRepo) isActiveLocked(conversationID, userID uuid.UUID) bool {
	for _, p := range r.participants[conversationID] {
		if p.UserID == userID && p.Active {
			return true
		}
	}
	return false
}
