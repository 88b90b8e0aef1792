package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tutorchat/internal/domain/chat"
	"tutorchat/internal/domain/user"
	"tutorchat/internal/transport/httpdto"
	chaterrors "tutorchat/pkg/errors"
)

func TestCreateConversation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	student := f.addUser(t, "Bob", "Smith", user.RoleStudent)
	tutor := f.addUser(t, "Alice", "Nguyen", user.RoleTutor)

	summary, err := f.conversations.Create(ctx, CreateConversationInput{
		Subject:        "Algebra help",
		CreatorID:      student,
		ParticipantIDs: []uuid.UUID{tutor},
	})
	require.NoError(t, err)

	assert.Equal(t, "Algebra help", summary.Subject)
	assert.False(t, summary.IsGroup)
	assert.False(t, summary.Archived)
	assert.Equal(t, int64(0), summary.TotalMessages)
	assert.Equal(t, int64(0), summary.UnreadCount)
	assert.Nil(t, summary.LastMessage)
	require.Len(t, summary.Participants, 2)

	names := []string{summary.Participants[0].Name, summary.Participants[1].Name}
	assert.Contains(t, names, "Bob Smith")
	assert.Contains(t, names, "Alice Nguyen")
}

func TestCreateConversation_CreatorAlwaysIncluded(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	creator := f.addUser(t, "Bob", "Smith", user.RoleStudent)
	other := f.addUser(t, "Alice", "Nguyen", user.RoleTutor)

	// creator not named in the participant list
	summary, err := f.conversations.Create(ctx, CreateConversationInput{
		Subject:        "Geometry",
		CreatorID:      creator,
		ParticipantIDs: []uuid.UUID{other},
	})
	require.NoError(t, err)

	active, err := f.convRepo.IsActiveParticipant(ctx, summary.ID, creator)
	require.NoError(t, err)
	assert.True(t, active)
}

func TestCreateConversation_DedupesParticipants(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	creator := f.addUser(t, "Bob", "Smith", user.RoleStudent)
	other := f.addUser(t, "Alice", "Nguyen", user.RoleTutor)

	summary, err := f.conversations.Create(ctx, CreateConversationInput{
		Subject:        "Calculus",
		CreatorID:      creator,
		ParticipantIDs: []uuid.UUID{other, other, creator, other},
	})
	require.NoError(t, err)
	assert.Len(t, summary.Participants, 2)
}

func TestCreateConversation_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	creator := f.addUser(t, "Bob", "Smith", user.RoleStudent)
	other := f.addUser(t, "Alice", "Nguyen", user.RoleTutor)

	_, err := f.conversations.Create(ctx, CreateConversationInput{
		Subject:        "   ",
		CreatorID:      creator,
		ParticipantIDs: []uuid.UUID{other},
	})
	assert.ErrorIs(t, err, chaterrors.ErrInvalidInput)

	_, err = f.conversations.Create(ctx, CreateConversationInput{
		Subject:   "No participants",
		CreatorID: creator,
	})
	assert.ErrorIs(t, err, chaterrors.ErrInvalidInput)

	_, err = f.conversations.Create(ctx, CreateConversationInput{
		Subject:        "Ghost participant",
		CreatorID:      creator,
		ParticipantIDs: []uuid.UUID{uuid.New()},
	})
	assert.ErrorIs(t, err, chaterrors.ErrInvalidInput)
}

func TestCreateConversation_WithInitialMessage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	creator := f.addUser(t, "Bob", "Smith", user.RoleStudent)
	other := f.addUser(t, "Alice", "Nguyen", user.RoleTutor)

	summary, err := f.conversations.Create(ctx, CreateConversationInput{
		Subject:        "Algebra help",
		CreatorID:      creator,
		ParticipantIDs: []uuid.UUID{other},
		InitialMessage: "Hi, I'm stuck on problem 4.",
	})
	require.NoError(t, err)

	assert.Equal(t, int64(1), summary.TotalMessages)
	require.NotNil(t, summary.LastMessage)
	assert.Equal(t, "Hi, I'm stuck on problem 4.", summary.LastMessage.Content)
	assert.Equal(t, creator, summary.LastMessage.SenderID)
}

func TestCreateConversation_ParticipantInsertFailureIsNotRolledBack(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	creator := f.addUser(t, "Bob", "Smith", user.RoleStudent)
	other := f.addUser(t, "Alice", "Nguyen", user.RoleTutor)

	f.convRepo.failAddFor = map[uuid.UUID]error{other: errors.New("insert failed")}

	summary, err := f.conversations.Create(ctx, CreateConversationInput{
		Subject:        "Partial insert",
		CreatorID:      creator,
		ParticipantIDs: []uuid.UUID{other},
	})
	require.NoError(t, err)

	// the conversation and the creator's row survive the failed insert
	require.Len(t, summary.Participants, 1)
	assert.Equal(t, creator, summary.Participants[0].UserID)

	_, err = f.convRepo.GetByID(ctx, summary.ID)
	assert.NoError(t, err)
}

func TestGetConversation_NonParticipantDenied(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	creator := f.addUser(t, "Bob", "Smith", user.RoleStudent)
	other := f.addUser(t, "Alice", "Nguyen", user.RoleTutor)
	outsider := f.addUser(t, "Eve", "Jones", user.RoleStudent)

	convID := f.createConversation(t, creator, "Private", other)

	_, err := f.conversations.Get(ctx, convID, outsider)
	assert.ErrorIs(t, err, chaterrors.ErrForbidden)

	_, err = f.conversations.Get(ctx, convID, creator)
	assert.NoError(t, err)
}

func TestIsGroupFlag(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	creator := f.addUser(t, "Bob", "Smith", user.RoleStudent)
	second := f.addUser(t, "Alice", "Nguyen", user.RoleTutor)
	third := f.addUser(t, "Carla", "Diaz", user.RoleStudent)

	pair := f.createConversation(t, creator, "Pair", second)
	group := f.createConversation(t, creator, "Group", second, third)

	pairSummary, err := f.conversations.Get(ctx, pair, creator)
	require.NoError(t, err)
	assert.False(t, pairSummary.IsGroup)

	groupSummary, err := f.conversations.Get(ctx, group, creator)
	require.NoError(t, err)
	assert.True(t, groupSummary.IsGroup)

	// dropping back to two active members clears the flag
	require.NoError(t, f.conversations.Leave(ctx, group, third))
	groupSummary, err = f.conversations.Get(ctx, group, creator)
	require.NoError(t, err)
	assert.False(t, groupSummary.IsGroup)
}

func TestUpdateConversation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	creator := f.addUser(t, "Bob", "Smith", user.RoleStudent)
	other := f.addUser(t, "Alice", "Nguyen", user.RoleTutor)
	convID := f.createConversation(t, creator, "Old subject", other)

	newSubject := "New subject"
	archived := true
	summary, err := f.conversations.Update(ctx, convID, creator, httpdto.UpdateConversationRequest{
		Subject:  &newSubject,
		Archived: &archived,
	})
	require.NoError(t, err)
	assert.Equal(t, "New subject", summary.Subject)
	assert.True(t, summary.Archived)

	blank := "  "
	_, err = f.conversations.Update(ctx, convID, creator, httpdto.UpdateConversationRequest{Subject: &blank})
	assert.ErrorIs(t, err, chaterrors.ErrInvalidInput)

	outsider := f.addUser(t, "Eve", "Jones", user.RoleStudent)
	_, err = f.conversations.Update(ctx, convID, outsider, httpdto.UpdateConversationRequest{Subject: &newSubject})
	assert.ErrorIs(t, err, chaterrors.ErrForbidden)
}

func TestAddParticipant_Idempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	creator := f.addUser(t, "Bob", "Smith", user.RoleStudent)
	other := f.addUser(t, "Alice", "Nguyen", user.RoleTutor)
	third := f.addUser(t, "Carla", "Diaz", user.RoleStudent)
	convID := f.createConversation(t, creator, "Study group", other)

	first, err := f.conversations.AddParticipant(ctx, convID, creator, third)
	require.NoError(t, err)
	assert.Equal(t, third, first.UserID)

	// adding again succeeds and changes nothing
	again, err := f.conversations.AddParticipant(ctx, convID, creator, third)
	require.NoError(t, err)
	assert.Equal(t, third, again.UserID)

	participants, err := f.conversations.GetParticipants(ctx, convID, creator)
	require.NoError(t, err)
	assert.Len(t, participants, 3)
}

func TestAddParticipant_ReactivatesFormerMember(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	creator := f.addUser(t, "Bob", "Smith", user.RoleStudent)
	other := f.addUser(t, "Alice", "Nguyen", user.RoleTutor)
	convID := f.createConversation(t, creator, "Rejoin", other)

	require.NoError(t, f.conversations.Leave(ctx, convID, other))
	active, err := f.convRepo.IsActiveParticipant(ctx, convID, other)
	require.NoError(t, err)
	require.False(t, active)

	_, err = f.conversations.AddParticipant(ctx, convID, creator, other)
	require.NoError(t, err)

	active, err = f.convRepo.IsActiveParticipant(ctx, convID, other)
	require.NoError(t, err)
	assert.True(t, active)
}

func TestAddParticipant_UnknownUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	creator := f.addUser(t, "Bob", "Smith", user.RoleStudent)
	other := f.addUser(t, "Alice", "Nguyen", user.RoleTutor)
	convID := f.createConversation(t, creator, "Known members only", other)

	_, err := f.conversations.AddParticipant(ctx, convID, creator, uuid.New())
	assert.ErrorIs(t, err, chaterrors.ErrNotFound)
}

func TestRemoveParticipant_KeepsHistoricalRow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	creator := f.addUser(t, "Bob", "Smith", user.RoleStudent)
	other := f.addUser(t, "Alice", "Nguyen", user.RoleTutor)
	convID := f.createConversation(t, creator, "Removal", other)

	require.NoError(t, f.conversations.RemoveParticipant(ctx, convID, creator, other))

	// access is gone but the row remains for history
	_, err := f.conversations.Get(ctx, convID, other)
	assert.ErrorIs(t, err, chaterrors.ErrForbidden)

	row, err := f.convRepo.GetParticipant(ctx, convID, other)
	require.NoError(t, err)
	assert.False(t, row.Active)
}

func TestListForUser_SortedByLastActivity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	creator := f.addUser(t, "Bob", "Smith", user.RoleStudent)
	other := f.addUser(t, "Alice", "Nguyen", user.RoleTutor)

	older := f.createConversation(t, creator, "Older", other)
	newer := f.createConversation(t, creator, "Newer", other)

	base := time.Now()
	f.insertMessage(t, newer, other, "first", base.Add(1*time.Minute))
	f.insertMessage(t, older, other, "most recent", base.Add(5*time.Minute))

	summaries, err := f.conversations.ListForUser(ctx, creator, false)
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	// the conversation with the newest message leads, regardless of creation order
	assert.Equal(t, older, summaries[0].ID)
	assert.Equal(t, newer, summaries[1].ID)
}

func TestListForUser_ArchivedFiltering(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	creator := f.addUser(t, "Bob", "Smith", user.RoleStudent)
	other := f.addUser(t, "Alice", "Nguyen", user.RoleTutor)

	keep := f.createConversation(t, creator, "Keep", other)
	archive := f.createConversation(t, creator, "Archive", other)

	archived := true
	_, err := f.conversations.Update(ctx, archive, creator, httpdto.UpdateConversationRequest{Archived: &archived})
	require.NoError(t, err)

	visible, err := f.conversations.ListForUser(ctx, creator, false)
	require.NoError(t, err)
	require.Len(t, visible, 1)
	assert.Equal(t, keep, visible[0].ID)

	all, err := f.conversations.ListForUser(ctx, creator, true)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestListUnread(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	creator := f.addUser(t, "Bob", "Smith", user.RoleStudent)
	other := f.addUser(t, "Alice", "Nguyen", user.RoleTutor)

	quiet := f.createConversation(t, creator, "Quiet", other)
	busy := f.createConversation(t, creator, "Busy", other)

	f.insertMessage(t, busy, other, "unread for creator", time.Now())
	f.insertMessage(t, quiet, creator, "creator's own message", time.Now())

	summaries, err := f.conversations.ListUnread(ctx, creator)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, busy, summaries[0].ID)
	assert.Equal(t, int64(1), summaries[0].UnreadCount)
}

func TestSearchConversations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	creator := f.addUser(t, "Bob", "Smith", user.RoleStudent)
	other := f.addUser(t, "Alice", "Nguyen", user.RoleTutor)

	f.createConversation(t, creator, "Algebra help", other)
	f.createConversation(t, creator, "Chemistry notes", other)

	matches, err := f.conversations.Search(ctx, creator, "ALGEBRA")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "Algebra help", matches[0].Subject)

	// blank term falls back to the full listing
	all, err := f.conversations.Search(ctx, creator, "   ")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	none, err := f.conversations.Search(ctx, creator, "biology")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSummary_UnknownSenderPlaceholder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	creator := f.addUser(t, "Bob", "Smith", user.RoleStudent)
	other := f.addUser(t, "Alice", "Nguyen", user.RoleTutor)
	convID := f.createConversation(t, creator, "Ghost sender", other)

	// a message whose sender no longer resolves in the directory
	ghost := uuid.New()
	require.NoError(t, f.convRepo.AddParticipant(ctx, &chat.Participant{
		ConversationID: convID,
		UserID:         ghost,
		Role:           chat.RoleParticipant,
		Active:         true,
		JoinedAt:       time.Now(),
	}))
	f.insertMessage(t, convID, ghost, "who am I", time.Now())

	summary, err := f.conversations.Get(ctx, convID, creator)
	require.NoError(t, err)
	require.NotNil(t, summary.LastMessage)
	assert.Equal(t, UnknownUserName, summary.LastMessage.SenderName)
	assert.Empty(t, summary.LastMessage.SenderEmail)
}
