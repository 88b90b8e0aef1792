package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"tutorchat/internal/domain/chat"
	chaterrors "tutorchat/pkg/errors"
)

type PostgresConversationRepository struct {
	db *gorm.DB
}

func NewConversationRepository(db *gorm.DB) ConversationRepository {
	return &PostgresConversationRepository{db: db}
}

func (r *PostgresConversationRepository) Create(ctx context.Context, c *chat.Conversation) error {
	res := r.db.WithContext(ctx).Create(c)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return chaterrors.ErrAlreadyExists
		}
		return res.Error
	}
	return nil
}

func (r *PostgresConversationRepository) GetByID(ctx context.Context, id uuid.UUID) (chat.Conversation, error) {
	var c chat.Conversation
	err := r.db.WithContext(ctx).
		Preload("Participants", "active = ?", true).
		Where("id = ?", id).
		First(&c).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return chat.Conversation{}, chaterrors.ErrNotFound
		}
		return chat.Conversation{}, err
	}
	return c, nil
}

func (r *PostgresConversationRepository) Update(ctx context.Context, c chat.Conversation) error {
	res := r.db.WithContext(ctx).
		Model(&chat.Conversation{}).
		Where("id = ?", c.ID).
		Updates(map[string]interface{}{
			"subject":    c.Subject,
			"archived":   c.Archived,
			"updated_at": c.UpdatedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return chaterrors.ErrNotFound
	}
	return nil
}

func (r *PostgresConversationRepository) AddParticipant(ctx context.Context, p *chat.Participant) error {
	res := r.db.WithContext(ctx).Create(p)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return chaterrors.ErrAlreadyExists
		}
		return res.Error
	}
	return nil
}

func (r *PostgresConversationRepository) GetParticipant(ctx context.Context, conversationID, userID uuid.UUID) (chat.Participant, error) {
	var p chat.Participant
	err := r.db.WithContext(ctx).
		Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return chat.Participant{}, chaterrors.ErrNotFound
		}
		return chat.Participant{}, err
	}
	return p, nil
}

func (r *PostgresConversationRepository) GetParticipants(ctx context.Context, conversationID uuid.UUID) ([]chat.Participant, error) {
	var participants []chat.Participant
	err := r.db.WithContext(ctx).
		Where("conversation_id = ? AND active = ?", conversationID, true).
		Order("joined_at ASC").
		Find(&participants).Error
	return participants, err
}

func (r *PostgresConversationRepository) SetParticipantActive(ctx context.Context, conversationID, userID uuid.UUID, active bool) error {
	res := r.db.WithContext(ctx).
		Model(&chat.Participant{}).
		Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		Update("active", active)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return chaterrors.ErrNotFound
	}
	return nil
}

func (r *PostgresConversationRepository) IsActiveParticipant(ctx context.Context, conversationID, userID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&chat.Participant{}).
		Where("conversation_id = ? AND user_id = ? AND active = ?", conversationID, userID, true).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *PostgresConversationRepository) GetUserConversations(ctx context.Context, userID uuid.UUID, includeArchived bool) ([]chat.Conversation, error) {
	subQuery := r.db.Model(&chat.Participant{}).
		Select("conversation_id").
		Where("user_id = ? AND active = ?", userID, true)

	q := r.db.WithContext(ctx).
		Preload("Participants", "active = ?", true).
		Where("id IN (?)", subQuery)
	if !includeArchived {
		q = q.Where("archived = ?", false)
	}

	var conversations []chat.Conversation
	err := q.Find(&conversations).Error
	return conversations, err
}

func (r *PostgresConversationRepository) GetUserConversationIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&chat.Participant{}).
		Where("user_id = ? AND active = ?", userID, true).
		Pluck("conversation_id", &ids).Error
	return ids, err
}

func (r *PostgresConversationRepository) GetUnreadConversationIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	subQuery := r.db.Model(&chat.Participant{}).
		Select("conversation_id").
		Where("user_id = ? AND active = ?", userID, true)

	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&chat.Message{}).
		Distinct("conversation_id").
		Where("conversation_id IN (?) AND is_read = ? AND sender_id <> ?", subQuery, false, userID).
		Pluck("conversation_id", &ids).Error
	return ids, err
}

func (r *PostgresConversationRepository) SearchBySubject(ctx context.Context, userID uuid.UUID, term string) ([]chat.Conversation, error) {
	subQuery := r.db.Model(&chat.Participant{}).
		Select("conversation_id").
		Where("user_id = ? AND active = ?", userID, true)

	var conversations []chat.Conversation
	err := r.db.WithContext(ctx).
		Preload("Participants", "active = ?", true).
		Where("id IN (?)", subQuery).
		Where("LOWER(subject) LIKE ?", "%"+strings.ToLower(term)+"%").
		Find(&conversations).Error
	return conversations, err
}
