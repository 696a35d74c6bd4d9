package repository

import (
	"context"
	"errors"

	"clubmail/internal/domain/message"
	clubmail_errors "clubmail/pkg/errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PostgresMessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &PostgresMessageRepository{db: db}
}

func (r *PostgresMessageRepository) Create(ctx context.Context, m *message.Message) error {
	res := r.db.WithContext(ctx).Create(m)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return clubmail_errors.ErrAlreadyExists
		}
		return res.Error
	}
	return nil
}

func (r *PostgresMessageRepository) GetByID(ctx context.Context, id uuid.UUID) (message.Message, error) {
	var m message.Message
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return message.Message{}, clubmail_errors.ErrNotFound
		}
		return message.Message{}, err
	}
	return m, nil
}

func (r *PostgresMessageRepository) GetReplies(ctx context.Context, rootID uuid.UUID) ([]message.Message, error) {
	var replies []message.Message
	err := r.db.WithContext(ctx).
		Where("in_reply_to = ?", rootID).
		Order("created_at DESC").
		Find(&replies).Error
	if err != nil {
		return nil, err
	}
	return replies, nil
}

func (r *PostgresMessageRepository) CountReplies(ctx context.Context, rootID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&message.Message{}).
		Where("in_reply_to = ?", rootID).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *PostgresMessageRepository) GetInboxRoots(ctx context.Context, userID uuid.UUID) ([]message.Message, error) {
	var roots []message.Message

	subQuery := r.db.Model(&message.MessageRecipient{}).
		Select("message_id").
		Where("recipient_id = ?", userID)

	err := r.db.WithContext(ctx).
		Where("in_reply_to IS NULL AND (sender_id = ? OR id IN (?))", userID, subQuery).
		Order("created_at DESC").
		Find(&roots).Error
	if err != nil {
		return nil, err
	}
	return roots, nil
}

func (r *PostgresMessageRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&message.Message{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return clubmail_errors.ErrNotFound
	}
	return nil
}
