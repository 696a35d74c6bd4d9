package repository

import (
	"context"
	"errors"

	"clubmail/internal/domain/message"
	clubmail_errors "clubmail/pkg/errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PostgresAttachmentRepository struct {
	db *gorm.DB
}

func NewAttachmentRepository(db *gorm.DB) AttachmentRepository {
	return &PostgresAttachmentRepository{db: db}
}

func (r *PostgresAttachmentRepository) Create(ctx context.Context, a *message.Attachment) error {
	res := r.db.WithContext(ctx).Create(a)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return clubmail_errors.ErrAlreadyExists
		}
		return res.Error
	}
	return nil
}

func (r *PostgresAttachmentRepository) GetByID(ctx context.Context, id uuid.UUID) (message.Attachment, error) {
	var a message.Attachment
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&a).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return message.Attachment{}, clubmail_errors.ErrNotFound
		}
		return message.Attachment{}, err
	}
	return a, nil
}

func (r *PostgresAttachmentRepository) GetByMessage(ctx context.Context, messageID uuid.UUID) ([]message.Attachment, error) {
	var attachments []message.Attachment
	err := r.db.WithContext(ctx).
		Where("message_id = ?", messageID).
		Order("created_at ASC").
		Find(&attachments).Error
	if err != nil {
		return nil, err
	}
	return attachments, nil
}

func (r *PostgresAttachmentRepository) GetByMessages(ctx context.Context, messageIDs []uuid.UUID) ([]message.Attachment, error) {
	if len(messageIDs) == 0 {
		return nil, nil
	}
	var attachments []message.Attachment
	err := r.db.WithContext(ctx).
		Where("message_id IN ?", messageIDs).
		Order("created_at ASC").
		Find(&attachments).Error
	if err != nil {
		return nil, err
	}
	return attachments, nil
}

func (r *PostgresAttachmentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&message.Attachment{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return clubmail_errors.ErrNotFound
	}
	return nil
}

func (r *PostgresAttachmentRepository) DeleteByMessage(ctx context.Context, messageID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Delete(&message.Attachment{}, "message_id = ?", messageID).Error
}
