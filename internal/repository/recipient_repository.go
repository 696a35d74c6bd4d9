package repository

import (
	"context"
	"time"

	"clubmail/internal/domain/message"
	clubmail_errors "clubmail/pkg/errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PostgresRecipientRepository struct {
	db *gorm.DB
}

func NewRecipientRepository(db *gorm.DB) RecipientRepository {
	return &PostgresRecipientRepository{db: db}
}

func (r *PostgresRecipientRepository) CreateEntries(ctx context.Context, entries []message.MessageRecipient) error {
	if len(entries) == 0 {
		return nil
	}
	// ON CONFLICT DO NOTHING keeps fan-out idempotent per (message, recipient).
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&entries)
	return res.Error
}

func (r *PostgresRecipientRepository) Get(ctx context.Context, messageID, recipientID uuid.UUID) (message.MessageRecipient, error) {
	var entry message.MessageRecipient
	err := r.db.WithContext(ctx).
		Where("message_id = ? AND recipient_id = ?", messageID, recipientID).
		First(&entry).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return message.MessageRecipient{}, clubmail_errors.ErrNotFound
		}
		return message.MessageRecipient{}, err
	}
	return entry, nil
}

func (r *PostgresRecipientRepository) IsRecipient(ctx context.Context, messageID, recipientID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&message.MessageRecipient{}).
		Where("message_id = ? AND recipient_id = ?", messageID, recipientID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *PostgresRecipientRepository) GetByMessage(ctx context.Context, messageID uuid.UUID) ([]message.MessageRecipient, error) {
	var entries []message.MessageRecipient
	err := r.db.WithContext(ctx).
		Where("message_id = ?", messageID).
		Order("created_at ASC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *PostgresRecipientRepository) MarkRead(ctx context.Context, messageID, recipientID uuid.UUID) error {
	now := time.Now()
	// The read_at IS NULL guard makes concurrent mark-read calls safe: only
	// one update wins, the rest fall through to the no-op path.
	res := r.db.WithContext(ctx).
		Model(&message.MessageRecipient{}).
		Where("message_id = ? AND recipient_id = ? AND read_at IS NULL", messageID, recipientID).
		Updates(map[string]interface{}{
			"read_at":    now,
			"updated_at": now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		exists, err := r.IsRecipient(ctx, messageID, recipientID)
		if err != nil {
			return err
		}
		if !exists {
			return clubmail_errors.ErrNotARecipient
		}
		// Already read: mark-read is idempotent.
	}
	return nil
}

func (r *PostgresRecipientRepository) CountUnread(ctx context.Context, recipientID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&message.MessageRecipient{}).
		Joins("JOIN messages ON messages.id = message_recipients.message_id").
		Where("message_recipients.recipient_id = ? AND message_recipients.read_at IS NULL", recipientID).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *PostgresRecipientRepository) GetUnread(ctx context.Context, recipientID uuid.UUID) ([]message.Message, error) {
	var messages []message.Message
	err := r.db.WithContext(ctx).
		Model(&message.Message{}).
		Joins("JOIN message_recipients ON message_recipients.message_id = messages.id").
		Where("message_recipients.recipient_id = ? AND message_recipients.read_at IS NULL", recipientID).
		Order("messages.created_at DESC").
		Find(&messages).Error
	if err != nil {
		return nil, err
	}
	return messages, nil
}

func (r *PostgresRecipientRepository) DeleteByMessage(ctx context.Context, messageID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Delete(&message.MessageRecipient{}, "message_id = ?", messageID).Error
}
