package repository

import (
	"context"
	"database/sql"
	"time"

	"clubmail/internal/domain/event"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PostgresOutboxRepository struct {
	db *gorm.DB
}

func NewOutboxRepository(db *gorm.DB) OutboxRepository {
	return &PostgresOutboxRepository{db: db}
}

func (r *PostgresOutboxRepository) Create(ctx context.Context, e *event.OutboxEvent) error {
	return r.db.WithContext(ctx).Create(e).Error
}

func (r *PostgresOutboxRepository) GetPending(ctx context.Context, limit int) ([]event.OutboxEvent, error) {
	var events []event.OutboxEvent
	err := r.db.WithContext(ctx).
		Where("status = ? AND retry_count < max_retries", event.StatusPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}

func (r *PostgresOutboxRepository) MarkProcessing(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&event.OutboxEvent{}).
		Where("id = ?", id).
		Update("status", event.StatusProcessing).Error
}

func (r *PostgresOutboxRepository) MarkCompleted(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&event.OutboxEvent{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":       event.StatusCompleted,
			"processed_at": time.Now(),
		}).Error
}

func (r *PostgresOutboxRepository) MarkFailed(ctx context.Context, id uuid.UUID, errorMsg string) error {
	return r.db.WithContext(ctx).
		Model(&event.OutboxEvent{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			// Failed events go back to PENDING until retries run out.
			"status":        gorm.Expr("CASE WHEN retry_count + 1 >= max_retries THEN ? ELSE ? END", event.StatusFailed, event.StatusPending),
			"retry_count":   gorm.Expr("retry_count + 1"),
			"error_message": sql.NullString{String: errorMsg, Valid: errorMsg != ""},
		}).Error
}
