package event

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Outbox event statuses
const (
	StatusPending    = "PENDING"
	StatusProcessing = "PROCESSING"
	StatusCompleted  = "COMPLETED"
	StatusFailed     = "FAILED"
)

// Event types published by the messaging core
const (
	TypeMessageCreated = "message.created"
	TypeMessageRead    = "message.read"
	TypeMessageDeleted = "message.deleted"
)

// OutboxEvent represents outbox_events. Rows are written in the same
// transaction as the state change they describe and drained by the outbox
// worker.
type OutboxEvent struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	AggregateType string    `gorm:"not null"`
	AggregateID   uuid.UUID `gorm:"type:uuid;not null"`
	EventType     string    `gorm:"not null"`
	Payload       string    `gorm:"type:jsonb;not null"`
	Status        string    `gorm:"default:'PENDING'"`
	RetryCount    int       `gorm:"default:0"`
	MaxRetries    int       `gorm:"default:5"`
	ErrorMessage  sql.NullString
	CreatedAt     time.Time `gorm:"default:now()"`
	ProcessedAt   sql.NullTime
}

func (OutboxEvent) TableName() string {
	return "outbox_events"
}
