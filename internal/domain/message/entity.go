package message

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Message types
const (
	TypeDirect    = "DIRECT"
	TypeRole      = "ROLE"
	TypeBroadcast = "BROADCAST"
	TypeSegment   = "SEGMENT"
)

// Recipient statuses, derived from read_at
const (
	StatusDelivered = "DELIVERED"
	StatusRead      = "READ"
)

// Message represents the messages table. Rows are immutable after creation
// except UpdatedAt, and are only ever hard-deleted.
type Message struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Subject   string
	Content   string
	SenderID  uuid.UUID `gorm:"type:uuid;index"`
	Type      string
	InReplyTo uuid.NullUUID `gorm:"index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// MessageRecipient represents message_recipients, the per-recipient delivery
// ledger. Only ReadAt is stored; delivery status is derived from it.
type MessageRecipient struct {
	MessageID   uuid.UUID `gorm:"type:uuid;primaryKey"`
	RecipientID uuid.UUID `gorm:"type:uuid;primaryKey"`
	ReadAt      sql.NullTime
	TargetRole  sql.NullString
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Status reports DELIVERED or READ from ReadAt's nullness. There is no
// stored status column, so the two facts cannot drift apart.
func (r MessageRecipient) Status() string {
	if r.ReadAt.Valid {
		return StatusRead
	}
	return StatusDelivered
}

// IsReply reports whether the message points at a thread root.
func (m Message) IsReply() bool {
	return m.InReplyTo.Valid
}

func (Message) TableName() string {
	return "messages"
}

func (MessageRecipient) TableName() string {
	return "message_recipients"
}
