package message

import (
	"time"

	"github.com/google/uuid"
)

// Attachment represents attachments. Each row is owned by exactly one
// message and is removed with it. ObjectKey is the opaque location of the
// bytes in the external blob store.
type Attachment struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	MessageID   uuid.UUID `gorm:"type:uuid;index"`
	Filename    string
	ObjectKey   string
	SizeBytes   int64
	ContentType string
	CreatedAt   time.Time
}

func (Attachment) TableName() string {
	return "attachments"
}
