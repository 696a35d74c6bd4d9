package repository

import (
	"context"

	"github.com/google/uuid"

	"clubmail/internal/domain/event"
	"clubmail/internal/domain/message"
	"clubmail/internal/domain/user"
)

type UserRepository interface {
	Create(ctx context.Context, u *user.User) error
	GetByID(ctx context.Context, id uuid.UUID) (user.User, error)
	GetByUsername(ctx context.Context, username string) (user.User, error)
	GetByEmail(ctx context.Context, email string) (user.User, error)

	// GetActiveByRole returns the current active holders of a role. Callers
	// treat the result as a snapshot taken at call time.
	GetActiveByRole(ctx context.Context, role string) ([]user.User, error)
	// GetActiveExcept returns every active user other than the given one.
	GetActiveExcept(ctx context.Context, excludeID uuid.UUID) ([]user.User, error)
}

type MessageRepository interface {
	Create(ctx context.Context, m *message.Message) error
	GetByID(ctx context.Context, id uuid.UUID) (message.Message, error)
	// GetReplies returns the direct replies of a root, newest-first.
	GetReplies(ctx context.Context, rootID uuid.UUID) ([]message.Message, error)
	CountReplies(ctx context.Context, rootID uuid.UUID) (int64, error)
	// GetInboxRoots returns the top-level messages the user sent or
	// received, newest-first by the root's own creation time.
	GetInboxRoots(ctx context.Context, userID uuid.UUID) ([]message.Message, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type RecipientRepository interface {
	// CreateEntries inserts ledger rows, skipping any (message, recipient)
	// pair that already exists.
	CreateEntries(ctx context.Context, entries []message.MessageRecipient) error
	Get(ctx context.Context, messageID, recipientID uuid.UUID) (message.MessageRecipient, error)
	IsRecipient(ctx context.Context, messageID, recipientID uuid.UUID) (bool, error)
	GetByMessage(ctx context.Context, messageID uuid.UUID) ([]message.MessageRecipient, error)
	// MarkRead transitions a ledger row to read exactly once. A second call
	// is a no-op; a call for a pair with no row fails with ErrNotARecipient.
	MarkRead(ctx context.Context, messageID, recipientID uuid.UUID) error
	// CountUnread and GetUnread join against messages so that ledger rows
	// whose message is gone are never surfaced.
	CountUnread(ctx context.Context, recipientID uuid.UUID) (int64, error)
	GetUnread(ctx context.Context, recipientID uuid.UUID) ([]message.Message, error)
	DeleteByMessage(ctx context.Context, messageID uuid.UUID) error
}

type AttachmentRepository interface {
	Create(ctx context.Context, a *message.Attachment) error
	GetByID(ctx context.Context, id uuid.UUID) (message.Attachment, error)
	GetByMessage(ctx context.Context, messageID uuid.UUID) ([]message.Attachment, error)
	Delete(ctx context.Context, id uuid.UUID) error
	GetByMessages(ctx context.Context, messageIDs []uuid.UUID) ([]message.Attachment, error)
	DeleteByMessage(ctx context.Context, messageID uuid.UUID) error
}

type OutboxRepository interface {
	Create(ctx context.Context, e *event.OutboxEvent) error
	GetPending(ctx context.Context, limit int) ([]event.OutboxEvent, error)
	MarkProcessing(ctx context.Context, id uuid.UUID) error
	MarkCompleted(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, errorMsg string) error
}
