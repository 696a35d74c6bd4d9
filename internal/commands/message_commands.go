package commands

import (
	"strings"

	clubmail_errors "clubmail/pkg/errors"

	"github.com/google/uuid"
)

// Target kinds a send command can address
const (
	TargetUser      = "user"
	TargetRole      = "role"
	TargetBroadcast = "broadcast"
	TargetSegment   = "segment"
)

// Target names the recipient class of a send. Role and segment membership is
// resolved to concrete users once, at execution time, inside the send
// transaction.
type Target struct {
	Kind    string
	UserID  uuid.UUID
	Role    string
	UserIDs []uuid.UUID
}

type SendMessageCommand struct {
	SenderID uuid.UUID
	Subject  string
	Content  string
	Target   Target
}

func (SendMessageCommand) CommandType() string {
	return "message.send"
}

func (c SendMessageCommand) Validate() error {
	if c.SenderID == uuid.Nil {
		return clubmail_errors.ErrInvalidInput
	}
	if strings.TrimSpace(c.Subject) == "" || strings.TrimSpace(c.Content) == "" {
		return clubmail_errors.ErrInvalidInput
	}
	switch c.Target.Kind {
	case TargetUser:
		if c.Target.UserID == uuid.Nil {
			return clubmail_errors.ErrInvalidInput
		}
	case TargetRole:
		if c.Target.Role == "" {
			return clubmail_errors.ErrInvalidInput
		}
	case TargetBroadcast:
	case TargetSegment:
		if len(c.Target.UserIDs) == 0 {
			return clubmail_errors.ErrInvalidInput
		}
	default:
		return clubmail_errors.ErrInvalidInput
	}
	return nil
}

type ReplyMessageCommand struct {
	ParentID uuid.UUID
	SenderID uuid.UUID
	Content  string
}

func (ReplyMessageCommand) CommandType() string {
	return "message.reply"
}

func (c ReplyMessageCommand) Validate() error {
	if c.ParentID == uuid.Nil || c.SenderID == uuid.Nil {
		return clubmail_errors.ErrInvalidInput
	}
	if strings.TrimSpace(c.Content) == "" {
		return clubmail_errors.ErrInvalidInput
	}
	return nil
}

type DeleteMessageCommand struct {
	MessageID uuid.UUID
	ActorID   uuid.UUID
}

func (DeleteMessageCommand) CommandType() string {
	return "message.delete"
}

func (c DeleteMessageCommand) Validate() error {
	if c.MessageID == uuid.Nil || c.ActorID == uuid.Nil {
		return clubmail_errors.ErrInvalidInput
	}
	return nil
}
