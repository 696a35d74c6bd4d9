package httpdto

import (
	"time"

	"clubmail/internal/domain/message"
	"clubmail/internal/services"
)

// SendMessageRequest is used for POST /v1/messages. Target selects the
// recipient class: a single user, every active holder of a role, every
// active user, or an explicit user list.
type SendMessageRequest struct {
	Subject string        `json:"subject" binding:"required"`
	Content string        `json:"content" binding:"required"`
	Target  TargetRequest `json:"target" binding:"required"`
}

type TargetRequest struct {
	Kind    string   `json:"kind" binding:"required"`
	UserID  string   `json:"user_id,omitempty"`
	Role    string   `json:"role,omitempty"`
	UserIDs []string `json:"user_ids,omitempty"`
}

// ReplyRequest is used for POST /v1/messages/:id/replies
type ReplyRequest struct {
	Content string `json:"content" binding:"required"`
}

// MessageView is the wire form of a single message.
type MessageView struct {
	ID        string `json:"id"`
	Subject   string `json:"subject"`
	Content   string `json:"content"`
	SenderID  string `json:"sender_id"`
	Type      string `json:"type"`
	InReplyTo string `json:"in_reply_to,omitempty"`
	CreatedAt string `json:"created_at"`
}

// RecipientView is one ledger row with its derived status.
type RecipientView struct {
	RecipientID string `json:"recipient_id"`
	Status      string `json:"status"`
	ReadAt      string `json:"read_at,omitempty"`
}

// AttachmentView is the wire form of attachment metadata.
type AttachmentView struct {
	ID          string `json:"id"`
	MessageID   string `json:"message_id"`
	Filename    string `json:"filename"`
	SizeBytes   int64  `json:"size_bytes"`
	ContentType string `json:"content_type,omitempty"`
	CreatedAt   string `json:"created_at"`
}

// ThreadView is a root with its replies, newest reply first.
type ThreadView struct {
	Root        MessageView      `json:"root"`
	Replies     []MessageView    `json:"replies"`
	Attachments []AttachmentView `json:"attachments,omitempty"`
	Status      string           `json:"status,omitempty"`
	ReadAt      string           `json:"read_at,omitempty"`
}

// UnreadCountView is returned by GET /v1/inbox/unread-count
type UnreadCountView struct {
	Count int64 `json:"count"`
}

func NewMessageView(m message.Message) MessageView {
	view := MessageView{
		ID:        m.ID.String(),
		Subject:   m.Subject,
		Content:   m.Content,
		SenderID:  m.SenderID.String(),
		Type:      m.Type,
		CreatedAt: m.CreatedAt.UTC().Format(time.RFC3339),
	}
	if m.InReplyTo.Valid {
		view.InReplyTo = m.InReplyTo.UUID.String()
	}
	return view
}

func NewRecipientView(r message.MessageRecipient) RecipientView {
	view := RecipientView{
		RecipientID: r.RecipientID.String(),
		Status:      r.Status(),
	}
	if r.ReadAt.Valid {
		view.ReadAt = r.ReadAt.Time.UTC().Format(time.RFC3339)
	}
	return view
}

func NewAttachmentView(a message.Attachment) AttachmentView {
	return AttachmentView{
		ID:          a.ID.String(),
		MessageID:   a.MessageID.String(),
		Filename:    a.Filename,
		SizeBytes:   a.SizeBytes,
		ContentType: a.ContentType,
		CreatedAt:   a.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func NewThreadView(t services.Thread) ThreadView {
	view := ThreadView{
		Root:    NewMessageView(t.Root),
		Replies: make([]MessageView, 0, len(t.Replies)),
	}
	for _, r := range t.Replies {
		view.Replies = append(view.Replies, NewMessageView(r))
	}
	for _, m := range append([]message.Message{t.Root}, t.Replies...) {
		for _, a := range t.Attachments[m.ID] {
			view.Attachments = append(view.Attachments, NewAttachmentView(a))
		}
	}
	if t.Entry != nil {
		view.Status = t.Entry.Status()
		if t.Entry.ReadAt.Valid {
			view.ReadAt = t.Entry.ReadAt.Time.UTC().Format(time.RFC3339)
		}
	}
	return view
}
