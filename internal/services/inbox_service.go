package services

import (
	"context"

	"clubmail/internal/domain/message"
	"clubmail/internal/repository"
	clubmail_errors "clubmail/pkg/errors"

	"github.com/google/uuid"
)

// Thread is a fully assembled two-level conversation: the root message and
// its direct replies, newest reply first.
type Thread struct {
	Root        message.Message
	Replies     []message.Message
	Attachments map[uuid.UUID][]message.Attachment
	Entry       *message.MessageRecipient
}

type InboxService struct {
	messageRepo    repository.MessageRepository
	recipientRepo  repository.RecipientRepository
	attachmentRepo repository.AttachmentRepository
	userRepo       repository.UserRepository
}

func NewInboxService(
	messageRepo repository.MessageRepository,
	recipientRepo repository.RecipientRepository,
	attachmentRepo repository.AttachmentRepository,
	userRepo repository.UserRepository,
) *InboxService {
	return &InboxService{
		messageRepo:    messageRepo,
		recipientRepo:  recipientRepo,
		attachmentRepo: attachmentRepo,
		userRepo:       userRepo,
	}
}

// UnreadCount is derived entirely from the ledger joined against live
// messages; entries pointing at deleted messages never count.
func (s *InboxService) UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.recipientRepo.CountUnread(ctx, userID)
}

// UnreadMessages returns the user's unread messages, newest-first.
func (s *InboxService) UnreadMessages(ctx context.Context, userID uuid.UUID) ([]message.Message, error) {
	return s.recipientRepo.GetUnread(ctx, userID)
}

// BuildThread resolves the given message to its thread root and assembles the
// conversation for the viewer. Asking for a reply yields the same thread as
// asking for its root.
func (s *InboxService) BuildThread(ctx context.Context, messageID, viewerID uuid.UUID) (Thread, error) {
	msg, err := s.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		return Thread{}, err
	}

	root := msg
	if msg.IsReply() {
		root, err = s.messageRepo.GetByID(ctx, msg.InReplyTo.UUID)
		if err != nil {
			return Thread{}, err
		}
	}

	allowed, err := s.canView(ctx, root, viewerID)
	if err != nil {
		return Thread{}, err
	}
	if !allowed {
		return Thread{}, clubmail_errors.ErrForbidden
	}

	replies, err := s.messageRepo.GetReplies(ctx, root.ID)
	if err != nil {
		return Thread{}, err
	}

	ids := make([]uuid.UUID, 0, len(replies)+1)
	ids = append(ids, root.ID)
	for _, r := range replies {
		ids = append(ids, r.ID)
	}
	attachments, err := s.attachmentRepo.GetByMessages(ctx, ids)
	if err != nil {
		return Thread{}, err
	}
	byMessage := make(map[uuid.UUID][]message.Attachment, len(attachments))
	for _, a := range attachments {
		byMessage[a.MessageID] = append(byMessage[a.MessageID], a)
	}

	thread := Thread{
		Root:        root,
		Replies:     replies,
		Attachments: byMessage,
	}

	entry, err := s.recipientRepo.Get(ctx, root.ID, viewerID)
	if err == nil {
		thread.Entry = &entry
	} else if err != clubmail_errors.ErrNotFound {
		return Thread{}, err
	}

	return thread, nil
}

// BuildInbox returns the viewer's threads, one per root the viewer sent or
// received, newest root first.
func (s *InboxService) BuildInbox(ctx context.Context, userID uuid.UUID) ([]Thread, error) {
	roots, err := s.messageRepo.GetInboxRoots(ctx, userID)
	if err != nil {
		return nil, err
	}

	threads := make([]Thread, 0, len(roots))
	for _, root := range roots {
		replies, err := s.messageRepo.GetReplies(ctx, root.ID)
		if err != nil {
			return nil, err
		}
		t := Thread{Root: root, Replies: replies}
		entry, err := s.recipientRepo.Get(ctx, root.ID, userID)
		if err == nil {
			t.Entry = &entry
		} else if err != clubmail_errors.ErrNotFound {
			return nil, err
		}
		threads = append(threads, t)
	}
	return threads, nil
}

func (s *InboxService) canView(ctx context.Context, msg message.Message, userID uuid.UUID) (bool, error) {
	if msg.SenderID == userID {
		return true, nil
	}
	isRecipient, err := s.recipientRepo.IsRecipient(ctx, msg.ID, userID)
	if err != nil {
		return false, err
	}
	if isRecipient {
		return true, nil
	}
	viewer, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return false, err
	}
	return viewer.CanModerate(), nil
}
