package services

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"clubmail/internal/commands"
	"clubmail/internal/domain/event"
	"clubmail/internal/domain/message"
	"clubmail/internal/domain/user"
	"clubmail/internal/repository"
	clubmail_errors "clubmail/pkg/errors"
	"clubmail/pkg/logger"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BlobStore is the external byte-storage collaborator. Failures surface to
// callers; nothing here retries.
type BlobStore interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	Delete(ctx context.Context, key string) error
}

type MessageService struct {
	db             *gorm.DB
	messageRepo    repository.MessageRepository
	recipientRepo  repository.RecipientRepository
	attachmentRepo repository.AttachmentRepository
	userRepo       repository.UserRepository
	outboxRepo     repository.OutboxRepository
	blobs          BlobStore
	bus            *commands.Bus
	log            *logger.Logger
}

func NewMessageService(
	db *gorm.DB,
	messageRepo repository.MessageRepository,
	recipientRepo repository.RecipientRepository,
	attachmentRepo repository.AttachmentRepository,
	userRepo repository.UserRepository,
	outboxRepo repository.OutboxRepository,
	blobs BlobStore,
	bus *commands.Bus,
	log *logger.Logger,
) *MessageService {
	if bus == nil {
		bus = commands.NewBus()
	}
	svc := &MessageService{
		db:             db,
		messageRepo:    messageRepo,
		recipientRepo:  recipientRepo,
		attachmentRepo: attachmentRepo,
		userRepo:       userRepo,
		outboxRepo:     outboxRepo,
		blobs:          blobs,
		bus:            bus,
		log:            log,
	}
	svc.RegisterHandlers()
	return svc
}

func (s *MessageService) RegisterHandlers() {
	s.bus.Register("message.send", commands.HandlerFunc(func(ctx context.Context, cmd commands.Command) (commands.Result, error) {
		typed, ok := cmd.(commands.SendMessageCommand)
		if !ok {
			return commands.Result{}, clubmail_errors.ErrInvalidInput
		}
		return s.executeSend(ctx, typed)
	}))
	s.bus.Register("message.reply", commands.HandlerFunc(func(ctx context.Context, cmd commands.Command) (commands.Result, error) {
		typed, ok := cmd.(commands.ReplyMessageCommand)
		if !ok {
			return commands.Result{}, clubmail_errors.ErrInvalidInput
		}
		return s.executeReply(ctx, typed)
	}))
	s.bus.Register("message.delete", commands.HandlerFunc(func(ctx context.Context, cmd commands.Command) (commands.Result, error) {
		typed, ok := cmd.(commands.DeleteMessageCommand)
		if !ok {
			return commands.Result{}, clubmail_errors.ErrInvalidInput
		}
		return s.executeDelete(ctx, typed)
	}))
}

func (s *MessageService) Bus() *commands.Bus {
	return s.bus
}

func (s *MessageService) HandleSend(ctx context.Context, cmd commands.SendMessageCommand) (commands.Result, error) {
	if err := cmd.Validate(); err != nil {
		return commands.Result{}, err
	}
	return s.bus.Execute(ctx, cmd)
}

func (s *MessageService) HandleReply(ctx context.Context, cmd commands.ReplyMessageCommand) (commands.Result, error) {
	if err := cmd.Validate(); err != nil {
		return commands.Result{}, err
	}
	return s.bus.Execute(ctx, cmd)
}

func (s *MessageService) HandleDelete(ctx context.Context, cmd commands.DeleteMessageCommand) (commands.Result, error) {
	if err := cmd.Validate(); err != nil {
		return commands.Result{}, err
	}
	return s.bus.Execute(ctx, cmd)
}

func (s *MessageService) GetByID(ctx context.Context, messageID uuid.UUID) (message.Message, error) {
	return s.messageRepo.GetByID(ctx, messageID)
}

// CanView reports whether the user has standing on a message: its sender, a
// ledger recipient, or a moderator.
func (s *MessageService) CanView(ctx context.Context, msg message.Message, userID uuid.UUID) (bool, error) {
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

// MarkRead transitions the caller's ledger row to read. Calling it again is
// a no-op; callers that never received the message get ErrNotARecipient.
func (s *MessageService) MarkRead(ctx context.Context, messageID, userID uuid.UUID) error {
	if _, err := s.messageRepo.GetByID(ctx, messageID); err != nil {
		return err
	}

	entry, err := s.recipientRepo.Get(ctx, messageID, userID)
	if err != nil {
		if err == clubmail_errors.ErrNotFound {
			return clubmail_errors.ErrNotARecipient
		}
		return err
	}
	if entry.ReadAt.Valid {
		return nil
	}

	if err := s.recipientRepo.MarkRead(ctx, messageID, userID); err != nil {
		return err
	}

	s.writeOutbox(ctx, messageID, event.TypeMessageRead, map[string]string{
		"message_id": messageID.String(),
		"reader_id":  userID.String(),
	})
	return nil
}

func (s *MessageService) Recipients(ctx context.Context, messageID uuid.UUID) ([]message.MessageRecipient, error) {
	return s.recipientRepo.GetByMessage(ctx, messageID)
}

func (s *MessageService) executeSend(ctx context.Context, cmd commands.SendMessageCommand) (commands.Result, error) {
	sender, err := s.userRepo.GetByID(ctx, cmd.SenderID)
	if err != nil {
		return commands.Result{}, clubmail_errors.ErrUnauthorized
	}

	if cmd.Target.Kind != commands.TargetUser && !sender.CanModerate() {
		return commands.Result{}, clubmail_errors.ErrForbidden
	}

	recipients, msgType, targetRole, err := s.resolveTarget(ctx, cmd)
	if err != nil {
		return commands.Result{}, err
	}

	return s.inTransaction(ctx, func(txs *MessageService) (commands.Result, error) {
		now := time.Now()
		msg := message.Message{
			ID:        uuid.New(),
			Subject:   cmd.Subject,
			Content:   cmd.Content,
			SenderID:  cmd.SenderID,
			Type:      msgType,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := txs.messageRepo.Create(ctx, &msg); err != nil {
			return commands.Result{}, err
		}

		entries := make([]message.MessageRecipient, 0, len(recipients))
		for _, recipientID := range recipients {
			entry := message.MessageRecipient{
				MessageID:   msg.ID,
				RecipientID: recipientID,
				CreatedAt:   now,
				UpdatedAt:   now,
			}
			if targetRole != "" {
				entry.TargetRole.String, entry.TargetRole.Valid = targetRole, true
			}
			entries = append(entries, entry)
		}
		if err := txs.recipientRepo.CreateEntries(ctx, entries); err != nil {
			return commands.Result{}, err
		}

		if err := txs.createOutbox(ctx, msg.ID, event.TypeMessageCreated, msg); err != nil {
			return commands.Result{}, err
		}

		return commands.Result{AggregateID: msg.ID.String(), Payload: msg}, nil
	})
}

func (s *MessageService) executeReply(ctx context.Context, cmd commands.ReplyMessageCommand) (commands.Result, error) {
	parent, err := s.messageRepo.GetByID(ctx, cmd.ParentID)
	if err != nil {
		return commands.Result{}, err
	}

	// Replies always attach to the thread root, even when the caller replied
	// to another reply.
	root := parent
	if parent.IsReply() {
		root, err = s.messageRepo.GetByID(ctx, parent.InReplyTo.UUID)
		if err != nil {
			return commands.Result{}, err
		}
	}

	allowed, err := s.CanView(ctx, root, cmd.SenderID)
	if err != nil {
		return commands.Result{}, err
	}
	if !allowed {
		return commands.Result{}, clubmail_errors.ErrForbidden
	}

	return s.inTransaction(ctx, func(txs *MessageService) (commands.Result, error) {
		now := time.Now()
		reply := message.Message{
			ID:        uuid.New(),
			Subject:   replySubject(root.Subject),
			Content:   cmd.Content,
			SenderID:  cmd.SenderID,
			Type:      message.TypeDirect,
			InReplyTo: uuid.NullUUID{UUID: root.ID, Valid: true},
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := txs.messageRepo.Create(ctx, &reply); err != nil {
			return commands.Result{}, err
		}

		// The root's sender is the reply's sole recipient. A self-reply
		// creates no ledger row.
		if root.SenderID != cmd.SenderID {
			entries := []message.MessageRecipient{{
				MessageID:   reply.ID,
				RecipientID: root.SenderID,
				CreatedAt:   now,
				UpdatedAt:   now,
			}}
			if err := txs.recipientRepo.CreateEntries(ctx, entries); err != nil {
				return commands.Result{}, err
			}
		}

		if err := txs.createOutbox(ctx, reply.ID, event.TypeMessageCreated, reply); err != nil {
			return commands.Result{}, err
		}

		return commands.Result{AggregateID: reply.ID.String(), Payload: reply}, nil
	})
}

func (s *MessageService) executeDelete(ctx context.Context, cmd commands.DeleteMessageCommand) (commands.Result, error) {
	msg, err := s.messageRepo.GetByID(ctx, cmd.MessageID)
	if err != nil {
		return commands.Result{}, err
	}

	actor, err := s.userRepo.GetByID(ctx, cmd.ActorID)
	if err != nil {
		return commands.Result{}, clubmail_errors.ErrUnauthorized
	}
	if msg.SenderID != cmd.ActorID && !actor.CanModerate() {
		return commands.Result{}, clubmail_errors.ErrForbidden
	}

	replyCount, err := s.messageRepo.CountReplies(ctx, cmd.MessageID)
	if err != nil {
		return commands.Result{}, err
	}
	if replyCount > 0 {
		return commands.Result{}, clubmail_errors.ErrHasReplies
	}

	attachments, err := s.attachmentRepo.GetByMessage(ctx, cmd.MessageID)
	if err != nil {
		return commands.Result{}, err
	}

	result, err := s.inTransaction(ctx, func(txs *MessageService) (commands.Result, error) {
		if err := txs.recipientRepo.DeleteByMessage(ctx, cmd.MessageID); err != nil {
			return commands.Result{}, err
		}
		if err := txs.attachmentRepo.DeleteByMessage(ctx, cmd.MessageID); err != nil {
			return commands.Result{}, err
		}
		if err := txs.messageRepo.Delete(ctx, cmd.MessageID); err != nil {
			return commands.Result{}, err
		}
		if err := txs.createOutbox(ctx, cmd.MessageID, event.TypeMessageDeleted, map[string]string{
			"message_id": cmd.MessageID.String(),
			"actor_id":   cmd.ActorID.String(),
		}); err != nil {
			return commands.Result{}, err
		}
		return commands.Result{AggregateID: cmd.MessageID.String()}, nil
	})
	if err != nil {
		return commands.Result{}, err
	}

	// Blob cleanup happens after commit and is best-effort.
	for _, a := range attachments {
		if s.blobs == nil {
			break
		}
		if err := s.blobs.Delete(ctx, a.ObjectKey); err != nil && s.log != nil {
			s.log.Errorf("failed to delete blob %s: %v", a.ObjectKey, err)
		}
	}

	return result, nil
}

// resolveTarget expands the command target to a concrete recipient snapshot.
// Role and broadcast membership is read exactly once here.
func (s *MessageService) resolveTarget(ctx context.Context, cmd commands.SendMessageCommand) ([]uuid.UUID, string, string, error) {
	switch cmd.Target.Kind {
	case commands.TargetUser:
		recipient, err := s.userRepo.GetByID(ctx, cmd.Target.UserID)
		if err != nil {
			return nil, "", "", clubmail_errors.ErrInvalidInput
		}
		if !recipient.IsActive {
			return nil, "", "", clubmail_errors.ErrInvalidInput
		}
		return []uuid.UUID{recipient.ID}, message.TypeDirect, "", nil

	case commands.TargetRole:
		if !validRole(cmd.Target.Role) {
			return nil, "", "", clubmail_errors.ErrInvalidInput
		}
		members, err := s.userRepo.GetActiveByRole(ctx, cmd.Target.Role)
		if err != nil {
			return nil, "", "", err
		}
		return collectIDs(members, cmd.SenderID), message.TypeRole, cmd.Target.Role, nil

	case commands.TargetBroadcast:
		members, err := s.userRepo.GetActiveExcept(ctx, cmd.SenderID)
		if err != nil {
			return nil, "", "", err
		}
		return collectIDs(members, cmd.SenderID), message.TypeBroadcast, "", nil

	case commands.TargetSegment:
		ids := make([]uuid.UUID, 0, len(cmd.Target.UserIDs))
		for _, id := range cmd.Target.UserIDs {
			if id != cmd.SenderID {
				ids = append(ids, id)
			}
		}
		return ids, message.TypeSegment, "", nil
	}
	return nil, "", "", clubmail_errors.ErrInvalidInput
}

// inTransaction runs fn against transaction-scoped repositories. With no
// database configured (tests run on in-memory repositories) fn runs
// directly.
func (s *MessageService) inTransaction(ctx context.Context, fn func(*MessageService) (commands.Result, error)) (commands.Result, error) {
	if s.db == nil {
		return fn(s)
	}

	var result commands.Result
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txs := &MessageService{
			db:             nil,
			messageRepo:    repository.NewMessageRepository(tx),
			recipientRepo:  repository.NewRecipientRepository(tx),
			attachmentRepo: repository.NewAttachmentRepository(tx),
			userRepo:       s.userRepo,
			outboxRepo:     repository.NewOutboxRepository(tx),
			blobs:          s.blobs,
			bus:            s.bus,
			log:            s.log,
		}
		res, err := fn(txs)
		if err != nil {
			return err
		}
		result = res
		return nil
	})
	if err != nil {
		return commands.Result{}, err
	}
	return result, nil
}

func (s *MessageService) createOutbox(ctx context.Context, aggregateID uuid.UUID, eventType string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return s.outboxRepo.Create(ctx, &event.OutboxEvent{
		ID:            uuid.New(),
		AggregateType: "message",
		AggregateID:   aggregateID,
		EventType:     eventType,
		Payload:       string(body),
		Status:        event.StatusPending,
		MaxRetries:    5,
		CreatedAt:     time.Now(),
	})
}

// writeOutbox is the non-transactional variant used outside the send path;
// a failed event write is logged, not surfaced.
func (s *MessageService) writeOutbox(ctx context.Context, aggregateID uuid.UUID, eventType string, payload interface{}) {
	if err := s.createOutbox(ctx, aggregateID, eventType, payload); err != nil && s.log != nil {
		s.log.Errorf("failed to write outbox event %s: %v", eventType, err)
	}
}

func collectIDs(users []user.User, exclude uuid.UUID) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(users))
	for _, u := range users {
		if u.ID != exclude {
			ids = append(ids, u.ID)
		}
	}
	return ids
}

func validRole(role string) bool {
	switch role {
	case user.RoleAdmin, user.RoleModerator, user.RoleMember, user.RoleBadgeHolder:
		return true
	}
	return false
}

func replySubject(subject string) string {
	if len(subject) >= 4 && subject[:4] == "Re: " {
		return subject
	}
	return "Re: " + subject
}
