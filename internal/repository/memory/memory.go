// Package memory provides in-memory implementations of the repository
// interfaces. They back service and handler tests and the local seed
// tooling; the invariants they enforce (idempotent fan-out, guarded read
// transitions, orphan exclusion) mirror the Postgres implementations.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"clubmail/internal/domain/event"
	"clubmail/internal/domain/message"
	"clubmail/internal/domain/user"
	"clubmail/internal/repository"
	clubmail_errors "clubmail/pkg/errors"

	"github.com/google/uuid"
)

type recipientKey struct {
	messageID   uuid.UUID
	recipientID uuid.UUID
}

// Store holds every aggregate behind one mutex. It satisfies all of the
// repository interfaces; hand the same Store to each consumer.
type Store struct {
	mu          sync.RWMutex
	users       map[uuid.UUID]user.User
	messages    map[uuid.UUID]message.Message
	recipients  map[recipientKey]message.MessageRecipient
	attachments map[uuid.UUID]message.Attachment
	outbox      map[uuid.UUID]event.OutboxEvent
}

func NewStore() *Store {
	return &Store{
		users:       make(map[uuid.UUID]user.User),
		messages:    make(map[uuid.UUID]message.Message),
		recipients:  make(map[recipientKey]message.MessageRecipient),
		attachments: make(map[uuid.UUID]message.Attachment),
		outbox:      make(map[uuid.UUID]event.OutboxEvent),
	}
}

// Users

func (s *Store) Create(ctx context.Context, u *user.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.ID]; ok {
		return clubmail_errors.ErrAlreadyExists
	}
	for _, existing := range s.users {
		if u.Username.Valid && existing.Username.Valid && existing.Username.String == u.Username.String {
			return clubmail_errors.ErrAlreadyExists
		}
		if u.Email.Valid && existing.Email.Valid && existing.Email.String == u.Email.String {
			return clubmail_errors.ErrAlreadyExists
		}
	}
	s.users[u.ID] = *u
	return nil
}

func (s *Store) GetByID(ctx context.Context, id uuid.UUID) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return user.User{}, clubmail_errors.ErrNotFound
	}
	return u, nil
}

func (s *Store) GetByUsername(ctx context.Context, username string) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Username.Valid && u.Username.String == username {
			return u, nil
		}
	}
	return user.User{}, clubmail_errors.ErrNotFound
}

func (s *Store) GetByEmail(ctx context.Context, email string) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Email.Valid && u.Email.String == email {
			return u, nil
		}
	}
	return user.User{}, clubmail_errors.ErrNotFound
}

func (s *Store) GetActiveByRole(ctx context.Context, role string) ([]user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var users []user.User
	for _, u := range s.users {
		if u.Role == role && u.IsActive {
			users = append(users, u)
		}
	}
	sortUsers(users)
	return users, nil
}

func (s *Store) GetActiveExcept(ctx context.Context, excludeID uuid.UUID) ([]user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var users []user.User
	for _, u := range s.users {
		if u.ID != excludeID && u.IsActive {
			users = append(users, u)
		}
	}
	sortUsers(users)
	return users, nil
}

// Messages

func (s *Store) CreateMessage(ctx context.Context, m *message.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.messages[m.ID]; ok {
		return clubmail_errors.ErrAlreadyExists
	}
	s.messages[m.ID] = *m
	return nil
}

func (s *Store) GetMessage(ctx context.Context, id uuid.UUID) (message.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.messages[id]
	if !ok {
		return message.Message{}, clubmail_errors.ErrNotFound
	}
	return m, nil
}

func (s *Store) GetReplies(ctx context.Context, rootID uuid.UUID) ([]message.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var replies []message.Message
	for _, m := range s.messages {
		if m.InReplyTo.Valid && m.InReplyTo.UUID == rootID {
			replies = append(replies, m)
		}
	}
	sortNewestFirst(replies)
	return replies, nil
}

func (s *Store) CountReplies(ctx context.Context, rootID uuid.UUID) (int64, error) {
	replies, _ := s.GetReplies(ctx, rootID)
	return int64(len(replies)), nil
}

func (s *Store) GetInboxRoots(ctx context.Context, userID uuid.UUID) ([]message.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var roots []message.Message
	for _, m := range s.messages {
		if m.InReplyTo.Valid {
			continue
		}
		_, received := s.recipients[recipientKey{m.ID, userID}]
		if m.SenderID == userID || received {
			roots = append(roots, m)
		}
	}
	sortNewestFirst(roots)
	return roots, nil
}

func (s *Store) DeleteMessage(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.messages[id]; !ok {
		return clubmail_errors.ErrNotFound
	}
	delete(s.messages, id)
	return nil
}

// Recipient ledger

func (s *Store) CreateEntries(ctx context.Context, entries []message.MessageRecipient) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range entries {
		key := recipientKey{e.MessageID, e.RecipientID}
		if _, ok := s.recipients[key]; ok {
			continue
		}
		s.recipients[key] = e
	}
	return nil
}

func (s *Store) Get(ctx context.Context, messageID, recipientID uuid.UUID) (message.MessageRecipient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.recipients[recipientKey{messageID, recipientID}]
	if !ok {
		return message.MessageRecipient{}, clubmail_errors.ErrNotFound
	}
	return e, nil
}

func (s *Store) IsRecipient(ctx context.Context, messageID, recipientID uuid.UUID) (bool, error) {
	_, err := s.Get(ctx, messageID, recipientID)
	if err != nil {
		return false, nil
	}
	return true, nil
}

func (s *Store) GetByMessage(ctx context.Context, messageID uuid.UUID) ([]message.MessageRecipient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var entries []message.MessageRecipient
	for key, e := range s.recipients {
		if key.messageID == messageID {
			entries = append(entries, e)
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].CreatedAt.Before(entries[j].CreatedAt)
	})
	return entries, nil
}

func (s *Store) MarkRead(ctx context.Context, messageID, recipientID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := recipientKey{messageID, recipientID}
	e, ok := s.recipients[key]
	if !ok {
		return clubmail_errors.ErrNotARecipient
	}
	if e.ReadAt.Valid {
		return nil
	}
	now := time.Now()
	e.ReadAt.Time, e.ReadAt.Valid = now, true
	e.UpdatedAt = now
	s.recipients[key] = e
	return nil
}

func (s *Store) CountUnread(ctx context.Context, recipientID uuid.UUID) (int64, error) {
	msgs, err := s.GetUnread(ctx, recipientID)
	if err != nil {
		return 0, err
	}
	return int64(len(msgs)), nil
}

func (s *Store) GetUnread(ctx context.Context, recipientID uuid.UUID) ([]message.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var msgs []message.Message
	for key, e := range s.recipients {
		if key.recipientID != recipientID || e.ReadAt.Valid {
			continue
		}
		// Entries whose message is gone are invisible, same as the SQL join.
		m, ok := s.messages[key.messageID]
		if !ok {
			continue
		}
		msgs = append(msgs, m)
	}
	sortNewestFirst(msgs)
	return msgs, nil
}

func (s *Store) DeleteByMessage(ctx context.Context, messageID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key := range s.recipients {
		if key.messageID == messageID {
			delete(s.recipients, key)
		}
	}
	return nil
}

// Attachments

func (s *Store) CreateAttachment(ctx context.Context, a *message.Attachment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.attachments[a.ID]; ok {
		return clubmail_errors.ErrAlreadyExists
	}
	s.attachments[a.ID] = *a
	return nil
}

func (s *Store) GetAttachment(ctx context.Context, id uuid.UUID) (message.Attachment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.attachments[id]
	if !ok {
		return message.Attachment{}, clubmail_errors.ErrNotFound
	}
	return a, nil
}

func (s *Store) GetAttachmentsByMessage(ctx context.Context, messageID uuid.UUID) ([]message.Attachment, error) {
	return s.GetAttachmentsByMessages(ctx, []uuid.UUID{messageID})
}

func (s *Store) GetAttachmentsByMessages(ctx context.Context, messageIDs []uuid.UUID) ([]message.Attachment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	wanted := make(map[uuid.UUID]bool, len(messageIDs))
	for _, id := range messageIDs {
		wanted[id] = true
	}
	var attachments []message.Attachment
	for _, a := range s.attachments {
		if wanted[a.MessageID] {
			attachments = append(attachments, a)
		}
	}
	sort.Slice(attachments, func(i, j int) bool {
		return attachments[i].CreatedAt.Before(attachments[j].CreatedAt)
	})
	return attachments, nil
}

func (s *Store) DeleteAttachment(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.attachments[id]; !ok {
		return clubmail_errors.ErrNotFound
	}
	delete(s.attachments, id)
	return nil
}

func (s *Store) DeleteAttachmentsByMessage(ctx context.Context, messageID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, a := range s.attachments {
		if a.MessageID == messageID {
			delete(s.attachments, id)
		}
	}
	return nil
}

// Outbox

func (s *Store) CreateEvent(ctx context.Context, e *event.OutboxEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outbox[e.ID] = *e
	return nil
}

func (s *Store) GetPending(ctx context.Context, limit int) ([]event.OutboxEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var events []event.OutboxEvent
	for _, e := range s.outbox {
		if e.Status == event.StatusPending && e.RetryCount < e.MaxRetries {
			events = append(events, e)
		}
	}
	sort.Slice(events, func(i, j int) bool {
		return events[i].CreatedAt.Before(events[j].CreatedAt)
	})
	if limit > 0 && len(events) > limit {
		events = events[:limit]
	}
	return events, nil
}

func (s *Store) MarkProcessing(ctx context.Context, id uuid.UUID) error {
	return s.setEventStatus(id, event.StatusProcessing, "")
}

func (s *Store) MarkCompleted(ctx context.Context, id uuid.UUID) error {
	return s.setEventStatus(id, event.StatusCompleted, "")
}

func (s *Store) MarkFailed(ctx context.Context, id uuid.UUID, errorMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.outbox[id]
	if !ok {
		return clubmail_errors.ErrNotFound
	}
	e.RetryCount++
	e.Status = event.StatusPending
	if e.RetryCount >= e.MaxRetries {
		e.Status = event.StatusFailed
	}
	e.ErrorMessage.String, e.ErrorMessage.Valid = errorMsg, errorMsg != ""
	s.outbox[id] = e
	return nil
}

func (s *Store) setEventStatus(id uuid.UUID, status, errorMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.outbox[id]
	if !ok {
		return clubmail_errors.ErrNotFound
	}
	e.Status = status
	if status == event.StatusCompleted {
		e.ProcessedAt.Time, e.ProcessedAt.Valid = time.Now(), true
	}
	e.ErrorMessage.String, e.ErrorMessage.Valid = errorMsg, errorMsg != ""
	s.outbox[id] = e
	return nil
}

func sortNewestFirst(msgs []message.Message) {
	sort.Slice(msgs, func(i, j int) bool {
		if msgs[i].CreatedAt.Equal(msgs[j].CreatedAt) {
			return msgs[i].ID.String() > msgs[j].ID.String()
		}
		return msgs[i].CreatedAt.After(msgs[j].CreatedAt)
	})
}

func sortUsers(users []user.User) {
	sort.Slice(users, func(i, j int) bool {
		return users[i].ID.String() < users[j].ID.String()
	})
}

// Interface views. Users and Recipients are satisfied by Store directly;
// the rest need renamed methods to avoid clashing signatures.

func (s *Store) Users() repository.UserRepository { return s }

func (s *Store) Recipients() repository.RecipientRepository { return s }

func (s *Store) Messages() repository.MessageRepository { return messagesView{s} }

func (s *Store) Attachments() repository.AttachmentRepository { return attachmentsView{s} }

func (s *Store) Outbox() repository.OutboxRepository { return outboxView{s} }

type messagesView struct{ s *Store }

func (v messagesView) Create(ctx context.Context, m *message.Message) error {
	return v.s.CreateMessage(ctx, m)
}

func (v messagesView) GetByID(ctx context.Context, id uuid.UUID) (message.Message, error) {
	return v.s.GetMessage(ctx, id)
}

func (v messagesView) GetReplies(ctx context.Context, rootID uuid.UUID) ([]message.Message, error) {
	return v.s.GetReplies(ctx, rootID)
}

func (v messagesView) CountReplies(ctx context.Context, rootID uuid.UUID) (int64, error) {
	return v.s.CountReplies(ctx, rootID)
}

func (v messagesView) GetInboxRoots(ctx context.Context, userID uuid.UUID) ([]message.Message, error) {
	return v.s.GetInboxRoots(ctx, userID)
}

func (v messagesView) Delete(ctx context.Context, id uuid.UUID) error {
	return v.s.DeleteMessage(ctx, id)
}

type attachmentsView struct{ s *Store }

func (v attachmentsView) Create(ctx context.Context, a *message.Attachment) error {
	return v.s.CreateAttachment(ctx, a)
}

func (v attachmentsView) GetByID(ctx context.Context, id uuid.UUID) (message.Attachment, error) {
	return v.s.GetAttachment(ctx, id)
}

func (v attachmentsView) GetByMessage(ctx context.Context, messageID uuid.UUID) ([]message.Attachment, error) {
	return v.s.GetAttachmentsByMessage(ctx, messageID)
}

func (v attachmentsView) GetByMessages(ctx context.Context, messageIDs []uuid.UUID) ([]message.Attachment, error) {
	return v.s.GetAttachmentsByMessages(ctx, messageIDs)
}

func (v attachmentsView) Delete(ctx context.Context, id uuid.UUID) error {
	return v.s.DeleteAttachment(ctx, id)
}

func (v attachmentsView) DeleteByMessage(ctx context.Context, messageID uuid.UUID) error {
	return v.s.DeleteAttachmentsByMessage(ctx, messageID)
}

type outboxView struct{ s *Store }

func (v outboxView) Create(ctx context.Context, e *event.OutboxEvent) error {
	return v.s.CreateEvent(ctx, e)
}

func (v outboxView) GetPending(ctx context.Context, limit int) ([]event.OutboxEvent, error) {
	return v.s.GetPending(ctx, limit)
}

func (v outboxView) MarkProcessing(ctx context.Context, id uuid.UUID) error {
	return v.s.MarkProcessing(ctx, id)
}

func (v outboxView) MarkCompleted(ctx context.Context, id uuid.UUID) error {
	return v.s.MarkCompleted(ctx, id)
}

func (v outboxView) MarkFailed(ctx context.Context, id uuid.UUID, errorMsg string) error {
	return v.s.MarkFailed(ctx, id, errorMsg)
}
