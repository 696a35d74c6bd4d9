package services

import (
	"context"
	"io"
	"path/filepath"
	"time"

	"clubmail/internal/domain/message"
	"clubmail/internal/repository"
	clubmail_errors "clubmail/pkg/errors"
	"clubmail/pkg/logger"

	"github.com/google/uuid"
)

// BlobPresigner is implemented by blob stores that can mint time-limited
// download URLs. Stores without it simply cannot serve downloads.
type BlobPresigner interface {
	PresignGet(ctx context.Context, key string) (string, error)
}

type AttachmentService struct {
	attachmentRepo repository.AttachmentRepository
	messageRepo    repository.MessageRepository
	recipientRepo  repository.RecipientRepository
	userRepo       repository.UserRepository
	blobs          BlobStore
	maxFileBytes   int64
	log            *logger.Logger
}

func NewAttachmentService(
	attachmentRepo repository.AttachmentRepository,
	messageRepo repository.MessageRepository,
	recipientRepo repository.RecipientRepository,
	userRepo repository.UserRepository,
	blobs BlobStore,
	maxFileBytes int64,
	log *logger.Logger,
) *AttachmentService {
	return &AttachmentService{
		attachmentRepo: attachmentRepo,
		messageRepo:    messageRepo,
		recipientRepo:  recipientRepo,
		userRepo:       userRepo,
		blobs:          blobs,
		maxFileBytes:   maxFileBytes,
		log:            log,
	}
}

type AttachInput struct {
	MessageID   uuid.UUID
	ActorID     uuid.UUID
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Attach uploads the bytes to the blob store and records the metadata row.
// The blob store being down surfaces as ErrStorageUnavailable; no metadata
// row is written in that case.
func (s *AttachmentService) Attach(ctx context.Context, in AttachInput) (message.Attachment, error) {
	if in.Filename == "" || in.Body == nil || in.Size <= 0 {
		return message.Attachment{}, clubmail_errors.ErrInvalidInput
	}
	if s.maxFileBytes > 0 && in.Size > s.maxFileBytes {
		return message.Attachment{}, clubmail_errors.ErrInvalidInput
	}

	msg, err := s.messageRepo.GetByID(ctx, in.MessageID)
	if err != nil {
		return message.Attachment{}, err
	}
	if msg.SenderID != in.ActorID {
		return message.Attachment{}, clubmail_errors.ErrForbidden
	}
	if s.blobs == nil {
		return message.Attachment{}, clubmail_errors.ErrStorageUnavailable
	}

	attachmentID := uuid.New()
	key := objectKey(in.MessageID, attachmentID, in.Filename)

	if err := s.blobs.Put(ctx, key, in.Body, in.Size, in.ContentType); err != nil {
		return message.Attachment{}, clubmail_errors.ErrStorageUnavailable
	}

	attachment := message.Attachment{
		ID:          attachmentID,
		MessageID:   in.MessageID,
		Filename:    in.Filename,
		ObjectKey:   key,
		SizeBytes:   in.Size,
		ContentType: in.ContentType,
		CreatedAt:   time.Now(),
	}
	if err := s.attachmentRepo.Create(ctx, &attachment); err != nil {
		// The blob is already up; try to reclaim it before failing.
		if delErr := s.blobs.Delete(ctx, key); delErr != nil && s.log != nil {
			s.log.Errorf("failed to reclaim blob %s: %v", key, delErr)
		}
		return message.Attachment{}, err
	}
	return attachment, nil
}

// Detach removes the metadata row, then deletes the blob best-effort. A
// surviving blob is an orphan in the bucket, never a dangling row.
func (s *AttachmentService) Detach(ctx context.Context, attachmentID, actorID uuid.UUID) error {
	attachment, err := s.attachmentRepo.GetByID(ctx, attachmentID)
	if err != nil {
		return err
	}

	msg, err := s.messageRepo.GetByID(ctx, attachment.MessageID)
	if err != nil {
		return err
	}
	if msg.SenderID != actorID {
		actor, err := s.userRepo.GetByID(ctx, actorID)
		if err != nil {
			return clubmail_errors.ErrUnauthorized
		}
		if !actor.CanModerate() {
			return clubmail_errors.ErrForbidden
		}
	}

	if err := s.attachmentRepo.Delete(ctx, attachmentID); err != nil {
		return err
	}
	if s.blobs == nil {
		return nil
	}
	if err := s.blobs.Delete(ctx, attachment.ObjectKey); err != nil && s.log != nil {
		s.log.Errorf("failed to delete blob %s: %v", attachment.ObjectKey, err)
	}
	return nil
}

// DownloadURL mints a time-limited URL for the attachment's blob. The actor
// must be the message sender, one of its recipients, or a moderator.
func (s *AttachmentService) DownloadURL(ctx context.Context, attachmentID, actorID uuid.UUID) (string, error) {
	attachment, err := s.attachmentRepo.GetByID(ctx, attachmentID)
	if err != nil {
		return "", err
	}

	msg, err := s.messageRepo.GetByID(ctx, attachment.MessageID)
	if err != nil {
		return "", err
	}

	if msg.SenderID != actorID {
		isRecipient, err := s.recipientRepo.IsRecipient(ctx, msg.ID, actorID)
		if err != nil {
			return "", err
		}
		if !isRecipient {
			actor, err := s.userRepo.GetByID(ctx, actorID)
			if err != nil {
				return "", clubmail_errors.ErrUnauthorized
			}
			if !actor.CanModerate() {
				return "", clubmail_errors.ErrForbidden
			}
		}
	}

	presigner, ok := s.blobs.(BlobPresigner)
	if !ok {
		return "", clubmail_errors.ErrStorageUnavailable
	}
	url, err := presigner.PresignGet(ctx, attachment.ObjectKey)
	if err != nil {
		return "", clubmail_errors.ErrStorageUnavailable
	}
	return url, nil
}

func (s *AttachmentService) ListByMessage(ctx context.Context, messageID uuid.UUID) ([]message.Attachment, error) {
	return s.attachmentRepo.GetByMessage(ctx, messageID)
}

func objectKey(messageID, attachmentID uuid.UUID, filename string) string {
	return "attachments/" + messageID.String() + "/" + attachmentID.String() + filepath.Ext(filename)
}
