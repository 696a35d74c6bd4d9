package services

import (
	"context"
	"strings"
	"testing"

	clubmail_errors "clubmail/pkg/errors"

	"github.com/google/uuid"
)

func TestAttach(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	msg := sendDirect(t, env, env.alice.ID, env.bob.ID, "docs")

	attachment, err := env.attachments.Attach(ctx, AttachInput{
		MessageID:   msg.ID,
		ActorID:     env.alice.ID,
		Filename:    "report.pdf",
		ContentType: "application/pdf",
		Size:        4,
		Body:        strings.NewReader("%PDF"),
	})
	if err != nil {
		t.Fatalf("Attach: %v", err)
	}

	if attachment.MessageID != msg.ID {
		t.Errorf("attachment bound to %s, want %s", attachment.MessageID, msg.ID)
	}
	if !strings.HasSuffix(attachment.ObjectKey, ".pdf") {
		t.Errorf("object key lost the extension: %q", attachment.ObjectKey)
	}
	if _, ok := env.blobs.puts[attachment.ObjectKey]; !ok {
		t.Error("blob never reached the store")
	}
	if _, err := env.store.GetAttachment(ctx, attachment.ID); err != nil {
		t.Errorf("metadata row missing: %v", err)
	}
}

func TestAttachErrors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	msg := sendDirect(t, env, env.alice.ID, env.bob.ID, "host")

	tests := []struct {
		name    string
		in      AttachInput
		failPut bool
		want    error
	}{
		{
			name: "missing message",
			in: AttachInput{
				MessageID: uuid.New(), ActorID: env.alice.ID,
				Filename: "a.txt", Size: 1, Body: strings.NewReader("a"),
			},
			want: clubmail_errors.ErrNotFound,
		},
		{
			name: "non-sender",
			in: AttachInput{
				MessageID: msg.ID, ActorID: env.bob.ID,
				Filename: "a.txt", Size: 1, Body: strings.NewReader("a"),
			},
			want: clubmail_errors.ErrForbidden,
		},
		{
			name: "empty file",
			in: AttachInput{
				MessageID: msg.ID, ActorID: env.alice.ID,
				Filename: "a.txt", Size: 0, Body: strings.NewReader(""),
			},
			want: clubmail_errors.ErrInvalidInput,
		},
		{
			name: "over size limit",
			in: AttachInput{
				MessageID: msg.ID, ActorID: env.alice.ID,
				Filename: "big.bin", Size: 2 << 20, Body: strings.NewReader("x"),
			},
			want: clubmail_errors.ErrInvalidInput,
		},
		{
			name: "blob store down",
			in: AttachInput{
				MessageID: msg.ID, ActorID: env.alice.ID,
				Filename: "a.txt", Size: 1, Body: strings.NewReader("a"),
			},
			failPut: true,
			want:    clubmail_errors.ErrStorageUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env.blobs.failPut = tt.failPut
			defer func() { env.blobs.failPut = false }()

			_, err := env.attachments.Attach(ctx, tt.in)
			if err != tt.want {
				t.Errorf("Attach() error = %v, want %v", err, tt.want)
			}
		})
	}

	// No metadata rows should exist after the failures above.
	rows, _ := env.store.GetAttachmentsByMessage(ctx, msg.ID)
	if len(rows) != 0 {
		t.Errorf("failed attaches left metadata rows: %+v", rows)
	}
}

func TestDetach(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	msg := sendDirect(t, env, env.alice.ID, env.bob.ID, "cleanup")
	attachment, err := env.attachments.Attach(ctx, AttachInput{
		MessageID: msg.ID, ActorID: env.alice.ID,
		Filename: "old.txt", Size: 3, Body: strings.NewReader("old"),
	})
	if err != nil {
		t.Fatalf("attach: %v", err)
	}

	// A recipient without moderator standing cannot detach.
	if err := env.attachments.Detach(ctx, attachment.ID, env.bob.ID); err != clubmail_errors.ErrForbidden {
		t.Errorf("recipient detach: expected ErrForbidden, got %v", err)
	}

	if err := env.attachments.Detach(ctx, attachment.ID, env.alice.ID); err != nil {
		t.Fatalf("Detach: %v", err)
	}
	if _, err := env.store.GetAttachment(ctx, attachment.ID); err != clubmail_errors.ErrNotFound {
		t.Error("metadata row survived detach")
	}
	if _, ok := env.blobs.puts[attachment.ObjectKey]; ok {
		t.Error("blob survived detach")
	}

	if err := env.attachments.Detach(ctx, attachment.ID, env.alice.ID); err != clubmail_errors.ErrNotFound {
		t.Errorf("second detach: expected ErrNotFound, got %v", err)
	}
}

func TestDetachByModerator(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	msg := sendDirect(t, env, env.alice.ID, env.bob.ID, "moderated")
	attachment, err := env.attachments.Attach(ctx, AttachInput{
		MessageID: msg.ID, ActorID: env.alice.ID,
		Filename: "spam.png", Size: 3, Body: strings.NewReader("png"),
	})
	if err != nil {
		t.Fatalf("attach: %v", err)
	}

	if err := env.attachments.Detach(ctx, attachment.ID, env.mod.ID); err != nil {
		t.Errorf("moderator detach: %v", err)
	}
}

func TestDownloadURL(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	msg := sendDirect(t, env, env.alice.ID, env.bob.ID, "share")
	attachment, err := env.attachments.Attach(ctx, AttachInput{
		MessageID: msg.ID, ActorID: env.alice.ID,
		Filename: "notes.txt", Size: 5, Body: strings.NewReader("notes"),
	})
	if err != nil {
		t.Fatalf("attach: %v", err)
	}

	// Sender, recipient, and moderator can all fetch a link.
	for _, actor := range []uuid.UUID{env.alice.ID, env.bob.ID, env.mod.ID} {
		url, err := env.attachments.DownloadURL(ctx, attachment.ID, actor)
		if err != nil {
			t.Fatalf("DownloadURL(%s): %v", actor, err)
		}
		if !strings.Contains(url, attachment.ObjectKey) {
			t.Errorf("url %q does not reference the object key", url)
		}
	}

	// A bystander has no standing.
	if _, err := env.attachments.DownloadURL(ctx, attachment.ID, env.badge.ID); err != clubmail_errors.ErrForbidden {
		t.Errorf("bystander: expected ErrForbidden, got %v", err)
	}

	if _, err := env.attachments.DownloadURL(ctx, uuid.New(), env.alice.ID); err != clubmail_errors.ErrNotFound {
		t.Errorf("missing attachment: expected ErrNotFound, got %v", err)
	}
}

func TestAttachWithoutBlobStore(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// A deployment without blob storage configured wires a nil store.
	svc := NewAttachmentService(
		env.store.Attachments(), env.store.Messages(), env.store.Recipients(),
		env.store.Users(), nil, 1<<20, nil,
	)

	msg := sendDirect(t, env, env.alice.ID, env.bob.ID, "no-storage")

	_, err := svc.Attach(ctx, AttachInput{
		MessageID: msg.ID, ActorID: env.alice.ID,
		Filename: "a.txt", Size: 1, Body: strings.NewReader("a"),
	})
	if err != clubmail_errors.ErrStorageUnavailable {
		t.Errorf("Attach: expected ErrStorageUnavailable, got %v", err)
	}

	if _, err := svc.DownloadURL(ctx, uuid.New(), env.alice.ID); err != clubmail_errors.ErrNotFound {
		t.Errorf("DownloadURL missing row: expected ErrNotFound, got %v", err)
	}

	// Rows written while storage was up must still be removable.
	attachment, err := env.attachments.Attach(ctx, AttachInput{
		MessageID: msg.ID, ActorID: env.alice.ID,
		Filename: "b.txt", Size: 1, Body: strings.NewReader("b"),
	})
	if err != nil {
		t.Fatalf("attach: %v", err)
	}
	if _, err := svc.DownloadURL(ctx, attachment.ID, env.alice.ID); err != clubmail_errors.ErrStorageUnavailable {
		t.Errorf("DownloadURL: expected ErrStorageUnavailable, got %v", err)
	}
	if err := svc.Detach(ctx, attachment.ID, env.alice.ID); err != nil {
		t.Fatalf("Detach: %v", err)
	}
	if _, err := env.store.GetAttachment(ctx, attachment.ID); err != clubmail_errors.ErrNotFound {
		t.Error("metadata row survived detach")
	}
}
