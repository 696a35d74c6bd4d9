package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"clubmail/internal/commands"
	"clubmail/internal/domain/message"
	clubmail_errors "clubmail/pkg/errors"
)

func TestUnreadExcludesDeletedMessages(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	keep := sendDirect(t, env, env.alice.ID, env.bob.ID, "keep")
	time.Sleep(2 * time.Millisecond)
	doomed := sendDirect(t, env, env.alice.ID, env.bob.ID, "doomed")

	if count, _ := env.inbox.UnreadCount(ctx, env.bob.ID); count != 2 {
		t.Fatalf("precondition: unread = %d", count)
	}

	if _, err := env.messages.HandleDelete(ctx, commands.DeleteMessageCommand{
		MessageID: doomed.ID, ActorID: env.alice.ID,
	}); err != nil {
		t.Fatalf("delete: %v", err)
	}

	count, err := env.inbox.UnreadCount(ctx, env.bob.ID)
	if err != nil {
		t.Fatalf("UnreadCount: %v", err)
	}
	if count != 1 {
		t.Errorf("unread after delete = %d, want 1", count)
	}

	msgs, err := env.inbox.UnreadMessages(ctx, env.bob.ID)
	if err != nil {
		t.Fatalf("UnreadMessages: %v", err)
	}
	if len(msgs) != 1 || msgs[0].ID != keep.ID {
		t.Errorf("unexpected unread list: %+v", msgs)
	}
}

func TestUnreadNewestFirst(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	sendDirect(t, env, env.alice.ID, env.bob.ID, "older")
	time.Sleep(2 * time.Millisecond)
	newer := sendDirect(t, env, env.alice.ID, env.bob.ID, "newer")

	msgs, err := env.inbox.UnreadMessages(ctx, env.bob.ID)
	if err != nil {
		t.Fatalf("UnreadMessages: %v", err)
	}
	if len(msgs) != 2 || msgs[0].ID != newer.ID {
		t.Errorf("unread not newest-first: %+v", msgs)
	}
}

func TestBuildThreadFromReplyResolvesRoot(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	root := sendDirect(t, env, env.alice.ID, env.bob.ID, "topic")
	first, err := env.messages.HandleReply(ctx, commands.ReplyMessageCommand{
		ParentID: root.ID, SenderID: env.bob.ID, Content: "first",
	})
	if err != nil {
		t.Fatalf("reply: %v", err)
	}
	time.Sleep(2 * time.Millisecond)
	second, err := env.messages.HandleReply(ctx, commands.ReplyMessageCommand{
		ParentID: root.ID, SenderID: env.alice.ID, Content: "second",
	})
	if err != nil {
		t.Fatalf("reply: %v", err)
	}

	replyID := first.Payload.(message.Message).ID
	thread, err := env.inbox.BuildThread(ctx, replyID, env.bob.ID)
	if err != nil {
		t.Fatalf("BuildThread: %v", err)
	}

	if thread.Root.ID != root.ID {
		t.Errorf("thread root = %s, want %s", thread.Root.ID, root.ID)
	}
	if len(thread.Replies) != 2 {
		t.Fatalf("thread has %d replies, want 2", len(thread.Replies))
	}
	if thread.Replies[0].ID != second.Payload.(message.Message).ID {
		t.Error("replies are not newest-first")
	}
	if thread.Entry == nil || thread.Entry.Status() != message.StatusDelivered {
		t.Errorf("viewer entry missing or wrong: %+v", thread.Entry)
	}
}

func TestBuildThreadStanding(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	root := sendDirect(t, env, env.alice.ID, env.bob.ID, "private")

	if _, err := env.inbox.BuildThread(ctx, root.ID, env.badge.ID); err != clubmail_errors.ErrForbidden {
		t.Errorf("bystander: expected ErrForbidden, got %v", err)
	}
	if _, err := env.inbox.BuildThread(ctx, root.ID, env.mod.ID); err != nil {
		t.Errorf("moderator: %v", err)
	}
	if _, err := env.inbox.BuildThread(ctx, root.ID, env.alice.ID); err != nil {
		t.Errorf("sender: %v", err)
	}
}

func TestBuildThreadIncludesAttachments(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	root := sendDirect(t, env, env.alice.ID, env.bob.ID, "with file")
	attachment, err := env.attachments.Attach(ctx, AttachInput{
		MessageID:   root.ID,
		ActorID:     env.alice.ID,
		Filename:    "notes.txt",
		ContentType: "text/plain",
		Size:        5,
		Body:        strings.NewReader("notes"),
	})
	if err != nil {
		t.Fatalf("attach: %v", err)
	}

	thread, err := env.inbox.BuildThread(ctx, root.ID, env.bob.ID)
	if err != nil {
		t.Fatalf("BuildThread: %v", err)
	}
	files := thread.Attachments[root.ID]
	if len(files) != 1 || files[0].ID != attachment.ID {
		t.Errorf("thread attachments = %+v", thread.Attachments)
	}
}

func TestBuildInbox(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	received := sendDirect(t, env, env.alice.ID, env.bob.ID, "incoming")
	time.Sleep(2 * time.Millisecond)
	sent := sendDirect(t, env, env.bob.ID, env.alice.ID, "outgoing")
	if _, err := env.messages.HandleReply(ctx, commands.ReplyMessageCommand{
		ParentID: received.ID, SenderID: env.bob.ID, Content: "got it",
	}); err != nil {
		t.Fatalf("reply: %v", err)
	}

	threads, err := env.inbox.BuildInbox(ctx, env.bob.ID)
	if err != nil {
		t.Fatalf("BuildInbox: %v", err)
	}
	if len(threads) != 2 {
		t.Fatalf("inbox has %d threads, want 2", len(threads))
	}
	// Newest root first, replies attached to their root.
	if threads[0].Root.ID != sent.ID || threads[1].Root.ID != received.ID {
		t.Errorf("inbox order wrong: %s then %s", threads[0].Root.ID, threads[1].Root.ID)
	}
	if len(threads[1].Replies) != 1 {
		t.Errorf("received thread replies = %d, want 1", len(threads[1].Replies))
	}
	if threads[1].Entry == nil {
		t.Error("received thread missing viewer entry")
	}
	if threads[0].Entry != nil {
		t.Error("sent thread should have no viewer entry")
	}
}
