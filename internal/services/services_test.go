package services

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"io"
	"testing"

	"clubmail/internal/domain/user"
	"clubmail/internal/repository/memory"

	"github.com/google/uuid"
)

// fakeBlobStore records puts and deletes; failPut simulates an unreachable
// blob backend.
type fakeBlobStore struct {
	puts    map[string][]byte
	deletes []string
	failPut bool
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{puts: make(map[string][]byte)}
}

func (f *fakeBlobStore) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	if f.failPut {
		return errors.New("connection refused")
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(body); err != nil {
		return err
	}
	f.puts[key] = buf.Bytes()
	return nil
}

func (f *fakeBlobStore) Delete(ctx context.Context, key string) error {
	f.deletes = append(f.deletes, key)
	delete(f.puts, key)
	return nil
}

func (f *fakeBlobStore) PresignGet(ctx context.Context, key string) (string, error) {
	if _, ok := f.puts[key]; !ok {
		return "", errors.New("no such key")
	}
	return "https://blobs.test/" + key, nil
}

type testEnv struct {
	store       *memory.Store
	blobs       *fakeBlobStore
	messages    *MessageService
	inbox       *InboxService
	attachments *AttachmentService

	admin  user.User
	mod    user.User
	alice  user.User
	bob    user.User
	badge  user.User
	ghost  user.User // inactive
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := memory.NewStore()
	blobs := newFakeBlobStore()

	env := &testEnv{
		store: store,
		blobs: blobs,
		messages: NewMessageService(
			nil,
			store.Messages(), store.Recipients(), store.Attachments(),
			store.Users(), store.Outbox(),
			blobs, nil, nil,
		),
		inbox:       NewInboxService(store.Messages(), store.Recipients(), store.Attachments(), store.Users()),
		attachments: NewAttachmentService(store.Attachments(), store.Messages(), store.Recipients(), store.Users(), blobs, 1<<20, nil),
	}

	env.admin = env.addUser(t, "admin", user.RoleAdmin, true)
	env.mod = env.addUser(t, "mod", user.RoleModerator, true)
	env.alice = env.addUser(t, "alice", user.RoleMember, true)
	env.bob = env.addUser(t, "bob", user.RoleMember, true)
	env.badge = env.addUser(t, "badge", user.RoleBadgeHolder, true)
	env.ghost = env.addUser(t, "ghost", user.RoleMember, false)

	return env
}

func (e *testEnv) addUser(t *testing.T, username, role string, active bool) user.User {
	t.Helper()
	u := user.User{
		ID:           uuid.New(),
		Username:     sql.NullString{String: username, Valid: true},
		Email:        sql.NullString{String: username + "@example.com", Valid: true},
		PasswordHash: "x",
		DisplayName:  username,
		Role:         role,
		IsActive:     active,
	}
	if err := e.store.Create(context.Background(), &u); err != nil {
		t.Fatalf("seed user %s: %v", username, err)
	}
	return u
}
