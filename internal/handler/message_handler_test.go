package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"clubmail/config"
	"clubmail/internal/middleware"
	"clubmail/internal/repository/memory"
	"clubmail/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type failingBlobStore struct{ fail bool }

func (f *failingBlobStore) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	if f.fail {
		return errors.New("connection refused")
	}
	return nil
}

func (f *failingBlobStore) Delete(ctx context.Context, key string) error { return nil }

type fixture struct {
	router *gin.Engine
	store  *memory.Store
	blobs  *failingBlobStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := memory.NewStore()
	blobs := &failingBlobStore{}
	cfg := &config.Config{JWTSecret: "test-secret", JWTExpiryMin: 60}

	authService := services.NewAuthService(store.Users(), cfg)
	messageService := services.NewMessageService(
		nil,
		store.Messages(), store.Recipients(), store.Attachments(),
		store.Users(), store.Outbox(),
		blobs, nil, nil,
	)
	inboxService := services.NewInboxService(store.Messages(), store.Recipients(), store.Attachments(), store.Users())
	attachmentService := services.NewAttachmentService(store.Attachments(), store.Messages(), store.Recipients(), store.Users(), blobs, 1<<20, nil)

	router := gin.New()
	auth := router.Group("/v1/auth")
	authHandler := NewAuthHandler(authService)
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)

	messageHandler := NewMessageHandler(messageService, inboxService)
	inboxHandler := NewInboxHandler(inboxService)
	attachmentHandler := NewAttachmentHandler(attachmentService)

	authed := router.Group("/v1", middleware.AuthMiddleware(authService))
	authed.POST("/messages", messageHandler.Send)
	authed.POST("/messages/:id/replies", messageHandler.Reply)
	authed.GET("/messages/:id", messageHandler.Get)
	authed.POST("/messages/:id/read", messageHandler.MarkRead)
	authed.DELETE("/messages/:id", messageHandler.Delete)
	authed.POST("/messages/:id/attachments", attachmentHandler.Attach)
	authed.GET("/inbox/unread-count", inboxHandler.UnreadCount)

	return &fixture{router: router, store: store, blobs: blobs}
}

func (f *fixture) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) register(t *testing.T, username string) (token, userID string) {
	t.Helper()
	rec := f.do(t, http.MethodPost, "/v1/auth/register", "", gin.H{
		"username":     username,
		"email":        username + "@example.com",
		"password":     "longenough",
		"display_name": username,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register %s: status %d, body %s", username, rec.Code, rec.Body.String())
	}
	var resp struct {
		Data struct {
			AccessToken string `json:"access_token"`
			User        struct {
				ID string `json:"id"`
			} `json:"user"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode register response: %v", err)
	}
	return resp.Data.AccessToken, resp.Data.User.ID
}

func (f *fixture) send(t *testing.T, token, recipientID, subject string) string {
	t.Helper()
	rec := f.do(t, http.MethodPost, "/v1/messages", token, gin.H{
		"subject": subject,
		"content": "body",
		"target":  gin.H{"kind": "user", "user_id": recipientID},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("send: status %d, body %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode send response: %v", err)
	}
	return resp.Data.ID
}

func TestSendEndpoint(t *testing.T) {
	f := newFixture(t)
	aliceToken, _ := f.register(t, "alice")
	_, bobID := f.register(t, "bob")

	msgID := f.send(t, aliceToken, bobID, "hello")
	if _, err := uuid.Parse(msgID); err != nil {
		t.Errorf("send returned invalid id %q", msgID)
	}

	// Members cannot broadcast.
	rec := f.do(t, http.MethodPost, "/v1/messages", aliceToken, gin.H{
		"subject": "to everyone",
		"content": "hi",
		"target":  gin.H{"kind": "broadcast"},
	})
	if rec.Code != http.StatusForbidden {
		t.Errorf("member broadcast: status %d, want 403", rec.Code)
	}

	// Malformed body.
	rec = f.do(t, http.MethodPost, "/v1/messages", aliceToken, gin.H{"subject": "no content"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("malformed send: status %d, want 400", rec.Code)
	}

	// No token.
	rec = f.do(t, http.MethodPost, "/v1/messages", "", gin.H{
		"subject": "x", "content": "y", "target": gin.H{"kind": "user", "user_id": bobID},
	})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("unauthenticated send: status %d, want 401", rec.Code)
	}
}

func TestMarkReadEndpoint(t *testing.T) {
	f := newFixture(t)
	aliceToken, _ := f.register(t, "alice")
	bobToken, bobID := f.register(t, "bob")

	msgID := f.send(t, aliceToken, bobID, "read me")

	rec := f.do(t, http.MethodPost, "/v1/messages/"+msgID+"/read", bobToken, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("recipient read: status %d, body %s", rec.Code, rec.Body.String())
	}

	// The sender is not in the ledger.
	rec = f.do(t, http.MethodPost, "/v1/messages/"+msgID+"/read", aliceToken, nil)
	if rec.Code != http.StatusForbidden {
		t.Errorf("sender read: status %d, want 403", rec.Code)
	}

	// Unknown message.
	rec = f.do(t, http.MethodPost, "/v1/messages/"+uuid.NewString()+"/read", bobToken, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing message read: status %d, want 404", rec.Code)
	}

	// Unread count reflects the transition.
	rec = f.do(t, http.MethodGet, "/v1/inbox/unread-count", bobToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("unread-count: status %d", rec.Code)
	}
	var resp struct {
		Data struct {
			Count int64 `json:"count"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode count: %v", err)
	}
	if resp.Data.Count != 0 {
		t.Errorf("unread count = %d, want 0", resp.Data.Count)
	}
}

func TestDeleteEndpointConflicts(t *testing.T) {
	f := newFixture(t)
	aliceToken, _ := f.register(t, "alice")
	bobToken, bobID := f.register(t, "bob")

	msgID := f.send(t, aliceToken, bobID, "thread root")

	rec := f.do(t, http.MethodPost, "/v1/messages/"+msgID+"/replies", bobToken, gin.H{"content": "reply"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("reply: status %d, body %s", rec.Code, rec.Body.String())
	}

	rec = f.do(t, http.MethodDelete, "/v1/messages/"+msgID, aliceToken, nil)
	if rec.Code != http.StatusConflict {
		t.Errorf("delete with replies: status %d, want 409", rec.Code)
	}

	var resp struct {
		Code string `json:"code"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if resp.Code != "HAS_REPLIES" {
		t.Errorf("error code = %q, want HAS_REPLIES", resp.Code)
	}
}

func TestGetThreadEndpoint(t *testing.T) {
	f := newFixture(t)
	aliceToken, _ := f.register(t, "alice")
	bobToken, bobID := f.register(t, "bob")
	carolToken, _ := f.register(t, "carol")

	msgID := f.send(t, aliceToken, bobID, "topic")

	rec := f.do(t, http.MethodGet, "/v1/messages/"+msgID, bobToken, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("recipient get: status %d", rec.Code)
	}

	rec = f.do(t, http.MethodGet, "/v1/messages/"+msgID, carolToken, nil)
	if rec.Code != http.StatusForbidden {
		t.Errorf("bystander get: status %d, want 403", rec.Code)
	}

	rec = f.do(t, http.MethodGet, "/v1/messages/"+uuid.NewString(), bobToken, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing get: status %d, want 404", rec.Code)
	}
}

func TestAttachEndpointStorageDown(t *testing.T) {
	f := newFixture(t)
	aliceToken, _ := f.register(t, "alice")
	_, bobID := f.register(t, "bob")

	msgID := f.send(t, aliceToken, bobID, "with file")

	f.blobs.fail = true
	defer func() { f.blobs.fail = false }()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", "notes.txt")
	if err != nil {
		t.Fatalf("form file: %v", err)
	}
	fmt.Fprint(part, "contents")
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/v1/messages/"+msgID+"/attachments", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+aliceToken)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadGateway {
		t.Errorf("attach with storage down: status %d, want 502, body %s", rec.Code, rec.Body.String())
	}
}
