package message

import (
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestRecipientStatus(t *testing.T) {
	tests := []struct {
		name   string
		readAt sql.NullTime
		want   string
	}{
		{
			name: "unread entry is delivered",
			want: StatusDelivered,
		},
		{
			name:   "read entry is read",
			readAt: sql.NullTime{Time: time.Now(), Valid: true},
			want:   StatusRead,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := MessageRecipient{
				MessageID:   uuid.New(),
				RecipientID: uuid.New(),
				ReadAt:      tt.readAt,
			}
			if got := r.Status(); got != tt.want {
				t.Errorf("Status() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMessageIsReply(t *testing.T) {
	root := Message{ID: uuid.New()}
	if root.IsReply() {
		t.Error("root message reported as reply")
	}

	reply := Message{
		ID:        uuid.New(),
		InReplyTo: uuid.NullUUID{UUID: root.ID, Valid: true},
	}
	if !reply.IsReply() {
		t.Error("reply not reported as reply")
	}
}
