package commands

import (
	"testing"

	"github.com/google/uuid"
)

func TestSendMessageCommandValidate(t *testing.T) {
	sender := uuid.New()
	recipient := uuid.New()

	tests := []struct {
		name    string
		cmd     SendMessageCommand
		wantErr bool
	}{
		{
			name: "valid direct send",
			cmd: SendMessageCommand{
				SenderID: sender,
				Subject:  "meeting",
				Content:  "tomorrow at ten",
				Target:   Target{Kind: TargetUser, UserID: recipient},
			},
		},
		{
			name: "valid role send",
			cmd: SendMessageCommand{
				SenderID: sender,
				Subject:  "mods only",
				Content:  "please review the queue",
				Target:   Target{Kind: TargetRole, Role: "MODERATOR"},
			},
		},
		{
			name: "valid broadcast",
			cmd: SendMessageCommand{
				SenderID: sender,
				Subject:  "announcement",
				Content:  "doors open at eight",
				Target:   Target{Kind: TargetBroadcast},
			},
		},
		{
			name: "missing sender",
			cmd: SendMessageCommand{
				Subject: "x",
				Content: "y",
				Target:  Target{Kind: TargetBroadcast},
			},
			wantErr: true,
		},
		{
			name: "blank subject",
			cmd: SendMessageCommand{
				SenderID: sender,
				Subject:  "   ",
				Content:  "y",
				Target:   Target{Kind: TargetBroadcast},
			},
			wantErr: true,
		},
		{
			name: "blank content",
			cmd: SendMessageCommand{
				SenderID: sender,
				Subject:  "x",
				Content:  "",
				Target:   Target{Kind: TargetBroadcast},
			},
			wantErr: true,
		},
		{
			name: "user target without user id",
			cmd: SendMessageCommand{
				SenderID: sender,
				Subject:  "x",
				Content:  "y",
				Target:   Target{Kind: TargetUser},
			},
			wantErr: true,
		},
		{
			name: "role target without role",
			cmd: SendMessageCommand{
				SenderID: sender,
				Subject:  "x",
				Content:  "y",
				Target:   Target{Kind: TargetRole},
			},
			wantErr: true,
		},
		{
			name: "segment target without members",
			cmd: SendMessageCommand{
				SenderID: sender,
				Subject:  "x",
				Content:  "y",
				Target:   Target{Kind: TargetSegment},
			},
			wantErr: true,
		},
		{
			name: "unknown target kind",
			cmd: SendMessageCommand{
				SenderID: sender,
				Subject:  "x",
				Content:  "y",
				Target:   Target{Kind: "everyone"},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cmd.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestReplyMessageCommandValidate(t *testing.T) {
	tests := []struct {
		name    string
		cmd     ReplyMessageCommand
		wantErr bool
	}{
		{
			name: "valid reply",
			cmd:  ReplyMessageCommand{ParentID: uuid.New(), SenderID: uuid.New(), Content: "agreed"},
		},
		{
			name:    "missing parent",
			cmd:     ReplyMessageCommand{SenderID: uuid.New(), Content: "agreed"},
			wantErr: true,
		},
		{
			name:    "blank content",
			cmd:     ReplyMessageCommand{ParentID: uuid.New(), SenderID: uuid.New(), Content: "  "},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cmd.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDeleteMessageCommandValidate(t *testing.T) {
	if err := (DeleteMessageCommand{MessageID: uuid.New(), ActorID: uuid.New()}).Validate(); err != nil {
		t.Errorf("valid delete rejected: %v", err)
	}
	if err := (DeleteMessageCommand{MessageID: uuid.New()}).Validate(); err == nil {
		t.Error("delete without actor accepted")
	}
}
