package clubmail_errors

import (
	"errors"
	"time"
)

// Common errors
var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrNotFound           = errors.New("not found")
	ErrInvalidInput       = errors.New("invalid input")
	ErrAlreadyExists      = errors.New("already exists")
	ErrNotARecipient      = errors.New("not a recipient of this message")
	ErrHasReplies         = errors.New("message has replies")
	ErrStorageUnavailable = errors.New("blob storage unavailable")
	ErrPersistence        = errors.New("persistence failure")
	ErrRateLimited        = errors.New("rate limited")
)

// NowPtr returns a pointer to current time
func NowPtr() *time.Time {
	now := time.Now()
	return &now
}
