package user

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Roles a member can hold. Role targeting in broadcasts resolves against
// these values at send time.
const (
	RoleAdmin       = "ADMIN"
	RoleModerator   = "MODERATOR"
	RoleMember      = "MEMBER"
	RoleBadgeHolder = "BADGE_HOLDER"
)

// User represents the users table
type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	Username     sql.NullString `gorm:"uniqueIndex"`
	Email        sql.NullString `gorm:"uniqueIndex"`
	PasswordHash string
	DisplayName  string
	Role         string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// CanModerate reports whether the user may target roles or the whole
// membership, and may delete other members' messages.
func (u User) CanModerate() bool {
	return u.Role == RoleAdmin || u.Role == RoleModerator
}

func (User) TableName() string {
	return "users"
}
