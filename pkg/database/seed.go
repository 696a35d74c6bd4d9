package database

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	"clubmail/internal/domain/message"
	"clubmail/internal/domain/user"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// SeedConfig holds configuration for seeding the database
type SeedConfig struct {
	AdminEmail       string
	AdminPassword    string
	AdminUsername    string
	AdminDisplayName string
	CreateTestUsers  bool
	TestUserCount    int
}

func DefaultSeedConfig() *SeedConfig {
	return &SeedConfig{
		AdminEmail:       "admin@clubmail.local",
		AdminPassword:    "Admin@123!",
		AdminUsername:    "admin",
		AdminDisplayName: "System Admin",
		CreateTestUsers:  true,
		TestUserCount:    5,
	}
}

// SeedResult holds the result of the seeding operation
type SeedResult struct {
	AdminUser *user.User
	TestUsers []*user.User
	Messages  []*message.Message
}

// SeedProduction creates or verifies the admin account only.
func SeedProduction(adminEmail, adminPassword string) (*user.User, error) {
	cfg := DefaultSeedConfig()
	cfg.AdminEmail = adminEmail
	cfg.AdminPassword = adminPassword
	return seedAdminUser(cfg)
}

// SeedDevelopment creates the admin, a handful of members, and a welcome
// broadcast with its delivery ledger.
func SeedDevelopment() (*SeedResult, error) {
	cfg := DefaultSeedConfig()
	result := &SeedResult{}

	admin, err := seedAdminUser(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to seed admin user: %w", err)
	}
	result.AdminUser = admin

	members, err := seedTestUsers(cfg.TestUserCount)
	if err != nil {
		return nil, fmt.Errorf("failed to seed test users: %w", err)
	}
	result.TestUsers = members

	welcome, err := seedWelcomeBroadcast(admin, members)
	if err != nil {
		return nil, fmt.Errorf("failed to seed welcome broadcast: %w", err)
	}
	result.Messages = append(result.Messages, welcome)

	log.Println("Database seeding completed")
	return result, nil
}

func seedAdminUser(cfg *SeedConfig) (*user.User, error) {
	var existing user.User
	err := DB.Where("username = ?", cfg.AdminUsername).First(&existing).Error
	if err == nil {
		return &existing, nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.AdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	admin := user.User{
		ID:           uuid.New(),
		Username:     sql.NullString{String: cfg.AdminUsername, Valid: true},
		Email:        sql.NullString{String: cfg.AdminEmail, Valid: true},
		PasswordHash: string(hash),
		DisplayName:  cfg.AdminDisplayName,
		Role:         user.RoleAdmin,
		IsActive:     true,
	}
	if err := DB.Create(&admin).Error; err != nil {
		return nil, err
	}
	log.Printf("Created admin user %s", cfg.AdminUsername)
	return &admin, nil
}

func seedTestUsers(count int) ([]*user.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte("Member@123!"), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	users := make([]*user.User, 0, count)
	for i := 1; i <= count; i++ {
		username := fmt.Sprintf("member%d", i)

		var existing user.User
		if err := DB.Where("username = ?", username).First(&existing).Error; err == nil {
			users = append(users, &existing)
			continue
		}

		role := user.RoleMember
		if i == 1 {
			role = user.RoleModerator
		}

		u := user.User{
			ID:           uuid.New(),
			Username:     sql.NullString{String: username, Valid: true},
			Email:        sql.NullString{String: username + "@clubmail.local", Valid: true},
			PasswordHash: string(hash),
			DisplayName:  fmt.Sprintf("Member %d", i),
			Role:         role,
			IsActive:     true,
		}
		if err := DB.Create(&u).Error; err != nil {
			return nil, err
		}
		users = append(users, &u)
	}
	return users, nil
}

func seedWelcomeBroadcast(sender *user.User, recipients []*user.User) (*message.Message, error) {
	now := time.Now()
	msg := message.Message{
		ID:        uuid.New(),
		Subject:   "Welcome to the club",
		Content:   "Say hello in your first reply.",
		SenderID:  sender.ID,
		Type:      message.TypeBroadcast,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := DB.Create(&msg).Error; err != nil {
		return nil, err
	}

	for _, r := range recipients {
		entry := message.MessageRecipient{
			MessageID:   msg.ID,
			RecipientID: r.ID,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := DB.Create(&entry).Error; err != nil {
			return nil, err
		}
	}
	return &msg, nil
}
