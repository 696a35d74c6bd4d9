package database

import (
	"fmt"
	"log"
	"time"

	"clubmail/config"
	"clubmail/internal/domain/event"
	"clubmail/internal/domain/message"
	"clubmail/internal/domain/user"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

func Connect(cfg *config.Config) {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
		cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort)

	var err error
	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	sqlDB, err := DB.DB()
	if err != nil {
		log.Fatalf("Failed to get generic database object: %v", err)
	}

	// Connection pool settings
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	log.Println("Database connection established")
}

// Close releases the underlying connection pool.
func Close() {
	if DB == nil {
		return
	}
	if sqlDB, err := DB.DB(); err == nil {
		sqlDB.Close()
	}
}

// HealthCheck pings the underlying connection.
func HealthCheck() error {
	if DB == nil {
		return fmt.Errorf("database not connected")
	}
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// Migrate applies the schema for every aggregate the service owns.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&user.User{},
		&message.Message{},
		&message.MessageRecipient{},
		&message.Attachment{},
		&event.OutboxEvent{},
	)
}

func TableExists(name string) (bool, error) {
	if DB == nil {
		return false, fmt.Errorf("database not connected")
	}
	return DB.Migrator().HasTable(name), nil
}

func GetTableCount(name string) (int64, error) {
	if DB == nil {
		return 0, fmt.Errorf("database not connected")
	}
	var count int64
	err := DB.Table(name).Count(&count).Error
	return count, err
}

// DropAllTables drops every table the service owns.
func DropAllTables() error {
	if DB == nil {
		return fmt.Errorf("database not connected")
	}
	return DB.Migrator().DropTable(
		&event.OutboxEvent{},
		&message.Attachment{},
		&message.MessageRecipient{},
		&message.Message{},
		&user.User{},
	)
}

// TruncateAllTables empties every table while keeping the schema.
func TruncateAllTables() error {
	if DB == nil {
		return fmt.Errorf("database not connected")
	}
	tables := []string{"outbox_events", "attachments", "message_recipients", "messages", "users"}
	for _, table := range tables {
		if err := DB.Exec(fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table)).Error; err != nil {
			return err
		}
	}
	return nil
}
