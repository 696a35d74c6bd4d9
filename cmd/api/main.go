package main

import (
	"context"
	"log"
	"time"

	"clubmail/config"
	"clubmail/internal/handler"
	"clubmail/internal/outbox"
	iredis "clubmail/internal/redis"
	"clubmail/internal/repository"
	"clubmail/internal/server"
	"clubmail/internal/services"
	"clubmail/internal/storage"
	"clubmail/pkg/database"
	"clubmail/pkg/logger"
)

func main() {
	cfg := config.LoadConfig()

	mode := logger.DevelopmentMode
	if cfg.AppMode == "release" {
		mode = logger.ProductionMode
	}
	l := logger.New(mode)
	defer l.Logger.Sync()
	logger.SetGlobalLogger(l)

	database.Connect(cfg)
	defer database.Close()

	if err := database.Migrate(database.DB); err != nil {
		log.Fatalf("Failed to apply migrations: %v", err)
	}

	iredis.Initialize(iredis.Config{
		Host:     cfg.RedisHost,
		Port:     cfg.RedisPort,
		Password: cfg.RedisPassword,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var blobs services.BlobStore
	if cfg.S3Bucket != "" {
		s3Client, err := storage.NewClient(ctx, storage.S3Config{
			Region:     cfg.S3Region,
			Bucket:     cfg.S3Bucket,
			AccessKey:  cfg.S3AccessKey,
			SecretKey:  cfg.S3SecretKey,
			Endpoint:   cfg.S3Endpoint,
			PresignTTL: 15 * time.Minute,
		})
		if err != nil {
			log.Fatalf("Failed to create s3 client: %v", err)
		}
		blobs = s3Client
	}

	userRepo := repository.NewUserRepository(database.DB)
	messageRepo := repository.NewMessageRepository(database.DB)
	recipientRepo := repository.NewRecipientRepository(database.DB)
	attachmentRepo := repository.NewAttachmentRepository(database.DB)
	outboxRepo := repository.NewOutboxRepository(database.DB)

	authService := services.NewAuthService(userRepo, cfg)
	messageService := services.NewMessageService(
		database.DB, messageRepo, recipientRepo, attachmentRepo, userRepo, outboxRepo,
		blobs, nil, l,
	)
	inboxService := services.NewInboxService(messageRepo, recipientRepo, attachmentRepo, userRepo)
	attachmentService := services.NewAttachmentService(attachmentRepo, messageRepo, recipientRepo, userRepo, blobs, cfg.MaxFileBytes, l)

	publisher := iredis.NewPublisher(iredis.GetClient())
	runner := outbox.NewRunner(outbox.DefaultProcessor(outboxRepo, publisher, l))
	runner.Start(ctx)

	limiter := iredis.NewRateLimiter(iredis.GetClient(), iredis.DefaultRateLimitConfig())

	srv := server.New(cfg, l)
	srv.SetupRoutes(&server.Handlers{
		Auth:        handler.NewAuthHandler(authService),
		Message:     handler.NewMessageHandler(messageService, inboxService),
		Inbox:       handler.NewInboxHandler(inboxService),
		Attachment:  handler.NewAttachmentHandler(attachmentService),
		RateLimiter: limiter,
	}, authService)

	if err := srv.Start(); err != nil {
		log.Fatalf("Server stopped with error: %v", err)
	}
}
