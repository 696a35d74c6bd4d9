package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"clubmail/config"
	"clubmail/internal/handler"
	"clubmail/internal/middleware"
	"clubmail/internal/redis"
	"clubmail/internal/services"
	"clubmail/internal/transport/httpdto"
	"clubmail/pkg/database"
	"clubmail/pkg/logger"

	"github.com/gin-gonic/gin"
)

type Server struct {
	httpServer *http.Server
	engine     *gin.Engine
	config     *config.Config
	logger     *logger.Logger
}

var (
	ReleaseMode = "release"
	DebugMode   = "debug"
	TestMode    = "test"
)

type Handlers struct {
	Auth        *handler.AuthHandler
	Message     *handler.MessageHandler
	Inbox       *handler.InboxHandler
	Attachment  *handler.AttachmentHandler
	RateLimiter *redis.RateLimiter
}

func New(cfg *config.Config, l *logger.Logger) *Server {
	if cfg.AppMode == ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	} else if cfg.AppMode == TestMode {
		gin.SetMode(gin.TestMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())

	return &Server{
		httpServer: &http.Server{
			Addr:    fmt.Sprintf(":%s", cfg.AppPort),
			Handler: engine,
		},
		engine: engine,
		config: cfg,
		logger: l,
	}
}

func (s *Server) SetupRoutes(handlers *Handlers, authService *services.AuthService) {
	s.engine.Use(middleware.RequestIDMiddleware())
	s.engine.Use(middleware.CORSMiddleware())
	s.engine.Use(middleware.LoggingMiddleware(s.logger))
	s.engine.Use(middleware.ErrorHandler(s.logger))

	s.engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"message": "pong"}))
	})

	s.engine.GET("/health", func(c *gin.Context) {
		if err := database.HealthCheck(); err != nil {
			c.JSON(http.StatusServiceUnavailable, httpdto.NewErrorResponse(err.Error(), "UNHEALTHY"))
			return
		}
		c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"status": "healthy"}))
	})

	auth := s.engine.Group("/v1/auth")
	if handlers.RateLimiter != nil {
		auth.Use(middleware.AuthRateLimitMiddleware(handlers.RateLimiter))
	}
	{
		auth.POST("/register", handlers.Auth.Register)
		auth.POST("/login", handlers.Auth.Login)
	}

	authed := s.engine.Group("/v1", middleware.AuthMiddleware(authService))

	messages := authed.Group("/messages")
	{
		if handlers.RateLimiter != nil {
			messages.POST("", middleware.SendRateLimitMiddleware(handlers.RateLimiter), handlers.Message.Send)
			messages.POST("/:id/replies", middleware.SendRateLimitMiddleware(handlers.RateLimiter), handlers.Message.Reply)
		} else {
			messages.POST("", handlers.Message.Send)
			messages.POST("/:id/replies", handlers.Message.Reply)
		}
		messages.GET("/:id", handlers.Message.Get)
		messages.GET("/:id/recipients", handlers.Message.Recipients)
		messages.POST("/:id/read", handlers.Message.MarkRead)
		messages.DELETE("/:id", handlers.Message.Delete)
		messages.POST("/:id/attachments", handlers.Attachment.Attach)
	}

	inbox := authed.Group("/inbox")
	{
		inbox.GET("", handlers.Inbox.List)
		inbox.GET("/unread", handlers.Inbox.Unread)
		inbox.GET("/unread-count", handlers.Inbox.UnreadCount)
	}

	authed.GET("/attachments/:id/url", handlers.Attachment.URL)
	authed.DELETE("/attachments/:id", handlers.Attachment.Detach)
}

func (s *Server) Start() error {
	go func() {
		if s.logger != nil {
			s.logger.Infof("Starting the server on port %s...", s.config.AppPort)
		}
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			if s.logger != nil {
				s.logger.Errorf("Error in starting the server: %s", err)
			}
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	if s.logger != nil {
		s.logger.Infof("Server is running on :%s", s.config.AppPort)
	}

	<-quit

	if s.logger != nil {
		s.logger.Infof("Quitting signal received.. Shutting down after 5 seconds")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		if s.logger != nil {
			s.logger.Infof("Error in the graceful shutdown of the server: %s", err)
		}
		return err
	}

	if s.logger != nil {
		s.logger.Infof("Server stopped gracefully")
	}

	return nil
}
