package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"snorq/config"
	"snorq/internal/handler"
	"snorq/internal/middleware"
	"snorq/internal/redis"
	"snorq/internal/services"
	"snorq/internal/transport/httpdto"
	"snorq/internal/webhook"
	"snorq/internal/websocket"
	"snorq/pkg/database"
	"snorq/pkg/logger"
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

// Handlers bundles every HTTP-facing handler the router mounts.
type Handlers struct {
	Auth        *handler.AuthHandler
	Inbox       *handler.InboxHandler
	Connections *handler.ConnectionHandler
	Webhook     *webhook.Handler
	WS          *websocket.Handler
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

func (s *Server) SetupRoutes(handlers *Handlers, authService *services.AuthService, limiter *redis.RateLimiter) {
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

	// Meta webhook endpoints run unauthenticated; the GET handshake and the
	// POST signature of events carry their own verification.
	s.engine.GET("/webhook", handlers.Webhook.Verify)
	s.engine.POST("/webhook", handlers.Webhook.Receive)

	s.engine.GET("/ws", handlers.WS.Connect)

	auth := s.engine.Group("/v1/auth")
	auth.Use(middleware.AuthRateLimitMiddleware(limiter))
	{
		auth.POST("/register", handlers.Auth.Register)
		auth.POST("/login", handlers.Auth.Login)
	}

	v1 := s.engine.Group("/v1")
	v1.Use(middleware.AuthMiddleware(authService))
	{
		v1.GET("/organizations", handlers.Auth.ListOrganizations)
		v1.GET("/organizations/:id/conversations", handlers.Inbox.ListConversations)
		v1.GET("/organizations/:id/connections", handlers.Connections.List)
		v1.POST("/organizations/:id/connections", handlers.Connections.ConnectPages)

		v1.DELETE("/connections/:id", handlers.Connections.Disconnect)
		v1.POST("/connections/:id/sync", handlers.Connections.Sync)

		v1.GET("/conversations/:id/messages", handlers.Inbox.ListMessages)
		v1.POST("/conversations/:id/messages", middleware.SendRateLimitMiddleware(limiter), handlers.Inbox.SendMessage)
		v1.POST("/conversations/:id/read", handlers.Inbox.MarkRead)
	}
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
