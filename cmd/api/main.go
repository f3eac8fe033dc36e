package main

import (
	"context"
	"log"

	"snorq/config"
	"snorq/internal/domain/connection"
	"snorq/internal/domain/conversation"
	"snorq/internal/domain/message"
	"snorq/internal/domain/organization"
	"snorq/internal/domain/user"
	"snorq/internal/events"
	"snorq/internal/handler"
	"snorq/internal/ingest"
	"snorq/internal/platform/facebook"
	"snorq/internal/redis"
	"snorq/internal/repository"
	"snorq/internal/server"
	"snorq/internal/services"
	"snorq/internal/syncer"
	"snorq/internal/webhook"
	"snorq/internal/websocket"
	"snorq/pkg/database"
	"snorq/pkg/logger"
)

func main() {
	cfg := config.LoadConfig()

	l := logger.New(cfg.AppMode)
	logger.SetGlobalLogger(l)
	defer l.Sync()

	if err := database.Connect(cfg); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	if err := database.DB.AutoMigrate(
		&user.User{},
		&organization.Organization{},
		&organization.Member{},
		&connection.PlatformConnection{},
		&conversation.Conversation{},
		&message.Message{},
	); err != nil {
		log.Fatalf("Failed to apply GORM migrations: %v", err)
	}

	// Raw migrations cover extensions and composite indexes GORM tags
	// cannot express; they run after the tables exist.
	if err := database.ApplyRawMigrations("migrations"); err != nil {
		log.Fatalf("Failed to apply raw migrations: %v", err)
	}

	redis.Initialize(redis.Config{
		Host:     cfg.RedisHost,
		Port:     cfg.RedisPort,
		Password: cfg.RedisPassword,
	})
	defer redis.Close()
	redisClient := redis.GetClient()

	userRepo := repository.NewUserRepository(database.DB)
	orgRepo := repository.NewOrganizationRepository(database.DB)
	connRepo := repository.NewConnectionRepository(database.DB)
	convRepo := repository.NewConversationRepository(database.DB)
	msgRepo := repository.NewMessageRepository(database.DB)
	uow := repository.NewUnitOfWork(database.DB)

	publisher := redis.NewPublisher(redisClient)
	subscriber := redis.NewSubscriber(redisClient)
	emitter := events.NewEmitter(publisher, l)
	limiter := redis.NewRateLimiter(redisClient, redis.DefaultRateLimitConfig())

	graph := facebook.NewClient(cfg)
	engine := ingest.NewEngine(uow, connRepo, convRepo, msgRepo, graph, emitter, l)
	reconciler := syncer.NewReconciler(graph, engine, l)

	authService := services.NewAuthService(userRepo, orgRepo, cfg)
	orgService := services.NewOrganizationService(orgRepo)
	connectService := services.NewConnectService(orgRepo, connRepo, graph, l)
	inboxService := services.NewInboxService(orgRepo, connRepo, convRepo, msgRepo, engine, reconciler)

	hub := websocket.NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	bridge := websocket.NewRedisBridge(subscriber, hub)
	go func() {
		if err := bridge.Run(ctx, []string{events.ChannelPrefixOrganization + "*"}); err != nil {
			l.Errorf("redis bridge stopped: %v", err)
		}
	}()

	handlers := &server.Handlers{
		Auth:        handler.NewAuthHandler(authService, orgService),
		Inbox:       handler.NewInboxHandler(inboxService),
		Connections: handler.NewConnectionHandler(connectService, inboxService),
		Webhook:     webhook.NewHandler(cfg.WebhookVerifyToken, engine, l),
		WS:          websocket.NewHandler(authService, hub, websocket.NewChannelAuthorizer(orgRepo), l),
	}

	srv := server.New(cfg, l)
	srv.SetupRoutes(handlers, authService, limiter)

	if err := srv.Start(); err != nil {
		log.Fatalf("Server exited with error: %v", err)
	}
}
