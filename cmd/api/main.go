package main

import (
	"context"
	"fmt"
	"log"

	"relay-chat/config"
	"relay-chat/internal/events"
	"relay-chat/internal/handler"
	"relay-chat/internal/repository"
	"relay-chat/internal/server"
	"relay-chat/internal/services"
	"relay-chat/internal/websocket"
	"relay-chat/pkg/cipher"
	"relay-chat/pkg/database"
	"relay-chat/pkg/logger"

	"github.com/redis/go-redis/v9"
)

func main() {
	cfg := config.LoadConfig()

	appLogger := logger.New(cfg.AppMode)
	logger.SetGlobalLogger(appLogger)

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.RedisHost, cfg.RedisPort),
		Password: cfg.RedisPassword,
	})
	bus := events.NewRedisBus(redisClient, events.NewThreadChannelResolver())

	users := repository.NewUserRepository(db)
	conversations := repository.NewConversationRepository(db)
	groups := repository.NewGroupRepository(db)
	directMessages := repository.NewDirectMessageRepository(db)
	groupMessages := repository.NewGroupMessageRepository(db)
	statuses := repository.NewStatusRepository(db)
	reactions := repository.NewReactionRepository(db)
	attachments := repository.NewAttachmentRepository(db)

	box := cipher.New(cfg.MessageKey)
	resolver := services.NewThreadResolver(conversations, groups)

	authService := services.NewAuthService(cfg.JWTSecret, cfg.JWTExpiryMin)
	messageService := services.NewMessageService(db, resolver, statuses, reactions, attachments, users, bus, box, appLogger)
	receiptService := services.NewReceiptService(directMessages, groupMessages, statuses, resolver, bus, appLogger)
	conversationService := services.NewConversationService(conversations, users, directMessages, appLogger)
	groupService := services.NewGroupService(db, groups, users, bus, appLogger)
	inboxService := services.NewInboxService(conversations, groups, users, directMessages, groupMessages, attachments, box, appLogger)

	hub := websocket.NewHub()
	bridge := websocket.NewRedisBridge(bus, hub)
	authorizer := websocket.NewChannelAuthorizer(conversations, groups)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)
	go func() {
		if err := bridge.Run(ctx); err != nil && ctx.Err() == nil {
			appLogger.Errorf("redis bridge stopped: %v", err)
		}
	}()

	srv := server.New(cfg, appLogger, authService, conversationService, server.Handlers{
		Auth:          handler.NewAuthHandler(authService, users),
		Conversations: handler.NewConversationHandler(conversationService),
		Groups:        handler.NewGroupHandler(groupService),
		Messages:      handler.NewMessageHandler(messageService, receiptService, resolver),
		Inbox:         handler.NewInboxHandler(inboxService),
		Uploads:       handler.NewUploadHandler(attachments),
		WS:            websocket.NewHandler(authService, authorizer, hub),
	})

	appLogger.Infof("starting server on port %s", cfg.AppPort)
	if err := srv.Run(); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
