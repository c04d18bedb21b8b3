package server

import (
	"fmt"

	"relay-chat/config"
	"relay-chat/internal/domain/message"
	"relay-chat/internal/handler"
	"relay-chat/internal/middleware"
	"relay-chat/internal/services"
	"relay-chat/internal/websocket"
	"relay-chat/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Handlers bundles everything the router mounts.
type Handlers struct {
	Auth          *handler.AuthHandler
	Conversations *handler.ConversationHandler
	Groups        *handler.GroupHandler
	Messages      *handler.MessageHandler
	Inbox         *handler.InboxHandler
	Uploads       *handler.UploadHandler
	WS            *websocket.Handler
}

type Server struct {
	engine *gin.Engine
	cfg    *config.Config
}

func New(cfg *config.Config, log *logger.Logger, auth *services.AuthService, presence *services.ConversationService, h Handlers) *Server {
	if cfg.AppMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.LoggingMiddleware(log))
	r.Use(middleware.ErrorHandler(log))

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})

	v1 := r.Group("/api/v1")

	v1.POST("/auth/register", h.Auth.Register)
	v1.POST("/auth/login", h.Auth.Login)

	authed := v1.Group("")
	authed.Use(middleware.AuthMiddleware(auth, presence))

	authed.GET("/inbox", h.Inbox.List)
	authed.POST("/attachments", h.Uploads.Create)

	conversations := authed.Group("/conversations")
	{
		conversations.POST("", h.Conversations.Create)
		conversations.GET("/:id", h.Conversations.Get)
		conversations.POST("/:id/pin", h.Conversations.SetPinned)
		conversations.POST("/:id/archive", h.Conversations.SetArchived)
		conversations.POST("/:id/mute", h.Conversations.Mute)
		conversations.POST("/:id/read-pointer", h.Conversations.SetLastRead)

		conversations.POST("/:id/messages", h.Messages.Send(message.KindDirect))
		conversations.GET("/:id/messages", h.Messages.List(message.KindDirect))
		conversations.GET("/:id/messages/search", h.Messages.Search(message.KindDirect))
		conversations.POST("/:id/typing", h.Messages.Typing(message.KindDirect))
		conversations.POST("/:id/receipts/read", h.Messages.MarkRead(message.KindDirect))
		conversations.POST("/:id/receipts/delivered", h.Messages.MarkDelivered(message.KindDirect))
		conversations.POST("/:id/mark-unread", h.Messages.MarkUnread(message.KindDirect))
		conversations.GET("/:id/unread", h.Messages.UnreadCount(message.KindDirect))
	}

	groups := authed.Group("/groups")
	{
		groups.POST("", h.Groups.Create)
		groups.POST("/join", h.Groups.JoinByInvite)
		groups.GET("/:id", h.Groups.Get)
		groups.POST("/:id/join", h.Groups.Join)
		groups.POST("/:id/leave", h.Groups.Leave)
		groups.POST("/:id/members", h.Groups.AddByPhones)
		groups.DELETE("/:id/members/:userID", h.Groups.RemoveMember)
		groups.POST("/:id/members/:userID/promote", h.Groups.Promote)
		groups.POST("/:id/members/:userID/demote", h.Groups.Demote)
		groups.POST("/:id/lock", h.Groups.SetMessageLock)
		groups.POST("/:id/pin", h.Groups.SetPinned)
		groups.POST("/:id/archive", h.Groups.SetArchived)
		groups.POST("/:id/mute", h.Groups.Mute)

		groups.POST("/:id/messages", h.Messages.Send(message.KindGroup))
		groups.GET("/:id/messages", h.Messages.List(message.KindGroup))
		groups.GET("/:id/messages/search", h.Messages.Search(message.KindGroup))
		groups.POST("/:id/typing", h.Messages.Typing(message.KindGroup))
		groups.POST("/:id/receipts/read", h.Messages.MarkRead(message.KindGroup))
		groups.POST("/:id/receipts/delivered", h.Messages.MarkDelivered(message.KindGroup))
		groups.POST("/:id/mark-unread", h.Messages.MarkUnread(message.KindGroup))
		groups.GET("/:id/unread", h.Messages.UnreadCount(message.KindGroup))
	}

	messages := authed.Group("/messages/:kind/:id")
	{
		messages.PATCH("", h.Messages.Edit)
		messages.DELETE("", h.Messages.Delete)
		messages.POST("/reactions", h.Messages.React)
		messages.DELETE("/reactions", h.Messages.Unreact)
		messages.GET("/receipts", h.Messages.Receipts)
	}

	r.GET("/ws", h.WS.Connect)

	return &Server{engine: r, cfg: cfg}
}

func (s *Server) Run() error {
	return s.engine.Run(fmt.Sprintf(":%s", s.cfg.AppPort))
}

// Engine exposes the router for tests.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}
