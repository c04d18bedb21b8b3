package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"relay-chat/internal/services"
	"relay-chat/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// clientCommand is the inbound control frame: subscribe/unsubscribe to
// a channel. Everything else flows over HTTP.
type clientCommand struct {
	Action  string `json:"action"`
	Channel string `json:"channel"`
}

type Handler struct {
	auth       *services.AuthService
	authorizer *ChannelAuthorizer
	hub        *Hub
}

func NewHandler(auth *services.AuthService, authorizer *ChannelAuthorizer, hub *Hub) *Handler {
	return &Handler{auth: auth, authorizer: authorizer, hub: hub}
}

func (h *Handler) Connect(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}

	claims, err := h.auth.ParseAccessToken(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	userID := strings.TrimSpace(claims.UserID)
	client := NewClient(conn, userID)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h.hub.Register(client)
	go client.WriteLoop(ctx)

	_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	})

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			break
		}
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))

		var cmd clientCommand
		if err := json.Unmarshal(payload, &cmd); err != nil {
			continue
		}
		switch cmd.Action {
		case "subscribe":
			allowed, err := h.authorizer.CanSubscribe(c.Request.Context(), userID, cmd.Channel)
			if err != nil || !allowed {
				continue
			}
			h.hub.Subscribe(client, cmd.Channel)
		case "unsubscribe":
			h.hub.Unsubscribe(client, cmd.Channel)
		}
	}

	h.hub.Unregister(client)
}
