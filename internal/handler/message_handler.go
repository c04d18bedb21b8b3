package handler

import (
	"context"
	"net/http"
	"strconv"

	"relay-chat/internal/domain/message"
	"relay-chat/internal/services"
	"relay-chat/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// MessageHandler serves thread-scoped message operations for both
// families; routes bind it with the kind they serve.
type MessageHandler struct {
	messages *services.MessageService
	receipts *services.ReceiptService
	resolver *services.ThreadResolver
}

func NewMessageHandler(
	messages *services.MessageService,
	receipts *services.ReceiptService,
	resolver *services.ThreadResolver,
) *MessageHandler {
	return &MessageHandler{messages: messages, receipts: receipts, resolver: resolver}
}

func (h *MessageHandler) thread(c *gin.Context, kind message.Kind) (services.Thread, bool) {
	threadID, err := parseUUID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid thread id", "INVALID_REQUEST"))
		return nil, false
	}
	thread, err := h.resolver.Resolve(c.Request.Context(), kind, threadID)
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	return thread, true
}

func (h *MessageHandler) Send(kind message.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req httpdto.SendMessageRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
			return
		}
		userID, ok := services.UserIDFromContext(c.Request.Context())
		if !ok {
			c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
			return
		}
		thread, ok := h.thread(c, kind)
		if !ok {
			return
		}

		in := services.SendInput{
			Body:        req.Body,
			ClientUUID:  req.ClientUUID,
			IsEncrypted: req.IsEncrypted,
			TTLHours:    req.TTLHours,
		}
		if req.ReplyToID != "" {
			replyTo, err := parseUUID(req.ReplyToID)
			if err != nil {
				c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid reply_to_id", "INVALID_REQUEST"))
				return
			}
			in.ReplyToID = uuid.NullUUID{UUID: replyTo, Valid: true}
		}
		if req.ForwardFromID != "" {
			forwardID, err := parseUUID(req.ForwardFromID)
			if err != nil {
				c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid forward_from_id", "INVALID_REQUEST"))
				return
			}
			forwardKind := message.Kind(req.ForwardKind)
			if forwardKind != message.KindDirect && forwardKind != message.KindGroup {
				c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid forward_kind", "INVALID_REQUEST"))
				return
			}
			in.ForwardFrom = &services.ForwardRef{Kind: forwardKind, MessageID: forwardID}
		}
		for _, raw := range req.AttachmentIDs {
			attID, err := parseUUID(raw)
			if err != nil {
				c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid attachment id", "INVALID_REQUEST"))
				return
			}
			in.AttachmentIDs = append(in.AttachmentIDs, attID)
		}

		view, created, err := h.messages.Send(c.Request.Context(), thread, userID, in)
		if err != nil {
			respondError(c, err)
			return
		}
		status := http.StatusOK
		if created {
			status = http.StatusCreated
		}
		c.JSON(status, httpdto.NewSuccessResponse(view))
	}
}

func (h *MessageHandler) List(kind message.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := services.UserIDFromContext(c.Request.Context())
		if !ok {
			c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
			return
		}
		thread, ok := h.thread(c, kind)
		if !ok {
			return
		}

		limit, err := parseInt(c.Query("limit"))
		if err != nil {
			c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid limit", "INVALID_REQUEST"))
			return
		}
		in := services.ListInput{Limit: limit}
		if raw := c.Query("before"); raw != "" {
			before, err := parseUUID(raw)
			if err != nil {
				c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid before cursor", "INVALID_REQUEST"))
				return
			}
			in.Before = uuid.NullUUID{UUID: before, Valid: true}
		}
		if raw := c.Query("after"); raw != "" {
			after, err := parseUUID(raw)
			if err != nil {
				c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid after cursor", "INVALID_REQUEST"))
				return
			}
			in.After = uuid.NullUUID{UUID: after, Valid: true}
		}

		views, err := h.messages.List(c.Request.Context(), thread, userID, in)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"messages": views}))
	}
}

func (h *MessageHandler) Search(kind message.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := services.UserIDFromContext(c.Request.Context())
		if !ok {
			c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
			return
		}
		thread, ok := h.thread(c, kind)
		if !ok {
			return
		}
		term := c.Query("q")
		if term == "" {
			c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("missing query", "INVALID_REQUEST"))
			return
		}
		limit, err := parseInt(c.Query("limit"))
		if err != nil {
			c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid limit", "INVALID_REQUEST"))
			return
		}

		views, err := h.messages.Search(c.Request.Context(), thread, userID, term, limit)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"messages": views}))
	}
}

func (h *MessageHandler) Typing(kind message.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req httpdto.TypingRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
			return
		}
		userID, ok := services.UserIDFromContext(c.Request.Context())
		if !ok {
			c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
			return
		}
		thread, ok := h.thread(c, kind)
		if !ok {
			return
		}
		if err := h.messages.Typing(c.Request.Context(), thread, userID, req.Started); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, httpdto.NewSuccessResponse[any](nil))
	}
}

func (h *MessageHandler) MarkRead(kind message.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		h.receiptBatch(c, kind, h.receipts.MarkRead)
	}
}

func (h *MessageHandler) MarkDelivered(kind message.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		h.receiptBatch(c, kind, h.receipts.MarkDelivered)
	}
}

func (h *MessageHandler) receiptBatch(
	c *gin.Context,
	kind message.Kind,
	apply func(ctx context.Context, thread services.Thread, userID uuid.UUID, ids []uuid.UUID) error,
) {
	var req httpdto.MarkReadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}
	userID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}
	thread, ok := h.thread(c, kind)
	if !ok {
		return
	}

	ids := make([]uuid.UUID, 0, len(req.MessageIDs))
	for _, raw := range req.MessageIDs {
		id, err := parseUUID(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid message id", "INVALID_REQUEST"))
			return
		}
		ids = append(ids, id)
	}

	if err := apply(c.Request.Context(), thread, userID, ids); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse[any](nil))
}

func (h *MessageHandler) MarkUnread(kind message.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := services.UserIDFromContext(c.Request.Context())
		if !ok {
			c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
			return
		}
		thread, ok := h.thread(c, kind)
		if !ok {
			return
		}
		if err := h.receipts.MarkUnread(c.Request.Context(), thread, userID); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, httpdto.NewSuccessResponse[any](nil))
	}
}

func (h *MessageHandler) UnreadCount(kind message.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := services.UserIDFromContext(c.Request.Context())
		if !ok {
			c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
			return
		}
		thread, ok := h.thread(c, kind)
		if !ok {
			return
		}
		count, err := h.receipts.UnreadCount(c.Request.Context(), thread, userID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"unread": count}))
	}
}

func parseUUID(value string) (uuid.UUID, error) {
	return uuid.Parse(value)
}

func parseInt(value string) (int, error) {
	if value == "" {
		return 0, nil
	}
	return strconv.Atoi(value)
}
