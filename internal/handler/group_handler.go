package handler

import (
	"context"
	"net/http"

	"relay-chat/internal/services"
	"relay-chat/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type GroupHandler struct {
	service *services.GroupService
}

func NewGroupHandler(service *services.GroupService) *GroupHandler {
	return &GroupHandler{service: service}
}

func (h *GroupHandler) Create(c *gin.Context) {
	var req httpdto.CreateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}
	userID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}

	in := services.CreateGroupInput{
		Name:        req.Name,
		Description: req.Description,
		Type:        req.Type,
		IsPublic:    req.IsPublic,
	}
	for _, raw := range req.MemberIDs {
		id, err := parseUUID(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid member id", "INVALID_REQUEST"))
			return
		}
		in.MemberIDs = append(in.MemberIDs, id)
	}

	grp, err := h.service.Create(c.Request.Context(), userID, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, httpdto.NewSuccessResponse(grp))
}

func (h *GroupHandler) Get(c *gin.Context) {
	groupID, userID, ok := h.scope(c)
	if !ok {
		return
	}
	grp, members, err := h.service.Get(c.Request.Context(), groupID, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"group": grp, "members": members}))
}

func (h *GroupHandler) Join(c *gin.Context) {
	groupID, userID, ok := h.scope(c)
	if !ok {
		return
	}
	if err := h.service.Join(c.Request.Context(), groupID, userID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse[any](nil))
}

func (h *GroupHandler) JoinByInvite(c *gin.Context) {
	var req httpdto.JoinByInviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}
	userID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}
	grp, err := h.service.JoinByInvite(c.Request.Context(), req.InviteCode, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(grp))
}

func (h *GroupHandler) Leave(c *gin.Context) {
	groupID, userID, ok := h.scope(c)
	if !ok {
		return
	}
	if err := h.service.Leave(c.Request.Context(), groupID, userID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse[any](nil))
}

func (h *GroupHandler) AddByPhones(c *gin.Context) {
	groupID, userID, ok := h.scope(c)
	if !ok {
		return
	}
	var req httpdto.AddByPhonesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}
	result, err := h.service.AddByPhones(c.Request.Context(), groupID, userID, req.Phones)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(result))
}

func (h *GroupHandler) RemoveMember(c *gin.Context) {
	groupID, userID, ok := h.scope(c)
	if !ok {
		return
	}
	targetID, err := parseUUID(c.Param("userID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid user id", "INVALID_REQUEST"))
		return
	}
	if err := h.service.Remove(c.Request.Context(), groupID, userID, targetID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse[any](nil))
}

func (h *GroupHandler) Promote(c *gin.Context) {
	h.roleChange(c, h.service.Promote)
}

func (h *GroupHandler) Demote(c *gin.Context) {
	h.roleChange(c, h.service.Demote)
}

func (h *GroupHandler) SetMessageLock(c *gin.Context) {
	groupID, userID, ok := h.scope(c)
	if !ok {
		return
	}
	var req httpdto.MessageLockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}
	if err := h.service.SetMessageLock(c.Request.Context(), groupID, userID, req.Locked); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse[any](nil))
}

func (h *GroupHandler) SetPinned(c *gin.Context) {
	groupID, userID, ok := h.scope(c)
	if !ok {
		return
	}
	var req httpdto.PinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}
	if err := h.service.SetPinned(c.Request.Context(), groupID, userID, req.Pinned); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse[any](nil))
}

func (h *GroupHandler) SetArchived(c *gin.Context) {
	groupID, userID, ok := h.scope(c)
	if !ok {
		return
	}
	var req httpdto.ArchiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}
	if err := h.service.SetArchived(c.Request.Context(), groupID, userID, req.Archived); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse[any](nil))
}

func (h *GroupHandler) Mute(c *gin.Context) {
	groupID, userID, ok := h.scope(c)
	if !ok {
		return
	}
	var req httpdto.MuteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}
	if err := h.service.Mute(c.Request.Context(), groupID, userID, req.Muted, muteHorizon(req)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse[any](nil))
}

func (h *GroupHandler) roleChange(c *gin.Context, apply func(ctx context.Context, groupID, actorID, targetID uuid.UUID) error) {
	groupID, userID, ok := h.scope(c)
	if !ok {
		return
	}
	targetID, err := parseUUID(c.Param("userID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid user id", "INVALID_REQUEST"))
		return
	}
	if err := apply(c.Request.Context(), groupID, userID, targetID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse[any](nil))
}

func (h *GroupHandler) scope(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	groupID, err := parseUUID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid group id", "INVALID_REQUEST"))
		return uuid.Nil, uuid.Nil, false
	}
	userID, found := services.UserIDFromContext(c.Request.Context())
	if !found {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return uuid.Nil, uuid.Nil, false
	}
	return groupID, userID, true
}
