package handler

import (
	"database/sql"
	"net/http"
	"time"

	"relay-chat/internal/domain/user"
	"relay-chat/internal/repository"
	"relay-chat/internal/services"
	"relay-chat/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AuthHandler covers registration and the development phone login.
// Production OTP verification sits in front of this service boundary.
type AuthHandler struct {
	auth  *services.AuthService
	users repository.UserRepository
}

func NewAuthHandler(auth *services.AuthService, users repository.UserRepository) *AuthHandler {
	return &AuthHandler{auth: auth, users: users}
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req httpdto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}

	now := time.Now()
	u := user.User{
		ID:          uuid.New(),
		DisplayName: req.DisplayName,
		Phone:       req.Phone,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if req.AvatarURL != "" {
		u.AvatarURL = sql.NullString{String: req.AvatarURL, Valid: true}
	}
	if err := h.users.Create(c.Request.Context(), &u); err != nil {
		respondError(c, err)
		return
	}

	token, err := h.auth.IssueAccessToken(u.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, httpdto.NewSuccessResponse(httpdto.TokenResponse{
		UserID:      u.ID.String(),
		AccessToken: token,
	}))
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req httpdto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}

	u, err := h.users.GetByPhone(c.Request.Context(), req.Phone)
	if err != nil {
		respondError(c, err)
		return
	}
	token, err := h.auth.IssueAccessToken(u.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.TokenResponse{
		UserID:      u.ID.String(),
		AccessToken: token,
	}))
}
