package handler

import (
	"net/http"
	"time"

	"relay-chat/internal/domain/message"
	"relay-chat/internal/repository"
	"relay-chat/internal/services"
	"relay-chat/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// UploadHandler registers detached attachments. The binary itself goes
// to object storage out of band; the row created here is what a later
// send re-parents onto a message.
type UploadHandler struct {
	attachments repository.AttachmentRepository
}

func NewUploadHandler(attachments repository.AttachmentRepository) *UploadHandler {
	return &UploadHandler{attachments: attachments}
}

func (h *UploadHandler) Create(c *gin.Context) {
	var req httpdto.CreateAttachmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}
	userID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}

	att := message.Attachment{
		ID:        uuid.New(),
		OwnerID:   userID,
		FilePath:  req.FilePath,
		MimeType:  req.MimeType,
		SizeBytes: req.SizeBytes,
		CreatedAt: time.Now(),
	}
	if err := h.attachments.Create(c.Request.Context(), &att); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, httpdto.NewSuccessResponse(att))
}
