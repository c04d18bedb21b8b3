package httpdto

type SendMessageRequest struct {
	Body          string   `json:"body"`
	ClientUUID    string   `json:"client_uuid"`
	ReplyToID     string   `json:"reply_to_id"`
	ForwardKind   string   `json:"forward_kind"`
	ForwardFromID string   `json:"forward_from_id"`
	AttachmentIDs []string `json:"attachment_ids"`
	IsEncrypted   bool     `json:"is_encrypted"`
	TTLHours      int      `json:"ttl_hours"`
}

type EditMessageRequest struct {
	Body string `json:"body" binding:"required"`
}

type ReactRequest struct {
	Emoji string `json:"emoji" binding:"required"`
}

type MarkReadRequest struct {
	MessageIDs []string `json:"message_ids" binding:"required"`
}

type MarkDeliveredRequest struct {
	MessageIDs []string `json:"message_ids" binding:"required"`
}

type TypingRequest struct {
	Started bool `json:"started"`
}

type CreateAttachmentRequest struct {
	FilePath  string `json:"file_path" binding:"required"`
	MimeType  string `json:"mime_type" binding:"required"`
	SizeBytes int64  `json:"size_bytes"`
}
