package httpdto

import "time"

type CreateConversationRequest struct {
	OtherUserID string `json:"other_user_id" binding:"required"`
}

type PinRequest struct {
	Pinned bool `json:"pinned"`
}

type ArchiveRequest struct {
	Archived bool `json:"archived"`
}

type MuteRequest struct {
	Muted bool       `json:"muted"`
	Until *time.Time `json:"until"`
	// Minutes is a relative horizon; ignored when Until is set.
	Minutes int `json:"minutes"`
}

type SetLastReadRequest struct {
	MessageID string `json:"message_id" binding:"required"`
}
