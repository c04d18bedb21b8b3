package httpdto

type CreateGroupRequest struct {
	Name        string   `json:"name" binding:"required"`
	Description string   `json:"description"`
	Type        string   `json:"type"`
	IsPublic    bool     `json:"is_public"`
	MemberIDs   []string `json:"member_ids"`
}

type AddByPhonesRequest struct {
	Phones []string `json:"phones" binding:"required"`
}

type JoinByInviteRequest struct {
	InviteCode string `json:"invite_code" binding:"required"`
}

type MessageLockRequest struct {
	Locked bool `json:"locked"`
}
