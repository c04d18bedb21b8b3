package httpdto

type RegisterRequest struct {
	DisplayName string `json:"display_name" binding:"required"`
	Phone       string `json:"phone" binding:"required"`
	AvatarURL   string `json:"avatar_url"`
}

type LoginRequest struct {
	Phone string `json:"phone" binding:"required"`
}

type TokenResponse struct {
	UserID      string `json:"user_id"`
	AccessToken string `json:"access_token"`
}
