package httpdto

// RegisterRequest is used for POST /v1/auth/register
type RegisterRequest struct {
	Username    string `json:"username" binding:"required"`
	Email       string `json:"email" binding:"required"`
	Password    string `json:"password" binding:"required"`
	DisplayName string `json:"display_name,omitempty"`
}

// LoginRequest is used for POST /v1/auth/login
type LoginRequest struct {
	Identity string `json:"identity" binding:"required"` // username or email
	Password string `json:"password" binding:"required"`
}
