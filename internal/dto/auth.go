package dto

// ── 认证模块 DTO ──

// LoginRequest 登录请求
type LoginRequest struct {
	Email    string `json:"email"    binding:"required,email"`
	Password string `json:"password" binding:"required,min=8,max=72"`
}

// TokenResponse 登录成功返回的令牌
type TokenResponse struct {
	AccessToken string       `json:"access_token"`
	ExpiresIn   int          `json:"expires_in"` // 秒
	User        UserResponse `json:"user"`
}

// VerifyPinRequest 共享账号确认操作成员请求
type VerifyPinRequest struct {
	UserID string `json:"user_id" binding:"required,uuid"`
	Pin    string `json:"pin"     binding:"required,len=5,numeric"`
}

// VerifyPinResponse PIN 校验结果
// 校验通过时返回确认令牌，后续市场写操作通过 X-Staff-Confirmation 头携带
type VerifyPinResponse struct {
	Valid             bool   `json:"valid"`
	ConfirmationToken string `json:"confirmation_token,omitempty"`
	ExpiresAt         string `json:"expires_at,omitempty"`
	StaffName         string `json:"staff_name,omitempty"`
}
