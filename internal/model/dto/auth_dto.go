package dto

// RegisterRequest 注册请求
type RegisterRequest struct {
	Name     string `json:"name" binding:"required,min=1,max=100"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// LoginRequest 登录请求
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse 登录响应
type LoginResponse struct {
	Token string    `json:"token"`
	User  *UserInfo `json:"user"`
}

// SessionResponse 新会话
type SessionResponse struct {
	Token     string `json:"token"`
	SessionID string `json:"session_id"`
}

// UserInfo 用户信息（返回给前端）
type UserInfo struct {
	ID            string  `json:"id"`
	Email         string  `json:"email"`
	Name          string  `json:"name"`
	Avatar        string  `json:"avatar,omitempty"`
	WalletBalance float64 `json:"wallet_balance"`
	TotalEarnings float64 `json:"total_earnings"`
	StoriesCount  int     `json:"stories_count"`
	LikesReceived int     `json:"likes_received"`
	ViewsReceived int     `json:"views_received"`
}

// UpdateProfileRequest 更新用户信息请求
type UpdateProfileRequest struct {
	Name *string `json:"name,omitempty" binding:"omitempty,min=1,max=100"`
}

// ProfileResponse 个人中心
type ProfileResponse struct {
	User         *UserInfo         `json:"user"`
	Subscription *SubscriptionInfo `json:"subscription"`
}
