package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/qs3c/needvox_server/internal/api/middleware"
	"github.com/qs3c/needvox_server/internal/model/dto"
	"github.com/qs3c/needvox_server/internal/pkg/response"
	"github.com/qs3c/needvox_server/internal/service"
	"github.com/qs3c/needvox_server/internal/session"
)

type AuthHandler struct {
	authService *service.AuthService
	sessions    *session.Manager
}

func NewAuthHandler(authService *service.AuthService, sessions *session.Manager) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		sessions:    sessions,
	}
}

// CreateSession 新建匿名会话并签发 token
// POST /api/v1/auth/session
func (h *AuthHandler) CreateSession(c *gin.Context) {
	sess, err := h.sessions.Create(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	token, err := h.authService.IssueToken(sess.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, dto.SessionResponse{Token: token, SessionID: sess.ID})
}

// Register 用户注册
// POST /api/v1/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	sess, ok := middleware.GetSession(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	user, err := h.authService.Register(c.Request.Context(), sess, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	response.SuccessWithMessage(c, "注册成功", user)
}

// Login 用户登录
// POST /api/v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	sess, ok := middleware.GetSession(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	user, err := h.authService.Login(c.Request.Context(), sess, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	response.SuccessWithMessage(c, "登录成功", user)
}

// Logout 退出登录，会话保留
// POST /api/v1/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	sess, ok := middleware.GetSession(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	if err := h.authService.Logout(c.Request.Context(), sess); err != nil {
		respondError(c, err)
		return
	}

	response.SuccessWithMessage(c, "已退出登录", nil)
}

// GithubAuth 返回 GitHub 授权地址
// GET /api/v1/auth/github
func (h *AuthHandler) GithubAuth(c *gin.Context) {
	sess, ok := middleware.GetSession(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	url, err := h.authService.GithubAuthURL(c.Request.Context(), sess.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, gin.H{"url": url})
}

// GithubCallback GitHub 回调，登录发起授权的那个会话
// GET /api/v1/auth/github/callback
func (h *AuthHandler) GithubCallback(c *gin.Context) {
	code := c.Query("code")
	state := c.Query("state")
	if code == "" || state == "" {
		response.ParamError(c, "缺少 code 或 state")
		return
	}

	ctx := c.Request.Context()
	sessionID, ghUser, err := h.authService.GithubCallback(ctx, code, state)
	if err != nil {
		respondError(c, err)
		return
	}

	sess, err := h.sessions.Get(ctx, sessionID)
	if err != nil {
		respondError(c, err)
		return
	}

	user, err := h.authService.LoginGithub(ctx, sess, ghUser)
	if err != nil {
		respondError(c, err)
		return
	}

	token, err := h.authService.IssueToken(sess.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	response.SuccessWithMessage(c, "登录成功", dto.LoginResponse{Token: token, User: user})
}
