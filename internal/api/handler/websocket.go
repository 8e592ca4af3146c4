package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/qs3c/needvox_server/internal/pkg/jwt"
	"github.com/qs3c/needvox_server/internal/pkg/pubsub"
	"github.com/qs3c/needvox_server/internal/pkg/response"
	"github.com/qs3c/needvox_server/internal/pkg/ws"
	"github.com/qs3c/needvox_server/internal/session"
)

type WebSocketHandler struct {
	hub       *ws.Hub
	sessions  *session.Manager
	jwtSecret string
	upgrader  websocket.Upgrader
	logger    *zap.Logger
}

// NewWebSocketHandler allowedOrigins 为空或包含 "*" 时不校验 Origin
func NewWebSocketHandler(hub *ws.Hub, sessions *session.Manager, jwtSecret string, allowedOrigins []string, logger *zap.Logger) *WebSocketHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebSocketHandler{
		hub:       hub,
		sessions:  sessions,
		jwtSecret: jwtSecret,
		upgrader: websocket.Upgrader{
			CheckOrigin:     originChecker(allowedOrigins),
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		logger: logger.Named("ws"),
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || len(set) == 0 {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

// Handle 任务通知连接
// GET /api/v1/ws?token=xxx
func (h *WebSocketHandler) Handle(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.AuthError(c, "请提供认证信息")
		return
	}

	claims, err := jwt.ParseToken(token, h.jwtSecret)
	if err != nil {
		response.AuthError(c, "认证失败或已过期")
		return
	}

	sess, err := h.sessions.Get(c.Request.Context(), claims.SessionID)
	if err != nil {
		if errors.Is(err, session.ErrInvalidSessionID) {
			response.AuthError(c, "会话无效")
			return
		}
		respondError(c, err)
		return
	}
	user := sess.User()
	if user == nil {
		response.AuthError(c, "请先登录")
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("failed to upgrade connection", zap.Error(err))
		return
	}

	if err := h.hub.Attach(user.ID, conn); err != nil {
		h.logger.Warn("failed to attach connection", zap.String("user_id", user.ID), zap.Error(err))
	}
}

// Relay 把任务事件转发给任务所属用户
func (h *WebSocketHandler) Relay(event *pubsub.JobEvent) {
	if event.UserID == "" {
		return
	}
	if _, err := h.hub.Publish(event.UserID, &ws.Event{Type: event.Type, Data: event}); err != nil {
		h.logger.Warn("failed to relay job event", zap.String("user_id", event.UserID), zap.Error(err))
	}
}
