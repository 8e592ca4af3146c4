package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/needvox_server/internal/pkg/jwt"
	"github.com/qs3c/needvox_server/internal/pkg/response"
	"github.com/qs3c/needvox_server/internal/session"
)

const (
	SessionKey = "session"
)

// SessionSource 按 ID 取会话，*session.Manager 实现它
type SessionSource interface {
	Get(ctx context.Context, id string) (*session.Session, error)
}

// Auth 校验 token 并把会话放入上下文；会话可以尚未登录
func Auth(jwtSecret string, sessions SessionSource) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.AuthError(c, "请提供认证信息")
			c.Abort()
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			response.AuthError(c, "认证格式错误")
			c.Abort()
			return
		}

		claims, err := jwt.ParseToken(tokenString, jwtSecret)
		if err != nil {
			response.AuthError(c, "认证失败或已过期")
			c.Abort()
			return
		}

		sess, err := sessions.Get(c.Request.Context(), claims.SessionID)
		if err != nil {
			if errors.Is(err, session.ErrInvalidSessionID) {
				response.AuthError(c, "会话无效")
			} else {
				response.ServerError(c, "会话恢复失败")
			}
			c.Abort()
			return
		}

		c.Set(SessionKey, sess)
		c.Next()
	}
}

// OptionalAuth 可选认证中间件（不强制要求会话）
func OptionalAuth(jwtSecret string, sessions SessionSource) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.Next()
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			c.Next()
			return
		}

		claims, err := jwt.ParseToken(tokenString, jwtSecret)
		if err == nil {
			if sess, err := sessions.Get(c.Request.Context(), claims.SessionID); err == nil {
				c.Set(SessionKey, sess)
			}
		}

		c.Next()
	}
}

// GetSession 从上下文获取会话
func GetSession(c *gin.Context) (*session.Session, bool) {
	v, exists := c.Get(SessionKey)
	if !exists {
		return nil, false
	}
	sess, ok := v.(*session.Session)
	return sess, ok && sess != nil
}
