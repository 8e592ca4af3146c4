package middleware

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/needvox_server/internal/model"
	"github.com/qs3c/needvox_server/internal/pkg/response"
	"github.com/qs3c/needvox_server/internal/service"
)

// RequireLogin 会话必须已登录，须放在 Auth 之后
func RequireLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, ok := GetSession(c)
		if !ok || sess.User() == nil {
			response.AuthError(c, "")
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequirePlan 需要有效订阅
func RequirePlan() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, ok := GetSession(c)
		if !ok {
			response.AuthError(c, "")
			c.Abort()
			return
		}
		if _, _, err := service.RequirePlan(sess); err != nil {
			abortGate(c, err)
			return
		}
		c.Next()
	}
}

// RequireFeature 当前套餐必须包含 feature
func RequireFeature(feature model.Feature) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, ok := GetSession(c)
		if !ok {
			response.AuthError(c, "")
			c.Abort()
			return
		}
		if _, err := service.RequireFeature(sess, feature); err != nil {
			abortGate(c, err)
			return
		}
		c.Next()
	}
}

func abortGate(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrUnauthenticated):
		response.AuthError(c, "")
	case errors.Is(err, service.ErrNoActivePlan):
		response.SubscriptionError(c, "")
	case errors.Is(err, service.ErrFeatureNotInPlan):
		response.PermissionError(c, "")
	default:
		response.ServerError(c, "")
	}
	c.Abort()
}
