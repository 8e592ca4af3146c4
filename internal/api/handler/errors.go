package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/needvox_server/internal/api/middleware"
	"github.com/qs3c/needvox_server/internal/pkg/response"
	"github.com/qs3c/needvox_server/internal/service"
)

// respondError 把业务错误映射为响应码；未识别的错误记入 c.Errors 由访问日志输出
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrUnauthenticated):
		response.AuthError(c, "")
	case errors.Is(err, service.ErrNoActivePlan):
		response.SubscriptionError(c, "")
	case errors.Is(err, service.ErrQuotaExceeded):
		response.QuotaError(c, "")
	case errors.Is(err, service.ErrFeatureNotInPlan):
		response.PermissionError(c, "")
	case errors.Is(err, service.ErrForbidden):
		response.PermissionError(c, err.Error())
	case errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, service.ErrPlanNotFound),
		errors.Is(err, service.ErrOAuthNoEmail):
		response.ParamError(c, err.Error())
	case errors.Is(err, service.ErrStoryNotFound),
		errors.Is(err, service.ErrCollectionNotFound),
		errors.Is(err, service.ErrChatNotFound),
		errors.Is(err, service.ErrAuthorNotFound):
		response.NotFoundError(c, err.Error())
	case errors.Is(err, service.ErrOAuthBadState),
		errors.Is(err, service.ErrOAuthExchange):
		response.AuthError(c, err.Error())
	case errors.Is(err, service.ErrOAuthDisabled),
		errors.Is(err, service.ErrStorageDisabled):
		_ = c.Error(err)
		response.ServerError(c, err.Error())
	default:
		_ = c.Error(err)
		response.ServerError(c, "")
	}
}

// actor 当前会话；没有会话时返回 nil 接口
func actor(c *gin.Context) service.Actor {
	sess, ok := middleware.GetSession(c)
	if !ok {
		return nil
	}
	return sess
}
