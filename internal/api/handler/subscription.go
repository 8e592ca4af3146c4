package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/needvox_server/internal/model/dto"
	"github.com/qs3c/needvox_server/internal/pkg/response"
	"github.com/qs3c/needvox_server/internal/service"
)

type SubscriptionHandler struct {
	subscriptionService *service.SubscriptionService
}

func NewSubscriptionHandler(subscriptionService *service.SubscriptionService) *SubscriptionHandler {
	return &SubscriptionHandler{
		subscriptionService: subscriptionService,
	}
}

// Plans 套餐目录，yearly=true 时按年付报价
// GET /api/v1/subscription/plans
func (h *SubscriptionHandler) Plans(c *gin.Context) {
	yearly, _ := strconv.ParseBool(c.DefaultQuery("yearly", "false"))
	response.Success(c, h.subscriptionService.Plans(yearly))
}

// Current 当前订阅与各维度余量
// GET /api/v1/subscription
func (h *SubscriptionHandler) Current(c *gin.Context) {
	info, err := h.subscriptionService.Current(c.Request.Context(), actor(c))
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, info)
}

// Subscribe 开通或更换套餐，用量清零
// POST /api/v1/subscription
func (h *SubscriptionHandler) Subscribe(c *gin.Context) {
	var req dto.SubscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	info, err := h.subscriptionService.Subscribe(c.Request.Context(), actor(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	response.SuccessWithMessage(c, "订阅成功", info)
}

// Cancel 取消订阅
// DELETE /api/v1/subscription
func (h *SubscriptionHandler) Cancel(c *gin.Context) {
	info, err := h.subscriptionService.Cancel(c.Request.Context(), actor(c))
	if err != nil {
		respondError(c, err)
		return
	}

	response.SuccessWithMessage(c, "已取消订阅", info)
}
