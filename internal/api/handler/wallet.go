package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/qs3c/needvox_server/internal/model/dto"
	"github.com/qs3c/needvox_server/internal/pkg/response"
	"github.com/qs3c/needvox_server/internal/service"
)

type WalletHandler struct {
	walletService *service.WalletService
}

func NewWalletHandler(walletService *service.WalletService) *WalletHandler {
	return &WalletHandler{
		walletService: walletService,
	}
}

// Summary 余额、收益和已绑定的收款方式
// GET /api/v1/wallet
func (h *WalletHandler) Summary(c *gin.Context) {
	summary, err := h.walletService.Summary(c.Request.Context(), actor(c))
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, summary)
}

// Connect 绑定收款方式
// POST /api/v1/wallet/methods
func (h *WalletHandler) Connect(c *gin.Context) {
	var req dto.ConnectWalletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	summary, err := h.walletService.Connect(c.Request.Context(), actor(c), req.Method)
	if err != nil {
		respondError(c, err)
		return
	}
	response.SuccessWithMessage(c, "绑定成功", summary)
}
