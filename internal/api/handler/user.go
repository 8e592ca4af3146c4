package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/qs3c/needvox_server/internal/model/dto"
	"github.com/qs3c/needvox_server/internal/pkg/response"
	"github.com/qs3c/needvox_server/internal/service"
)

type UserHandler struct {
	userService *service.UserService
}

func NewUserHandler(userService *service.UserService) *UserHandler {
	return &UserHandler{
		userService: userService,
	}
}

// GetProfile 获取当前用户信息和订阅
// GET /api/v1/user/profile
func (h *UserHandler) GetProfile(c *gin.Context) {
	profile, err := h.userService.Profile(c.Request.Context(), actor(c))
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, profile)
}

// UpdateProfile 更新用户信息
// PUT /api/v1/user/profile
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	var req dto.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	user, err := h.userService.UpdateProfile(c.Request.Context(), actor(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	response.SuccessWithMessage(c, "更新成功", user)
}

// UploadAvatar 上传头像
// POST /api/v1/user/avatar
func (h *UserHandler) UploadAvatar(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		response.ParamError(c, "请选择文件")
		return
	}

	f, err := file.Open()
	if err != nil {
		response.ServerError(c, "文件读取失败")
		return
	}
	defer f.Close()

	user, err := h.userService.UploadAvatar(c.Request.Context(), actor(c), f, file.Filename)
	if err != nil {
		respondError(c, err)
		return
	}

	response.SuccessWithMessage(c, "上传成功", user)
}
