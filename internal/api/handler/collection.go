package handler

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/needvox_server/internal/model/dto"
	"github.com/qs3c/needvox_server/internal/pkg/response"
	"github.com/qs3c/needvox_server/internal/service"
)

type CollectionHandler struct {
	collectionService *service.CollectionService
}

func NewCollectionHandler(collectionService *service.CollectionService) *CollectionHandler {
	return &CollectionHandler{
		collectionService: collectionService,
	}
}

// List 我的合集
// GET /api/v1/collections
func (h *CollectionHandler) List(c *gin.Context) {
	items, err := h.collectionService.List(c.Request.Context(), actor(c))
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, items)
}

// Create 手动创建合集
// POST /api/v1/collections
func (h *CollectionHandler) Create(c *gin.Context) {
	var req dto.CreateCollectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	collection, err := h.collectionService.Create(c.Request.Context(), actor(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	response.SuccessWithMessage(c, "创建成功", collection)
}

// CreateAI 按描述生成合集，生成在后台完成
// POST /api/v1/collections/ai
func (h *CollectionHandler) CreateAI(c *gin.Context) {
	var req dto.CreateAICollectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	collection, err := h.collectionService.CreateAI(c.Request.Context(), actor(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	response.SuccessWithMessage(c, "合集生成中", collection)
}

// Download 导出合集及其故事全文
// GET /api/v1/collections/:id/download
func (h *CollectionHandler) Download(c *gin.Context) {
	id := c.Param("id")
	export, err := h.collectionService.Download(c.Request.Context(), actor(c), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="collection-%s.json"`, id))
	response.Success(c, export)
}

// Delete 删除合集
// DELETE /api/v1/collections/:id
func (h *CollectionHandler) Delete(c *gin.Context) {
	if err := h.collectionService.Delete(c.Request.Context(), actor(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	response.SuccessWithMessage(c, "删除成功", nil)
}
