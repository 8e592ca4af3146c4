package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/needvox_server/internal/model/dto"
	"github.com/qs3c/needvox_server/internal/pkg/response"
	"github.com/qs3c/needvox_server/internal/service"
)

type StoryHandler struct {
	storyService *service.StoryService
}

func NewStoryHandler(storyService *service.StoryService) *StoryHandler {
	return &StoryHandler{
		storyService: storyService,
	}
}

// List 已发布故事
// GET /api/v1/stories
func (h *StoryHandler) List(c *gin.Context) {
	var req dto.StoryListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}
	if req.Page < 1 {
		req.Page = 1
	}
	if req.PageSize < 1 || req.PageSize > 100 {
		req.PageSize = 20
	}

	items, total, err := h.storyService.List(c.Request.Context(), actor(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	response.SuccessPage(c, total, req.Page, req.PageSize, items)
}

// Tags GET /api/v1/stories/tags
func (h *StoryHandler) Tags(c *gin.Context) {
	tags, err := h.storyService.Tags()
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, tags)
}

// Criteria GET /api/v1/stories/criteria
func (h *StoryHandler) Criteria(c *gin.Context) {
	response.Success(c, h.storyService.Criteria())
}

// Get 故事详情
// GET /api/v1/stories/:id
func (h *StoryHandler) Get(c *gin.Context) {
	id, ok := storyID(c)
	if !ok {
		return
	}

	story, err := h.storyService.Get(c.Request.Context(), actor(c), id)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, story)
}

// Mine 我发布的故事（含审核中）
// GET /api/v1/stories/mine
func (h *StoryHandler) Mine(c *gin.Context) {
	items, err := h.storyService.Mine(c.Request.Context(), actor(c))
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, items)
}

// Create 提交故事，审核通过后公开
// POST /api/v1/stories
func (h *StoryHandler) Create(c *gin.Context) {
	var req dto.CreateStoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	story, err := h.storyService.Create(c.Request.Context(), actor(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	response.SuccessWithMessage(c, "已提交审核", story)
}

// Like 点赞，消耗一次点赞配额
// POST /api/v1/stories/:id/like
func (h *StoryHandler) Like(c *gin.Context) {
	id, ok := storyID(c)
	if !ok {
		return
	}

	resp, err := h.storyService.Like(c.Request.Context(), actor(c), id)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, resp)
}

// Unlike 取消点赞
// DELETE /api/v1/stories/:id/like
func (h *StoryHandler) Unlike(c *gin.Context) {
	id, ok := storyID(c)
	if !ok {
		return
	}

	resp, err := h.storyService.Unlike(c.Request.Context(), actor(c), id)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, resp)
}

// View 记录浏览
// POST /api/v1/stories/:id/view
func (h *StoryHandler) View(c *gin.Context) {
	id, ok := storyID(c)
	if !ok {
		return
	}

	resp, err := h.storyService.View(c.Request.Context(), actor(c), id)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, resp)
}

// ContactAuthor 给作者发付费消息
// POST /api/v1/stories/:id/contact
func (h *StoryHandler) ContactAuthor(c *gin.Context) {
	id, ok := storyID(c)
	if !ok {
		return
	}

	var req dto.ContactAuthorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	chat, err := h.storyService.ContactAuthor(c.Request.Context(), actor(c), id, req.Message)
	if err != nil {
		respondError(c, err)
		return
	}

	response.SuccessWithMessage(c, "消息已发送", chat)
}

// AuthorProfile 作者主页
// GET /api/v1/authors/:id
func (h *StoryHandler) AuthorProfile(c *gin.Context) {
	profile, err := h.storyService.AuthorProfile(c.Request.Context(), actor(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, profile)
}

func storyID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ParamError(c, "无效的故事ID")
		return 0, false
	}
	return id, true
}
