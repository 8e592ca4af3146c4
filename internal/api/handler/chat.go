package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/needvox_server/internal/model/dto"
	"github.com/qs3c/needvox_server/internal/pkg/response"
	"github.com/qs3c/needvox_server/internal/service"
)

type ChatHandler struct {
	chatService *service.ChatService
}

func NewChatHandler(chatService *service.ChatService) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
	}
}

// List GET /api/v1/chats
func (h *ChatHandler) List(c *gin.Context) {
	chats, err := h.chatService.List(c.Request.Context(), actor(c))
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, chats)
}

// Messages GET /api/v1/chats/:id/messages
func (h *ChatHandler) Messages(c *gin.Context) {
	id, ok := chatID(c)
	if !ok {
		return
	}

	messages, err := h.chatService.Messages(c.Request.Context(), actor(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, messages)
}

// Send POST /api/v1/chats/:id/messages
func (h *ChatHandler) Send(c *gin.Context) {
	id, ok := chatID(c)
	if !ok {
		return
	}

	var req dto.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	msg, err := h.chatService.Send(c.Request.Context(), actor(c), id, req.Content)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, msg)
}

func chatID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ParamError(c, "无效的对话ID")
		return 0, false
	}
	return id, true
}
