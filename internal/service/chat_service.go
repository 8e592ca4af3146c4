package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/qs3c/needvox_server/internal/model"
	"github.com/qs3c/needvox_server/internal/model/dto"
	"github.com/qs3c/needvox_server/internal/repository"
)

type ChatService struct {
	chatRepo *repository.ChatRepository
	logger   *zap.Logger
	now      func() time.Time
}

func NewChatService(chatRepo *repository.ChatRepository, logger *zap.Logger) *ChatService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatService{
		chatRepo: chatRepo,
		logger:   logger.Named("chat"),
		now:      time.Now,
	}
}

// List 当前用户参与的对话
func (s *ChatService) List(ctx context.Context, a Actor) ([]*dto.ChatInfo, error) {
	user, err := RequireUser(a)
	if err != nil {
		return nil, err
	}

	chats, err := s.chatRepo.ListByUser(user.ID)
	if err != nil {
		return nil, err
	}

	items := make([]*dto.ChatInfo, len(chats))
	for i, c := range chats {
		items[i] = toChatInfo(c, user.ID)
	}
	return items, nil
}

// Messages 对话消息，仅参与者可见
func (s *ChatService) Messages(ctx context.Context, a Actor, chatID int64) ([]*dto.MessageInfo, error) {
	user, err := RequireUser(a)
	if err != nil {
		return nil, err
	}

	if _, err := s.participantChat(chatID, user.ID); err != nil {
		return nil, err
	}

	messages, err := s.chatRepo.ListMessages(chatID)
	if err != nil {
		return nil, err
	}

	items := make([]*dto.MessageInfo, len(messages))
	for i, m := range messages {
		items[i] = toMessageInfo(m, user.ID)
	}
	return items, nil
}

// Send 在已有对话中发送消息
func (s *ChatService) Send(ctx context.Context, a Actor, chatID int64, content string) (*dto.MessageInfo, error) {
	user, err := RequireUser(a)
	if err != nil {
		return nil, err
	}

	content = strings.TrimSpace(content)
	if content == "" {
		return nil, invalidInput("消息不能为空")
	}

	if _, err := s.participantChat(chatID, user.ID); err != nil {
		return nil, err
	}

	msg := &model.Message{
		ChatID:    chatID,
		SenderID:  user.ID,
		Content:   content,
		CreatedAt: s.now(),
	}
	if err := s.chatRepo.AddMessage(msg); err != nil {
		return nil, err
	}
	return toMessageInfo(msg, user.ID), nil
}

// openPaid 读者联系作者：对话不存在时创建付费对话，首条消息计为付费消息
func (s *ChatService) openPaid(reader *model.User, story *model.Story, price float64, content string) (*model.Chat, error) {
	now := s.now()

	chat, err := s.chatRepo.GetByPair(reader.ID, story.AuthorID)
	paid := false
	if errors.Is(err, gorm.ErrRecordNotFound) {
		chat = &model.Chat{
			InitiatorID:     reader.ID,
			InitiatorName:   reader.Name,
			AuthorID:        story.AuthorID,
			AuthorName:      story.AuthorName,
			StoryID:         story.ID,
			IsPaid:          true,
			Price:           price,
			LastMessageTime: now,
			CreatedAt:       now,
		}
		if err := s.chatRepo.Create(chat); err != nil {
			return nil, err
		}
		paid = true
	} else if err != nil {
		return nil, err
	}

	msg := &model.Message{
		ChatID:    chat.ID,
		SenderID:  reader.ID,
		Content:   content,
		IsPaid:    paid,
		CreatedAt: now,
	}
	if err := s.chatRepo.AddMessage(msg); err != nil {
		return nil, err
	}
	chat.LastMessage = msg.Content
	chat.LastMessageTime = msg.CreatedAt

	s.logger.Info("author contacted",
		zap.Int64("chat_id", chat.ID),
		zap.Int64("story_id", story.ID),
		zap.Bool("paid", paid))
	return chat, nil
}

func (s *ChatService) participantChat(chatID int64, userID string) (*model.Chat, error) {
	chat, err := s.chatRepo.GetByID(chatID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrChatNotFound
		}
		return nil, err
	}
	if chat.InitiatorID != userID && chat.AuthorID != userID {
		return nil, ErrForbidden
	}
	return chat, nil
}
