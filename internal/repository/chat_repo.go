package repository

import (
	"gorm.io/gorm"

	"github.com/qs3c/needvox_server/internal/model"
)

type ChatRepository struct {
	db *gorm.DB
}

func NewChatRepository(db *gorm.DB) *ChatRepository {
	return &ChatRepository{db: db}
}

func (r *ChatRepository) Create(chat *model.Chat) error {
	return r.db.Create(chat).Error
}

func (r *ChatRepository) GetByID(id int64) (*model.Chat, error) {
	var chat model.Chat
	err := r.db.Where("id = ?", id).First(&chat).Error
	if err != nil {
		return nil, err
	}
	return &chat, nil
}

// GetByPair 获取发起人与作者之间的对话
func (r *ChatRepository) GetByPair(initiatorID, authorID string) (*model.Chat, error) {
	var chat model.Chat
	err := r.db.Where("initiator_id = ? AND author_id = ?", initiatorID, authorID).First(&chat).Error
	if err != nil {
		return nil, err
	}
	return &chat, nil
}

// ListByUser 获取用户参与的对话，最近有消息的在前
func (r *ChatRepository) ListByUser(userID string) ([]*model.Chat, error) {
	var chats []*model.Chat
	err := r.db.Where("initiator_id = ? OR author_id = ?", userID, userID).
		Order("last_message_time DESC").Order("id DESC").Find(&chats).Error
	return chats, err
}

// AddMessage 写入消息并更新对话的最后一条消息
func (r *ChatRepository) AddMessage(msg *model.Message) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(msg).Error; err != nil {
			return err
		}
		return tx.Model(&model.Chat{}).Where("id = ?", msg.ChatID).Updates(map[string]interface{}{
			"last_message":      msg.Content,
			"last_message_time": msg.CreatedAt,
		}).Error
	})
}

// ListMessages 按时间顺序获取对话消息
func (r *ChatRepository) ListMessages(chatID int64) ([]*model.Message, error) {
	var messages []*model.Message
	err := r.db.Where("chat_id = ?", chatID).
		Order("created_at ASC").Order("id ASC").Find(&messages).Error
	return messages, err
}
