package model

import (
	"time"
)

type Chat struct {
	ID              int64     `gorm:"primaryKey" json:"id"`
	InitiatorID     string    `gorm:"size:64;not null;uniqueIndex:idx_chat_pair" json:"initiator_id"`
	InitiatorName   string    `gorm:"size:100" json:"initiator_name"`
	AuthorID        string    `gorm:"size:64;not null;uniqueIndex:idx_chat_pair;index" json:"author_id"`
	AuthorName      string    `gorm:"size:100" json:"author_name"`
	StoryID         int64     `gorm:"index" json:"story_id"`
	IsPaid          bool      `gorm:"default:false" json:"is_paid"`
	Price           float64   `gorm:"type:decimal(10,2)" json:"price"`
	LastMessage     string    `gorm:"type:text" json:"last_message"`
	LastMessageTime time.Time `gorm:"index" json:"last_message_time"`
	CreatedAt       time.Time `json:"created_at"`
}

func (Chat) TableName() string {
	return "chats"
}

type Message struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	ChatID    int64     `gorm:"not null;index" json:"chat_id"`
	SenderID  string    `gorm:"size:64;not null" json:"sender_id"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	IsPaid    bool      `gorm:"default:false" json:"is_paid"`
	CreatedAt time.Time `gorm:"index" json:"timestamp"`
}

func (Message) TableName() string {
	return "messages"
}
