package model

import (
	"time"
)

// 合集状态
const (
	CollectionStatusReady      = "ready"
	CollectionStatusGenerating = "generating"
	CollectionStatusFailed     = "failed"
)

type Collection struct {
	ID            string      `gorm:"primaryKey;size:26" json:"id"` // ULID
	OwnerID       string      `gorm:"size:64;not null;index" json:"owner_id"`
	Title         string      `gorm:"size:200;not null" json:"title"`
	Description   string      `gorm:"type:text" json:"description"`
	IsAIGenerated bool        `gorm:"default:false" json:"is_ai_generated"`
	Prompt        string      `gorm:"type:text" json:"prompt,omitempty"`
	Status        string      `gorm:"size:20;default:ready;index" json:"status"`
	StoryIDs      StringArray `gorm:"type:text" json:"story_ids"`
	StoriesCount  int         `gorm:"default:0" json:"stories_count"`
	CreatedAt     time.Time   `gorm:"index" json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

func (Collection) TableName() string {
	return "collections"
}
