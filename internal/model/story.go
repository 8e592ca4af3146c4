package model

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// StringArray 以 JSON 文本保存的字符串数组
type StringArray []string

func (s StringArray) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	data, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (s *StringArray) Scan(value interface{}) error {
	var data []byte
	switch v := value.(type) {
	case nil:
		*s = StringArray{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return nil
	}
	if len(data) == 0 {
		*s = StringArray{}
		return nil
	}
	return json.Unmarshal(data, s)
}

// 故事状态
const (
	StoryStatusPending   = "pending"
	StoryStatusPublished = "published"
	StoryStatusRejected  = "rejected"
)

type Story struct {
	ID          int64       `gorm:"primaryKey" json:"id"`
	AuthorID    string      `gorm:"size:64;not null;index" json:"author_id"`
	AuthorName  string      `gorm:"size:100" json:"author_name"`
	Title       string      `gorm:"size:200;not null" json:"title"`
	Content     string      `gorm:"type:text;not null" json:"content"`
	Excerpt     string      `gorm:"size:500" json:"excerpt"`
	Tags        StringArray `gorm:"type:text" json:"tags"`
	Status      string      `gorm:"size:20;default:pending;index" json:"status"`
	LikeCount   int         `gorm:"default:0" json:"like_count"`
	ViewCount   int         `gorm:"default:0" json:"view_count"`
	PublishedAt *time.Time  `json:"published_at,omitempty"`
	CreatedAt   time.Time   `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

func (Story) TableName() string {
	return "stories"
}

// StoryLike 用户对故事的点赞
type StoryLike struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	UserID    string    `gorm:"size:64;not null;uniqueIndex:idx_story_like_user" json:"user_id"`
	StoryID   int64     `gorm:"not null;uniqueIndex:idx_story_like_user;index" json:"story_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (StoryLike) TableName() string {
	return "story_likes"
}

// StoryCriteria 发布前作者须逐条确认的标准
var StoryCriteria = []string{
	"История описывает реальную проблему или потребность",
	"Указаны конкретные детали (бюджет, временные рамки, требования)",
	"Описаны попытки решения проблемы и их результаты",
	"История может быть полезна предпринимателям для поиска ниш",
	"Отсутствует реклама конкретных продуктов или услуг",
	"Соблюдены правила приличия и этики",
}
