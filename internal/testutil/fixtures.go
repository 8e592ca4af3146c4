package testutil

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"gorm.io/gorm"

	"github.com/qs3c/needvox_server/internal/model"
)

// StoryContent 生成满足最小长度的故事正文
func StoryContent(runes int) string {
	return strings.Repeat("а", runes)
}

// TestStory 创建测试故事，默认已发布
func TestStory(t *testing.T, db *gorm.DB, authorID string, opts ...func(*model.Story)) *model.Story {
	t.Helper()

	now := time.Now()
	content := StoryContent(120)
	story := &model.Story{
		AuthorID:    authorID,
		AuthorName:  "author",
		Title:       fmt.Sprintf("Test Story %d", now.UnixNano()%10000),
		Content:     content,
		Excerpt:     content[:40],
		Tags:        model.StringArray{"техника", "сервис"},
		Status:      model.StoryStatusPublished,
		PublishedAt: &now,
	}

	for _, opt := range opts {
		opt(story)
	}

	if err := db.Create(story).Error; err != nil {
		t.Fatalf("Failed to create test story: %v", err)
	}

	return story
}

// WithTitle 设置故事标题
func WithTitle(title string) func(*model.Story) {
	return func(s *model.Story) {
		s.Title = title
	}
}

// WithTags 设置标签
func WithTags(tags ...string) func(*model.Story) {
	return func(s *model.Story) {
		s.Tags = model.StringArray(tags)
	}
}

// WithStatus 设置状态
func WithStatus(status string) func(*model.Story) {
	return func(s *model.Story) {
		s.Status = status
		if status != model.StoryStatusPublished {
			s.PublishedAt = nil
		}
	}
}

// WithCounts 设置点赞数与浏览数
func WithCounts(likes, views int) func(*model.Story) {
	return func(s *model.Story) {
		s.LikeCount = likes
		s.ViewCount = views
	}
}

// WithCreatedAt 设置创建时间
func WithCreatedAt(at time.Time) func(*model.Story) {
	return func(s *model.Story) {
		s.CreatedAt = at
		s.PublishedAt = &at
	}
}

// TestCollection 创建测试合集
func TestCollection(t *testing.T, db *gorm.DB, ownerID string, opts ...func(*model.Collection)) *model.Collection {
	t.Helper()

	collection := &model.Collection{
		ID:       ulid.Make().String(),
		OwnerID:  ownerID,
		Title:    fmt.Sprintf("Test Collection %d", time.Now().UnixNano()%10000),
		Status:   model.CollectionStatusReady,
		StoryIDs: model.StringArray{},
	}

	for _, opt := range opts {
		opt(collection)
	}

	if err := db.Create(collection).Error; err != nil {
		t.Fatalf("Failed to create test collection: %v", err)
	}

	return collection
}

// WithCollectionStories 设置合集内的故事
func WithCollectionStories(ids ...string) func(*model.Collection) {
	return func(c *model.Collection) {
		c.StoryIDs = model.StringArray(ids)
		c.StoriesCount = len(ids)
	}
}

// TestChat 创建测试对话
func TestChat(t *testing.T, db *gorm.DB, initiatorID, authorID string, storyID int64) *model.Chat {
	t.Helper()

	chat := &model.Chat{
		InitiatorID:     initiatorID,
		InitiatorName:   "reader",
		AuthorID:        authorID,
		AuthorName:      "author",
		StoryID:         storyID,
		IsPaid:          true,
		Price:           1.5,
		LastMessageTime: time.Now(),
	}

	if err := db.Create(chat).Error; err != nil {
		t.Fatalf("Failed to create test chat: %v", err)
	}

	return chat
}
