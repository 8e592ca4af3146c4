package repository

import (
	"sort"
	"time"

	"gorm.io/gorm"

	"github.com/qs3c/needvox_server/internal/model"
)

// 故事列表排序方式
const (
	StorySortRecent = "recent"
	StorySortLikes  = "likes"
	StorySortViews  = "views"
)

type StoryRepository struct {
	db *gorm.DB
}

func NewStoryRepository(db *gorm.DB) *StoryRepository {
	return &StoryRepository{db: db}
}

func (r *StoryRepository) Create(story *model.Story) error {
	return r.db.Create(story).Error
}

func (r *StoryRepository) GetByID(id int64) (*model.Story, error) {
	var story model.Story
	err := r.db.Where("id = ?", id).First(&story).Error
	if err != nil {
		return nil, err
	}
	return &story, nil
}

// GetPublishedByID 只返回已发布的故事
func (r *StoryRepository) GetPublishedByID(id int64) (*model.Story, error) {
	var story model.Story
	err := r.db.Where("id = ? AND status = ?", id, model.StoryStatusPublished).First(&story).Error
	if err != nil {
		return nil, err
	}
	return &story, nil
}

// ListPublished 获取已发布故事，tag 为空时不过滤
func (r *StoryRepository) ListPublished(tag, sortBy string) ([]*model.Story, error) {
	var stories []*model.Story

	query := r.db.Model(&model.Story{}).Where("status = ?", model.StoryStatusPublished)
	if tag != "" {
		// tags 以 JSON 数组保存，按带引号的元素匹配
		query = query.Where("tags LIKE ?", "%\""+tag+"\"%")
	}

	switch sortBy {
	case StorySortLikes:
		query = query.Order("like_count DESC").Order("created_at DESC")
	case StorySortViews:
		query = query.Order("view_count DESC").Order("created_at DESC")
	default: // recent
		query = query.Order("created_at DESC")
	}
	query = query.Order("id DESC")

	if err := query.Find(&stories).Error; err != nil {
		return nil, err
	}
	return stories, nil
}

// ListByAuthor 获取作者已发布的故事
func (r *StoryRepository) ListByAuthor(authorID string) ([]*model.Story, error) {
	var stories []*model.Story
	err := r.db.Where("author_id = ? AND status = ?", authorID, model.StoryStatusPublished).
		Order("created_at DESC").Find(&stories).Error
	return stories, err
}

// ListAllByAuthor 获取作者的全部故事，包括待审核和被拒绝的
func (r *StoryRepository) ListAllByAuthor(authorID string) ([]*model.Story, error) {
	var stories []*model.Story
	err := r.db.Where("author_id = ?", authorID).Order("created_at DESC").Order("id DESC").Find(&stories).Error
	return stories, err
}

// ListTags 已发布故事使用过的标签，去重后排序
func (r *StoryRepository) ListTags() ([]string, error) {
	var rows []model.StringArray
	err := r.db.Model(&model.Story{}).Where("status = ?", model.StoryStatusPublished).
		Pluck("tags", &rows).Error
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	tags := make([]string, 0)
	for _, row := range rows {
		for _, tag := range row {
			if _, ok := seen[tag]; ok {
				continue
			}
			seen[tag] = struct{}{}
			tags = append(tags, tag)
		}
	}
	sort.Strings(tags)
	return tags, nil
}

// GetPublishedByIDs 按 ID 批量获取已发布故事
func (r *StoryRepository) GetPublishedByIDs(ids []int64) ([]*model.Story, error) {
	var stories []*model.Story
	if len(ids) == 0 {
		return stories, nil
	}
	err := r.db.Where("id IN ? AND status = ?", ids, model.StoryStatusPublished).Find(&stories).Error
	return stories, err
}

// Publish 审核通过
func (r *StoryRepository) Publish(id int64, at time.Time) error {
	return r.db.Model(&model.Story{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":       model.StoryStatusPublished,
		"published_at": at,
	}).Error
}

// Reject 审核拒绝
func (r *StoryRepository) Reject(id int64) error {
	return r.db.Model(&model.Story{}).Where("id = ?", id).
		Update("status", model.StoryStatusRejected).Error
}

// ListPendingBefore 获取在 before 之前提交、仍待审核的故事
func (r *StoryRepository) ListPendingBefore(before time.Time, limit int) ([]*model.Story, error) {
	var stories []*model.Story
	err := r.db.Where("status = ? AND created_at < ?", model.StoryStatusPending, before).
		Order("created_at ASC").Limit(limit).Find(&stories).Error
	return stories, err
}

// IncrementViewCount 增加浏览数
func (r *StoryRepository) IncrementViewCount(id int64) error {
	return r.db.Model(&model.Story{}).Where("id = ?", id).
		Update("view_count", gorm.Expr("view_count + 1")).Error
}

// IncrementLikeCount 增加点赞数
func (r *StoryRepository) IncrementLikeCount(id int64, delta int) error {
	return r.db.Model(&model.Story{}).Where("id = ?", id).
		Update("like_count", gorm.Expr("like_count + ?", delta)).Error
}
