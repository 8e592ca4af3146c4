package repository

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/qs3c/needvox_server/internal/model"
)

type LikeRepository struct {
	db *gorm.DB
}

func NewLikeRepository(db *gorm.DB) *LikeRepository {
	return &LikeRepository{db: db}
}

// Create 创建点赞记录，已存在时返回 false
func (r *LikeRepository) Create(userID string, storyID int64) (bool, error) {
	result := r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&model.StoryLike{
		UserID:  userID,
		StoryID: storyID,
	})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// Delete 删除点赞记录，不存在时返回 false
func (r *LikeRepository) Delete(userID string, storyID int64) (bool, error) {
	result := r.db.Where("user_id = ? AND story_id = ?", userID, storyID).
		Delete(&model.StoryLike{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// Exists 检查是否已点赞
func (r *LikeRepository) Exists(userID string, storyID int64) (bool, error) {
	var count int64
	err := r.db.Model(&model.StoryLike{}).
		Where("user_id = ? AND story_id = ?", userID, storyID).
		Count(&count).Error
	return count > 0, err
}

// LikedStoryIDs 返回 storyIDs 中用户已点赞的部分
func (r *LikeRepository) LikedStoryIDs(userID string, storyIDs []int64) (map[int64]bool, error) {
	liked := make(map[int64]bool)
	if userID == "" || len(storyIDs) == 0 {
		return liked, nil
	}

	var ids []int64
	err := r.db.Model(&model.StoryLike{}).
		Where("user_id = ? AND story_id IN ?", userID, storyIDs).
		Pluck("story_id", &ids).Error
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		liked[id] = true
	}
	return liked, nil
}
