package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/qs3c/needvox_server/internal/model"
)

type CollectionRepository struct {
	db *gorm.DB
}

func NewCollectionRepository(db *gorm.DB) *CollectionRepository {
	return &CollectionRepository{db: db}
}

func (r *CollectionRepository) Create(collection *model.Collection) error {
	return r.db.Create(collection).Error
}

func (r *CollectionRepository) GetByID(id string) (*model.Collection, error) {
	var collection model.Collection
	err := r.db.Where("id = ?", id).First(&collection).Error
	if err != nil {
		return nil, err
	}
	return &collection, nil
}

// ListByOwner 获取用户的合集，最新在前
func (r *CollectionRepository) ListByOwner(ownerID string) ([]*model.Collection, error) {
	var collections []*model.Collection
	err := r.db.Where("owner_id = ?", ownerID).
		Order("created_at DESC").Order("id DESC").Find(&collections).Error
	return collections, err
}

// ListGeneratingBefore 获取在 before 之前创建、仍在生成中的合集
func (r *CollectionRepository) ListGeneratingBefore(before time.Time, limit int) ([]*model.Collection, error) {
	var collections []*model.Collection
	err := r.db.Where("status = ? AND created_at < ?", model.CollectionStatusGenerating, before).
		Order("created_at ASC").Limit(limit).Find(&collections).Error
	return collections, err
}

func (r *CollectionRepository) Update(collection *model.Collection) error {
	return r.db.Save(collection).Error
}

func (r *CollectionRepository) UpdateStatus(id, status string) error {
	return r.db.Model(&model.Collection{}).Where("id = ?", id).Update("status", status).Error
}

func (r *CollectionRepository) Delete(id string) error {
	return r.db.Where("id = ?", id).Delete(&model.Collection{}).Error
}
