package repository

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/qs3c/needvox_server/internal/model"
)

type PayoutRepository struct {
	db *gorm.DB
}

func NewPayoutRepository(db *gorm.DB) *PayoutRepository {
	return &PayoutRepository{db: db}
}

// Connect 绑定收款方式，重复绑定不报错
func (r *PayoutRepository) Connect(method *model.PayoutMethod) error {
	return r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(method).Error
}

// ListByUser 获取用户已绑定的收款方式
func (r *PayoutRepository) ListByUser(userID string) ([]*model.PayoutMethod, error) {
	var methods []*model.PayoutMethod
	err := r.db.Where("user_id = ?", userID).Order("connected_at ASC").Order("id ASC").Find(&methods).Error
	return methods, err
}

func (r *PayoutRepository) Exists(userID, method string) (bool, error) {
	var count int64
	err := r.db.Model(&model.PayoutMethod{}).
		Where("user_id = ? AND method = ?", userID, method).
		Count(&count).Error
	return count > 0, err
}
