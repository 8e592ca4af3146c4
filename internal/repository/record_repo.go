package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/qs3c/needvox_server/internal/model"
	"github.com/qs3c/needvox_server/internal/pkg/kv"
)

// RecordRepository 把键值记录保存在 kv_records 表中，实现 kv.Store
type RecordRepository struct {
	db *gorm.DB
}

func NewRecordRepository(db *gorm.DB) *RecordRepository {
	return &RecordRepository{db: db}
}

func (r *RecordRepository) Get(ctx context.Context, key string) ([]byte, error) {
	var rec model.Record
	err := r.db.WithContext(ctx).Where("`key` = ?", key).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, kv.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get record %s: %w", key, err)
	}
	return []byte(rec.Value), nil
}

func (r *RecordRepository) Set(ctx context.Context, key string, value []byte) error {
	return upsertRecord(r.db.WithContext(ctx), key, value)
}

func (r *RecordRepository) Delete(ctx context.Context, key string) error {
	err := r.db.WithContext(ctx).Where("`key` = ?", key).Delete(&model.Record{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete record %s: %w", key, err)
	}
	return nil
}

// Update 在事务内加行锁完成读-改-写
func (r *RecordRepository) Update(ctx context.Context, key string, fn kv.UpdateFunc) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec model.Record
		var current []byte
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("`key` = ?", key).First(&rec).Error
		switch {
		case err == nil:
			current = []byte(rec.Value)
		case errors.Is(err, gorm.ErrRecordNotFound):
			current = nil
		default:
			return fmt.Errorf("failed to lock record %s: %w", key, err)
		}

		next, err := fn(current)
		if err != nil {
			return err
		}
		if next == nil {
			return nil
		}
		return upsertRecord(tx, key, next)
	})
}

func upsertRecord(db *gorm.DB, key string, value []byte) error {
	rec := model.Record{
		Key:       key,
		Value:     string(value),
		UpdatedAt: time.Now(),
	}
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&rec).Error
	if err != nil {
		return fmt.Errorf("failed to save record %s: %w", key, err)
	}
	return nil
}
