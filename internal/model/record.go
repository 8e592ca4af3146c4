package model

import (
	"time"
)

// Record 数据库键值存储的一行
type Record struct {
	Key       string `gorm:"primaryKey;size:191"`
	Value     string `gorm:"type:text;not null"`
	UpdatedAt time.Time
}

func (Record) TableName() string {
	return "kv_records"
}
