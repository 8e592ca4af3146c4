// Package kv 保存用户记录与订阅记录的键值存储。
package kv

import (
	"context"
	"errors"
)

var (
	ErrNotFound = errors.New("kv: key not found")
	ErrConflict = errors.New("kv: concurrent update conflict")
)

// UpdateFunc 收到当前值（不存在时为 nil），返回要写入的新值。
// 返回 nil 值表示不写入；返回 error 时放弃本次更新并把 error 原样返回。
type UpdateFunc func(current []byte) ([]byte, error)

// Store 键值存储。Set 总是整体覆盖。
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	// Update 原子地读-改-写同一个键
	Update(ctx context.Context, key string, fn UpdateFunc) error
}
