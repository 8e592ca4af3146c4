package kv

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"
)

const maxUpdateRetries = 5

// RedisStore 基于 Redis 的实现，Update 使用 WATCH 乐观事务
type RedisStore struct {
	rdb *redis.Client
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := s.rdb.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", key, err)
	}
	return val, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte) error {
	if err := s.rdb.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.rdb.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Update(ctx context.Context, key string, fn UpdateFunc) error {
	txf := func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, key).Bytes()
		if err == redis.Nil {
			current = nil
		} else if err != nil {
			return fmt.Errorf("failed to get %s: %w", key, err)
		}

		next, err := fn(current)
		if err != nil {
			return err
		}
		if next == nil {
			return nil
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, next, 0)
			return nil
		})
		return err
	}

	for i := 0; i < maxUpdateRetries; i++ {
		err := s.rdb.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			// 键在事务期间被改动，重试
			continue
		}
		return err
	}
	return ErrConflict
}
