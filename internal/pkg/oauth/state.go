package oauth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	stateKeyPrefix = "oauth:state:"
	stateTTL       = 10 * time.Minute
)

var ErrInvalidState = errors.New("invalid or expired state")

// StateStore 保存 OAuth state 与发起登录的会话的对应关系
type StateStore struct {
	rdb *redis.Client
}

func NewStateStore(rdb *redis.Client) *StateStore {
	return &StateStore{rdb: rdb}
}

// GenerateState 生成随机 state 并记录会话 ID
func (s *StateStore) GenerateState(ctx context.Context, sessionID string) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate random state: %w", err)
	}
	state := hex.EncodeToString(buf)

	if err := s.rdb.Set(ctx, stateKeyPrefix+state, sessionID, stateTTL).Err(); err != nil {
		return "", fmt.Errorf("failed to store state: %w", err)
	}
	return state, nil
}

// ValidateState 校验并消费 state，返回对应的会话 ID；同一个 state 只能用一次
func (s *StateStore) ValidateState(ctx context.Context, state string) (string, error) {
	if state == "" {
		return "", ErrInvalidState
	}

	key := stateKeyPrefix + state
	var sessionID string
	err := s.rdb.Watch(ctx, func(tx *redis.Tx) error {
		val, err := tx.Get(ctx, key).Result()
		if err == redis.Nil {
			return ErrInvalidState
		}
		if err != nil {
			return fmt.Errorf("failed to get state: %w", err)
		}
		sessionID = val

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			return nil
		})
		return err
	}, key)
	if err != nil {
		return "", err
	}

	return sessionID, nil
}
