package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/qs3c/needvox_server/internal/model"
	"github.com/qs3c/needvox_server/internal/pkg/kv"
)

// userNamespace 由邮箱派生用户 ID 的 UUIDv5 命名空间
var userNamespace = uuid.MustParse("6f1c2a7e-4b0d-5e8a-9c3f-2d7b1e0a4c58")

// IdentityService 当前会话的用户档案
type IdentityService interface {
	Authenticate(ctx context.Context, email, password string) (*model.User, error)
	Register(ctx context.Context, email, password, name string) (*model.User, error)
	SignOut(ctx context.Context) error
	ApplyUpdate(ctx context.Context, update model.UserUpdate) (*model.User, error)
	Restore(ctx context.Context) error
	Current() *model.User
}

// UserIDForEmail 同一邮箱（忽略大小写）总是得到同一个 ID
func UserIDForEmail(email string) string {
	normalized := strings.ToLower(strings.TrimSpace(email))
	return uuid.NewSHA1(userNamespace, []byte(normalized)).String()
}

// displayName 取邮箱 @ 之前的部分
func displayName(email string) string {
	email = strings.TrimSpace(email)
	if i := strings.Index(email, "@"); i >= 0 {
		return email[:i]
	}
	return email
}

type IdentityStore struct {
	store  kv.Store
	key    string
	delay  time.Duration
	logger *zap.Logger

	mu   sync.RWMutex
	user *model.User
}

// NewIdentityStore key 为用户记录的完整键名，delay 为登录/注册的模拟耗时
func NewIdentityStore(store kv.Store, key string, delay time.Duration, logger *zap.Logger) *IdentityStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IdentityStore{
		store:  store,
		key:    key,
		delay:  delay,
		logger: logger.Named("identity"),
	}
}

// Authenticate 登录。不校验密码，显示名取邮箱前缀
func (s *IdentityStore) Authenticate(ctx context.Context, email, password string) (*model.User, error) {
	if err := simulateLatency(ctx, s.delay); err != nil {
		return nil, err
	}
	return s.signIn(ctx, email, displayName(email))
}

// Register 注册，使用调用方给出的显示名
func (s *IdentityStore) Register(ctx context.Context, email, password, name string) (*model.User, error) {
	if err := simulateLatency(ctx, s.delay); err != nil {
		return nil, err
	}
	return s.signIn(ctx, email, name)
}

func (s *IdentityStore) signIn(ctx context.Context, email, name string) (*model.User, error) {
	user := &model.User{
		ID:    UserIDForEmail(email),
		Email: strings.TrimSpace(email),
		Name:  name,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.persist(ctx, user); err != nil {
		return nil, err
	}
	s.user = user
	s.logger.Info("user signed in", zap.String("user_id", user.ID))
	return user.Clone(), nil
}

// SignOut 清除当前用户和持久化记录
func (s *IdentityStore) SignOut(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Delete(ctx, s.key); err != nil {
		return fmt.Errorf("failed to delete user record: %w", err)
	}
	s.user = nil
	return nil
}

// ApplyUpdate 合并字段并整体重写记录；未登录时什么也不做，返回 nil
func (s *IdentityStore) ApplyUpdate(ctx context.Context, update model.UserUpdate) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.user == nil {
		return nil, nil
	}

	next := s.user.Clone()
	update.Apply(next)
	if err := s.persist(ctx, next); err != nil {
		return nil, err
	}
	s.user = next
	return next.Clone(), nil
}

// Restore 读取之前保存的用户；记录不存在或已损坏时保持未登录
func (s *IdentityStore) Restore(ctx context.Context) error {
	data, err := s.store.Get(ctx, s.key)
	if errors.Is(err, kv.ErrNotFound) {
		s.setUser(nil)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load user record: %w", err)
	}

	var user model.User
	if err := json.Unmarshal(data, &user); err != nil {
		s.logger.Warn("discarding malformed user record", zap.String("key", s.key), zap.Error(err))
		s.setUser(nil)
		return nil
	}
	s.setUser(&user)
	return nil
}

// Current 返回当前用户的副本，未登录时为 nil
func (s *IdentityStore) Current() *model.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user.Clone()
}

func (s *IdentityStore) setUser(u *model.User) {
	s.mu.Lock()
	s.user = u
	s.mu.Unlock()
}

func (s *IdentityStore) persist(ctx context.Context, u *model.User) error {
	data, err := json.Marshal(u)
	if err != nil {
		return err
	}
	if err := s.store.Set(ctx, s.key, data); err != nil {
		return fmt.Errorf("failed to save user record: %w", err)
	}
	return nil
}
