// Package session 把身份存储和订阅存储绑定到一个显式的会话对象上。
package session

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/qs3c/needvox_server/internal/model"
	"github.com/qs3c/needvox_server/internal/pkg/kv"
	"github.com/qs3c/needvox_server/internal/service"
)

type Options struct {
	KeyPrefix      string
	AuthDelay      time.Duration
	SubscribeDelay time.Duration
	Now            func() time.Time
	Logger         *zap.Logger
}

// entitlementSource 按用户 ID 取订阅存储，同一用户的会话共用一个
type entitlementSource func(ctx context.Context, userID string) (*service.EntitlementStore, error)

// Session 用户记录按会话 ID 隔离，订阅记录按用户 ID 隔离，
// 同一用户重新登录后仍能拿回自己的订阅
type Session struct {
	ID string

	identity        *service.IdentityStore
	entitlementsFor entitlementSource

	mu           sync.RWMutex
	entitlements service.EntitlementService
	userID       string
	lastSeen     time.Time
}

func newSession(id string, store kv.Store, opts Options, source entitlementSource) *Session {
	key := service.RecordKey(opts.KeyPrefix, service.UserRecordName, id)
	return &Session{
		ID:              id,
		identity:        service.NewIdentityStore(store, key, opts.AuthDelay, opts.Logger),
		entitlementsFor: source,
		entitlements:    service.UnboundEntitlements{},
		lastSeen:        opts.Now(),
	}
}

func (s *Session) Identity() service.IdentityService {
	return s.identity
}

func (s *Session) Entitlements() service.EntitlementService {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.entitlements
}

// User 当前用户，未登录为 nil
func (s *Session) User() *model.User {
	return s.identity.Current()
}

func (s *Session) Authenticate(ctx context.Context, email, password string) (*model.User, error) {
	user, err := s.identity.Authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if err := s.bind(ctx, user.ID); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *Session) Register(ctx context.Context, email, password, name string) (*model.User, error) {
	user, err := s.identity.Register(ctx, email, password, name)
	if err != nil {
		return nil, err
	}
	if err := s.bind(ctx, user.ID); err != nil {
		return nil, err
	}
	return user, nil
}

// SignOut 退出后订阅视图拒绝一切操作；订阅记录本身保留
func (s *Session) SignOut(ctx context.Context) error {
	if err := s.identity.SignOut(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	s.entitlements = service.UnboundEntitlements{}
	s.userID = ""
	s.mu.Unlock()
	return nil
}

// restore 从存储恢复用户，已登录则同时恢复其订阅
func (s *Session) restore(ctx context.Context) error {
	if err := s.identity.Restore(ctx); err != nil {
		return err
	}
	user := s.identity.Current()
	if user == nil {
		return nil
	}
	return s.bind(ctx, user.ID)
}

// refresh 重新读取持久化的订阅，其他实例的改动在下一次请求时可见
func (s *Session) refresh(ctx context.Context) error {
	ent, ok := s.Entitlements().(*service.EntitlementStore)
	if !ok {
		return nil
	}
	return ent.Restore(ctx)
}

func (s *Session) bind(ctx context.Context, userID string) error {
	ent, err := s.entitlementsFor(ctx, userID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.entitlements = ent
	s.userID = userID
	s.mu.Unlock()
	return nil
}

// boundUser 已绑定订阅的用户 ID，未登录为空
func (s *Session) boundUser() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userID
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince(now time.Time) time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return now.Sub(s.lastSeen)
}
