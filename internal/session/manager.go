package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/qs3c/needvox_server/internal/pkg/kv"
	"github.com/qs3c/needvox_server/internal/service"
)

var ErrInvalidSessionID = errors.New("invalid session id")

// Manager 缓存活跃会话；缓存未命中时从键值存储恢复
type Manager struct {
	store  kv.Store
	opts   Options
	logger *zap.Logger

	mu       sync.Mutex
	sessions map[string]*Session

	// 同一用户的所有会话共用一个订阅存储
	entMu        sync.Mutex
	entitlements map[string]*service.EntitlementStore
}

func NewManager(store kv.Store, opts Options) *Manager {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Manager{
		store:        store,
		opts:         opts,
		logger:       opts.Logger.Named("session"),
		sessions:     make(map[string]*Session),
		entitlements: make(map[string]*service.EntitlementStore),
	}
}

// entitlementsFor 返回用户共享的订阅存储，并从持久化记录刷新
func (m *Manager) entitlementsFor(ctx context.Context, userID string) (*service.EntitlementStore, error) {
	m.entMu.Lock()
	defer m.entMu.Unlock()

	ent, ok := m.entitlements[userID]
	if !ok {
		key := service.RecordKey(m.opts.KeyPrefix, service.SubscriptionRecordName, userID)
		ent = service.NewEntitlementStore(m.store, key, service.EntitlementOptions{
			SubscribeDelay: m.opts.SubscribeDelay,
			Now:            m.opts.Now,
			Logger:         m.opts.Logger,
		})
	}
	if err := ent.Restore(ctx); err != nil {
		return nil, err
	}
	m.entitlements[userID] = ent
	return ent, nil
}

// Create 新建一个未登录的会话
func (m *Manager) Create(ctx context.Context) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sess := newSession(uuid.NewString(), m.store, m.opts, m.entitlementsFor)

	m.mu.Lock()
	m.sessions[sess.ID] = sess
	m.mu.Unlock()

	m.logger.Debug("session created", zap.String("session_id", sess.ID))
	return sess, nil
}

// Get 返回会话，不在内存中时按 ID 从存储恢复
func (m *Manager) Get(ctx context.Context, id string) (*Session, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrInvalidSessionID
	}
	now := m.opts.Now()

	m.mu.Lock()
	sess, ok := m.sessions[id]
	m.mu.Unlock()
	if ok {
		if err := sess.refresh(ctx); err != nil {
			return nil, err
		}
		sess.touch(now)
		return sess, nil
	}

	restored := newSession(id, m.store, m.opts, m.entitlementsFor)
	if err := restored.restore(ctx); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	// 并发恢复同一会话时保留先放入的那个
	if existing, ok := m.sessions[id]; ok {
		existing.touch(now)
		return existing, nil
	}
	m.sessions[id] = restored
	m.logger.Debug("session restored",
		zap.String("session_id", id),
		zap.Bool("authenticated", restored.User() != nil),
	)
	return restored, nil
}

// Sweep 从内存中移除空闲超过 idle 的会话，持久化记录不受影响
func (m *Manager) Sweep(idle time.Duration) int {
	now := m.opts.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, sess := range m.sessions {
		if sess.idleSince(now) > idle {
			delete(m.sessions, id)
			removed++
		}
	}
	if removed > 0 {
		m.pruneEntitlements()
		m.logger.Info("idle sessions evicted", zap.Int("count", removed), zap.Int("active", len(m.sessions)))
	}
	return removed
}

// pruneEntitlements 丢弃已没有会话引用的订阅存储，调用方持有 m.mu
func (m *Manager) pruneEntitlements() {
	live := make(map[string]struct{}, len(m.sessions))
	for _, sess := range m.sessions {
		if id := sess.boundUser(); id != "" {
			live[id] = struct{}{}
		}
	}

	m.entMu.Lock()
	defer m.entMu.Unlock()
	for id := range m.entitlements {
		if _, ok := live[id]; !ok {
			delete(m.entitlements, id)
		}
	}
}

// Len 内存中的会话数
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
