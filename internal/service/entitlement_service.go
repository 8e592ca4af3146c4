package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/qs3c/needvox_server/internal/model"
	"github.com/qs3c/needvox_server/internal/pkg/kv"
)

var (
	ErrPlanNotFound     = errors.New("套餐不存在")
	ErrNoActivePlan     = errors.New("没有有效订阅")
	ErrQuotaExceeded    = errors.New("本周期配额已用完")
	ErrInvalidAmount    = errors.New("消耗数量必须为正数")
	ErrUnknownDimension = errors.New("未知的配额维度")
)

// EntitlementService 当前用户的订阅与用量
type EntitlementService interface {
	Plans() []model.SubscriptionPlan
	Subscribe(ctx context.Context, planID model.PlanID, isYearly bool) (model.UserSubscription, error)
	Cancel(ctx context.Context) error
	// RecordUsage 写入调用方算好的计数，不做上限检查
	RecordUsage(ctx context.Context, update model.UsageUpdate) error
	// TryConsume 原子地检查并增加用量，返回消耗后的剩余额度
	TryConsume(ctx context.Context, dim model.Dimension, amount int) (int, error)
	HasCapability(feature model.Feature) bool
	Remaining(dim model.Dimension) int
	Subscription() model.UserSubscription
	ActivePlan() (model.SubscriptionPlan, bool)
	Restore(ctx context.Context) error
}

type EntitlementOptions struct {
	// SubscribeDelay 订阅和取消的模拟耗时
	SubscribeDelay time.Duration
	Now            func() time.Time
	Logger         *zap.Logger
}

type EntitlementStore struct {
	store  kv.Store
	key    string
	delay  time.Duration
	now    func() time.Time
	logger *zap.Logger

	mu  sync.RWMutex
	sub model.UserSubscription
}

// NewEntitlementStore key 为订阅记录的完整键名
func NewEntitlementStore(store kv.Store, key string, opts EntitlementOptions) *EntitlementStore {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &EntitlementStore{
		store:  store,
		key:    key,
		delay:  opts.SubscribeDelay,
		now:    opts.Now,
		logger: opts.Logger.Named("entitlement"),
	}
}

// Plans 套餐目录，basic 在前
func (s *EntitlementStore) Plans() []model.SubscriptionPlan {
	return model.Plans()
}

// Subscribe 开通或切换套餐，到期时间为当前时间加 1 个月或 12 个月，用量清零
func (s *EntitlementStore) Subscribe(ctx context.Context, planID model.PlanID, isYearly bool) (model.UserSubscription, error) {
	if _, ok := model.FindPlan(planID); !ok {
		return model.UserSubscription{}, ErrPlanNotFound
	}
	if err := simulateLatency(ctx, s.delay); err != nil {
		return model.UserSubscription{}, err
	}

	months := 1
	if isYearly {
		months = 12
	}
	expiresAt := s.now().UTC().AddDate(0, months, 0)
	id := planID

	next := model.UserSubscription{
		PlanID:    &id,
		IsYearly:  isYearly,
		ExpiresAt: &expiresAt,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.persist(ctx, next); err != nil {
		return model.UserSubscription{}, err
	}
	s.sub = next
	s.logger.Info("subscribed",
		zap.String("key", s.key),
		zap.String("plan", string(planID)),
		zap.Bool("yearly", isYearly),
	)
	return next.Clone(), nil
}

// Cancel 取消订阅，清空套餐、周期、到期时间和用量
func (s *EntitlementStore) Cancel(ctx context.Context) error {
	if err := simulateLatency(ctx, s.delay); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.persist(ctx, model.UserSubscription{}); err != nil {
		return err
	}
	s.sub = model.UserSubscription{}
	s.logger.Info("subscription cancelled", zap.String("key", s.key))
	return nil
}

// RecordUsage 合并到当前持久化的记录上，不覆盖其他会话的改动
func (s *EntitlementStore) RecordUsage(ctx context.Context, update model.UsageUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var next model.UserSubscription
	err := s.store.Update(ctx, s.key, func(current []byte) ([]byte, error) {
		sub, err := decodeSubscription(current)
		if err != nil {
			return nil, err
		}
		update.Apply(&sub)
		next = sub
		return json.Marshal(sub)
	})
	if err != nil {
		return fmt.Errorf("failed to record usage: %w", err)
	}
	s.sub = next
	return nil
}

// TryConsume 以持久化记录为准做检查和累加，多个实例并发消耗也不会超过上限
func (s *EntitlementStore) TryConsume(ctx context.Context, dim model.Dimension, amount int) (int, error) {
	if !dim.Valid() {
		return 0, ErrUnknownDimension
	}
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var latest model.UserSubscription
	err := s.store.Update(ctx, s.key, func(current []byte) ([]byte, error) {
		sub, err := decodeSubscription(current)
		if err != nil {
			return nil, err
		}
		latest = sub

		plan, ok := activePlan(sub)
		if !ok {
			return nil, ErrNoActivePlan
		}
		used := sub.Used(dim)
		if used+amount > plan.Features.Quota(dim) {
			return nil, ErrQuotaExceeded
		}

		sub.SetUsed(dim, used+amount)
		latest = sub
		return json.Marshal(sub)
	})

	// 无论成功与否都以存储中的最新值为准
	if err == nil || errors.Is(err, ErrNoActivePlan) || errors.Is(err, ErrQuotaExceeded) {
		s.sub = latest
	}
	if err != nil {
		return remaining(s.sub, dim), err
	}
	return remaining(s.sub, dim), nil
}

// HasCapability 只接受布尔权益；无套餐或未知名称返回 false
func (s *EntitlementStore) HasCapability(feature model.Feature) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	plan, ok := activePlan(s.sub)
	if !ok {
		return false
	}
	return plan.Features.Flag(feature)
}

// Remaining 剩余额度，max(0, quota - used)
func (s *EntitlementStore) Remaining(dim model.Dimension) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return remaining(s.sub, dim)
}

func (s *EntitlementStore) Subscription() model.UserSubscription {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sub.Clone()
}

func (s *EntitlementStore) ActivePlan() (model.SubscriptionPlan, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return activePlan(s.sub)
}

// Restore 读取持久化的订阅；不存在时为无订阅状态
func (s *EntitlementStore) Restore(ctx context.Context) error {
	// 读取期间持锁，避免旧值覆盖并发写入的新值
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.store.Get(ctx, s.key)
	if err != nil && !errors.Is(err, kv.ErrNotFound) {
		return fmt.Errorf("failed to load subscription record: %w", err)
	}

	sub, err := decodeSubscription(data)
	if err != nil {
		s.logger.Warn("discarding malformed subscription record", zap.String("key", s.key), zap.Error(err))
		sub = model.UserSubscription{}
	}
	s.sub = sub
	return nil
}

func (s *EntitlementStore) persist(ctx context.Context, sub model.UserSubscription) error {
	data, err := json.Marshal(sub)
	if err != nil {
		return err
	}
	if err := s.store.Set(ctx, s.key, data); err != nil {
		return fmt.Errorf("failed to save subscription record: %w", err)
	}
	return nil
}

func decodeSubscription(data []byte) (model.UserSubscription, error) {
	var sub model.UserSubscription
	if len(data) == 0 {
		return sub, nil
	}
	if err := json.Unmarshal(data, &sub); err != nil {
		return model.UserSubscription{}, fmt.Errorf("malformed subscription record: %w", err)
	}
	return sub, nil
}

// activePlan 未选择套餐或套餐 ID 已不在目录中时返回 false
func activePlan(sub model.UserSubscription) (model.SubscriptionPlan, bool) {
	if sub.PlanID == nil {
		return model.SubscriptionPlan{}, false
	}
	return model.FindPlan(*sub.PlanID)
}

func remaining(sub model.UserSubscription, dim model.Dimension) int {
	plan, ok := activePlan(sub)
	if !ok {
		return 0
	}
	left := plan.Features.Quota(dim) - sub.Used(dim)
	if left < 0 {
		return 0
	}
	return left
}
