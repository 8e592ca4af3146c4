package service

import (
	"context"
	"errors"

	"github.com/qs3c/needvox_server/internal/model"
)

var (
	ErrUnauthenticated  = errors.New("请先登录")
	ErrFeatureNotInPlan = errors.New("当前套餐不包含该功能")
)

// Actor 发起操作的一方，通常是一个会话
type Actor interface {
	Identity() IdentityService
	Entitlements() EntitlementService
}

// RequireUser 未登录返回 ErrUnauthenticated
func RequireUser(a Actor) (*model.User, error) {
	if a == nil {
		return nil, ErrUnauthenticated
	}
	user := a.Identity().Current()
	if user == nil {
		return nil, ErrUnauthenticated
	}
	return user, nil
}

// RequirePlan 依次检查登录和有效订阅
func RequirePlan(a Actor) (*model.User, model.SubscriptionPlan, error) {
	user, err := RequireUser(a)
	if err != nil {
		return nil, model.SubscriptionPlan{}, err
	}
	plan, ok := a.Entitlements().ActivePlan()
	if !ok {
		return nil, model.SubscriptionPlan{}, ErrNoActivePlan
	}
	return user, plan, nil
}

// RequireFeature 检查登录、订阅和布尔权益
func RequireFeature(a Actor, feature model.Feature) (*model.User, error) {
	user, _, err := RequirePlan(a)
	if err != nil {
		return nil, err
	}
	if !a.Entitlements().HasCapability(feature) {
		return nil, ErrFeatureNotInPlan
	}
	return user, nil
}

// Consume 检查登录和订阅后原子地消耗配额
func Consume(ctx context.Context, a Actor, dim model.Dimension, amount int) (*model.User, error) {
	user, _, err := RequirePlan(a)
	if err != nil {
		return nil, err
	}
	if _, err := a.Entitlements().TryConsume(ctx, dim, amount); err != nil {
		return nil, err
	}
	return user, nil
}

// UnboundEntitlements 未登录时的订阅视图，所有权益均不可用
type UnboundEntitlements struct{}

func (UnboundEntitlements) Plans() []model.SubscriptionPlan { return model.Plans() }

func (UnboundEntitlements) Subscribe(context.Context, model.PlanID, bool) (model.UserSubscription, error) {
	return model.UserSubscription{}, ErrUnauthenticated
}

func (UnboundEntitlements) Cancel(context.Context) error { return ErrUnauthenticated }

func (UnboundEntitlements) RecordUsage(context.Context, model.UsageUpdate) error {
	return ErrUnauthenticated
}

func (UnboundEntitlements) TryConsume(context.Context, model.Dimension, int) (int, error) {
	return 0, ErrUnauthenticated
}

func (UnboundEntitlements) HasCapability(model.Feature) bool     { return false }
func (UnboundEntitlements) Remaining(model.Dimension) int        { return 0 }
func (UnboundEntitlements) Subscription() model.UserSubscription { return model.UserSubscription{} }
func (UnboundEntitlements) ActivePlan() (model.SubscriptionPlan, bool) {
	return model.SubscriptionPlan{}, false
}
func (UnboundEntitlements) Restore(context.Context) error { return nil }
