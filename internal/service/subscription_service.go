package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/qs3c/needvox_server/internal/model"
	"github.com/qs3c/needvox_server/internal/model/dto"
)

type SubscriptionService struct {
	logger *zap.Logger
}

func NewSubscriptionService(logger *zap.Logger) *SubscriptionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubscriptionService{logger: logger.Named("subscription")}
}

// Plans 价格页，price 按所选计费周期给出
func (s *SubscriptionService) Plans(yearly bool) []*dto.PlanInfo {
	plans := model.Plans()
	items := make([]*dto.PlanInfo, len(plans))
	for i, p := range plans {
		items[i] = toPlanInfo(p, yearly)
	}
	return items
}

// Current 当前订阅和各维度剩余量
func (s *SubscriptionService) Current(ctx context.Context, a Actor) (*dto.SubscriptionInfo, error) {
	if _, err := RequireUser(a); err != nil {
		return nil, err
	}
	return toSubscriptionInfo(a.Entitlements()), nil
}

// Subscribe 订阅或切换套餐，本周期用量清零
func (s *SubscriptionService) Subscribe(ctx context.Context, a Actor, req *dto.SubscribeRequest) (*dto.SubscriptionInfo, error) {
	user, err := RequireUser(a)
	if err != nil {
		return nil, err
	}

	ent := a.Entitlements()
	if _, err := ent.Subscribe(ctx, model.PlanID(req.PlanID), req.IsYearly); err != nil {
		return nil, err
	}
	s.logger.Info("subscribed",
		zap.String("user_id", user.ID),
		zap.String("plan_id", req.PlanID),
		zap.Bool("yearly", req.IsYearly))

	return toSubscriptionInfo(ent), nil
}

// Cancel 取消订阅
func (s *SubscriptionService) Cancel(ctx context.Context, a Actor) (*dto.SubscriptionInfo, error) {
	user, err := RequireUser(a)
	if err != nil {
		return nil, err
	}

	ent := a.Entitlements()
	if err := ent.Cancel(ctx); err != nil {
		return nil, err
	}
	s.logger.Info("subscription cancelled", zap.String("user_id", user.ID))

	return toSubscriptionInfo(ent), nil
}
