package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/qs3c/needvox_server/config"
	"github.com/qs3c/needvox_server/internal/model"
	"github.com/qs3c/needvox_server/internal/model/dto"
	"github.com/qs3c/needvox_server/internal/repository"
)

type WalletService struct {
	payoutRepo *repository.PayoutRepository
	cfg        *config.Config
	logger     *zap.Logger
	now        func() time.Time
}

func NewWalletService(payoutRepo *repository.PayoutRepository, cfg *config.Config, logger *zap.Logger) *WalletService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WalletService{
		payoutRepo: payoutRepo,
		cfg:        cfg,
		logger:     logger.Named("wallet"),
		now:        time.Now,
	}
}

// Summary 钱包余额、累计收入和已绑定的收款方式
func (s *WalletService) Summary(ctx context.Context, a Actor) (*dto.WalletSummary, error) {
	user, err := RequireUser(a)
	if err != nil {
		return nil, err
	}

	methods, err := s.payoutRepo.ListByUser(user.ID)
	if err != nil {
		return nil, err
	}

	summary := &dto.WalletSummary{
		Balance:       user.WalletBalance,
		TotalEarnings: user.TotalEarnings,
		Methods:       make([]*dto.PayoutMethodInfo, len(methods)),
		Available:     append([]string(nil), model.PayoutMethods...),
	}
	for i, m := range methods {
		summary.Methods[i] = &dto.PayoutMethodInfo{
			Method:      m.Method,
			ConnectedAt: formatTime(m.ConnectedAt),
		}
	}
	return summary, nil
}

// Connect 绑定收款方式，重复绑定同一方式不报错
func (s *WalletService) Connect(ctx context.Context, a Actor, method string) (*dto.WalletSummary, error) {
	user, err := RequireUser(a)
	if err != nil {
		return nil, err
	}

	method = strings.ToLower(strings.TrimSpace(method))
	if !model.ValidPayoutMethod(method) {
		return nil, invalidInput("不支持的收款方式: " + method)
	}

	if err := simulateLatency(ctx, config.Delay(s.cfg.Simulation.WalletDelayMs)); err != nil {
		return nil, err
	}

	err = s.payoutRepo.Connect(&model.PayoutMethod{
		UserID:      user.ID,
		Method:      method,
		ConnectedAt: s.now(),
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("payout method connected", zap.String("user_id", user.ID), zap.String("method", method))

	return s.Summary(ctx, a)
}
