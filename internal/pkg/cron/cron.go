package cron

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Sweeper 可被定期清理的对象
type Sweeper interface {
	Sweep(idle time.Duration) int
}

type Service struct {
	sweeper  Sweeper
	interval time.Duration
	idle     time.Duration
	logger   *zap.Logger
	stopChan chan struct{}
	stopOnce sync.Once
}

// NewService 每隔 interval 清理一次空闲超过 idle 的会话
func NewService(sweeper Sweeper, interval, idle time.Duration, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		sweeper:  sweeper,
		interval: interval,
		idle:     idle,
		logger:   logger.Named("cron"),
		stopChan: make(chan struct{}),
	}
}

// Start 启动定时任务
func (s *Service) Start() {
	if s.interval <= 0 {
		s.logger.Warn("session sweep disabled", zap.Duration("interval", s.interval))
		return
	}
	go s.runSweep()
	s.logger.Info("cron service started",
		zap.Duration("interval", s.interval),
		zap.Duration("idle", s.idle),
	)
}

// Stop 停止定时任务，可重复调用
func (s *Service) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
		s.logger.Info("cron service stopped")
	})
}

func (s *Service) runSweep() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.RunNow()
		}
	}
}

// RunNow 立即执行一次清理
func (s *Service) RunNow() int {
	if s.sweeper == nil {
		return 0
	}
	return s.sweeper.Sweep(s.idle)
}
