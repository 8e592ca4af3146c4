package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/qs3c/needvox_server/internal/pkg/queue"
	"github.com/qs3c/needvox_server/internal/repository"
)

const (
	requeueInterval = 5 * time.Minute
	requeueStaleAge = 10 * time.Minute
	requeueBatch    = 100
)

// JobSink 任务去向
type JobSink interface {
	Push(ctx context.Context, msg *queue.JobMessage) error
}

// Requeuer 把长时间停留在待审核的故事和生成中的合集重新放回队列
type Requeuer struct {
	storyRepo      *repository.StoryRepository
	collectionRepo *repository.CollectionRepository
	sink           JobSink
	staleAge       time.Duration
	logger         *zap.Logger
	now            func() time.Time
}

// NewRequeuer 创建重新入队器
func NewRequeuer(
	storyRepo *repository.StoryRepository,
	collectionRepo *repository.CollectionRepository,
	sink JobSink,
	logger *zap.Logger,
) *Requeuer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Requeuer{
		storyRepo:      storyRepo,
		collectionRepo: collectionRepo,
		sink:           sink,
		staleAge:       requeueStaleAge,
		logger:         logger.Named("requeuer"),
		now:            time.Now,
	}
}

// Start 启动后台循环，ctx 取消时返回
func (r *Requeuer) Start(ctx context.Context) {
	// 启动后先执行一次
	r.RunOnce(ctx)

	ticker := time.NewTicker(requeueInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("requeuer stopped")
			return
		case <-ticker.C:
			r.RunOnce(ctx)
		}
	}
}

// RunOnce 执行一轮，返回重新入队的任务数
func (r *Requeuer) RunOnce(ctx context.Context) int {
	before := r.now().Add(-r.staleAge)
	pushed := 0

	stories, err := r.storyRepo.ListPendingBefore(before, requeueBatch)
	if err != nil {
		r.logger.Error("failed to query pending stories", zap.Error(err))
	}
	for _, s := range stories {
		err := r.sink.Push(ctx, &queue.JobMessage{
			Type:    queue.JobModerateStory,
			UserID:  s.AuthorID,
			StoryID: s.ID,
		})
		if err != nil {
			r.logger.Error("failed to requeue story", zap.Int64("story_id", s.ID), zap.Error(err))
			continue
		}
		pushed++
	}

	collections, err := r.collectionRepo.ListGeneratingBefore(before, requeueBatch)
	if err != nil {
		r.logger.Error("failed to query generating collections", zap.Error(err))
	}
	for _, c := range collections {
		err := r.sink.Push(ctx, &queue.JobMessage{
			Type:         queue.JobGenerateCollection,
			UserID:       c.OwnerID,
			CollectionID: c.ID,
			Prompt:       c.Prompt,
		})
		if err != nil {
			r.logger.Error("failed to requeue collection", zap.String("collection_id", c.ID), zap.Error(err))
			continue
		}
		pushed++
	}

	if pushed > 0 {
		r.logger.Info("requeued stale jobs", zap.Int("count", pushed))
	}
	return pushed
}
