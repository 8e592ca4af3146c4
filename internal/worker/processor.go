package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/qs3c/needvox_server/internal/pkg/pubsub"
	"github.com/qs3c/needvox_server/internal/pkg/queue"
)

var ErrUnknownJob = errors.New("unknown job type")

const popTimeout = 5 * time.Second

// StoryModerator 审核故事
type StoryModerator interface {
	Moderate(ctx context.Context, id int64) error
}

// CollectionGenerator 生成 AI 合集
type CollectionGenerator interface {
	Generate(ctx context.Context, id string) error
}

// JobSource 任务来源
type JobSource interface {
	Pop(ctx context.Context, timeout time.Duration) (*queue.JobMessage, error)
}

// Notifier 发布任务完成事件
type Notifier interface {
	PublishJobEvent(ctx context.Context, event *pubsub.JobEvent) error
}

// Processor 任务处理器
type Processor struct {
	stories     StoryModerator
	collections CollectionGenerator
	notifier    Notifier
	logger      *zap.Logger
}

// NewProcessor 创建任务处理器，notifier 可以为 nil
func NewProcessor(stories StoryModerator, collections CollectionGenerator, notifier Notifier, logger *zap.Logger) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{
		stories:     stories,
		collections: collections,
		notifier:    notifier,
		logger:      logger.Named("processor"),
	}
}

// Process 按任务类型分发
func (p *Processor) Process(ctx context.Context, msg *queue.JobMessage) error {
	start := time.Now()

	var err error
	switch msg.Type {
	case queue.JobModerateStory:
		err = p.stories.Moderate(ctx, msg.StoryID)
	case queue.JobGenerateCollection:
		err = p.collections.Generate(ctx, msg.CollectionID)
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownJob, msg.Type)
	}

	fields := []zap.Field{
		zap.String("type", msg.Type),
		zap.String("user_id", msg.UserID),
		zap.Duration("elapsed", time.Since(start)),
		zap.Duration("queued", start.Sub(msg.EnqueuedAt)),
	}
	if err != nil {
		p.logger.Error("job failed", append(fields, zap.Error(err))...)
	} else {
		p.logger.Info("job done", fields...)
	}
	p.notify(ctx, msg, err)
	return err
}

func (p *Processor) notify(ctx context.Context, msg *queue.JobMessage, jobErr error) {
	if p.notifier == nil || errors.Is(jobErr, ErrUnknownJob) {
		return
	}

	event := &pubsub.JobEvent{
		UserID:       msg.UserID,
		Job:          msg.Type,
		StoryID:      msg.StoryID,
		CollectionID: msg.CollectionID,
		Status:       pubsub.StatusDone,
	}
	if jobErr != nil {
		event.Status = pubsub.StatusFailed
		event.Error = jobErr.Error()
	}
	if err := p.notifier.PublishJobEvent(ctx, event); err != nil {
		p.logger.Warn("failed to publish job event", zap.String("type", msg.Type), zap.Error(err))
	}
}

// Run 启动 workers 个协程消费队列，ctx 取消后等待全部退出
func (p *Processor) Run(ctx context.Context, source JobSource, workers int) {
	if workers < 1 {
		workers = 1
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			p.loop(ctx, source, workerID)
		}(i)
	}
	wg.Wait()
}

func (p *Processor) loop(ctx context.Context, source JobSource, workerID int) {
	log := p.logger.With(zap.Int("worker", workerID))
	for {
		select {
		case <-ctx.Done():
			log.Info("worker shutting down")
			return
		default:
		}

		msg, err := source.Pop(ctx, popTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Error("failed to pop job", zap.Error(err))
			continue
		}
		if msg == nil {
			continue // 超时，继续等待
		}

		// 失败已记录日志，任务不重新入队
		_ = p.Process(ctx, msg)
	}
}
