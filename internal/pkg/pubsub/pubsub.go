package pubsub

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
)

const ChannelJobEvents = "needvox:job_events"

// 任务结果
const (
	StatusDone   = "done"
	StatusFailed = "failed"
)

// JobEvent 后台任务完成通知
type JobEvent struct {
	Type         string `json:"type"`
	UserID       string `json:"user_id"`
	Job          string `json:"job"`
	StoryID      int64  `json:"story_id,omitempty"`
	CollectionID string `json:"collection_id,omitempty"`
	Status       string `json:"status"`
	Error        string `json:"error,omitempty"`
}

// Publisher Redis 发布者
type Publisher struct {
	client *redis.Client
}

func NewPublisher(client *redis.Client) *Publisher {
	return &Publisher{client: client}
}

// PublishJobEvent 发布任务事件
func (p *Publisher) PublishJobEvent(ctx context.Context, event *JobEvent) error {
	event.Type = "job_event"

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal job event: %w", err)
	}
	return p.client.Publish(ctx, ChannelJobEvents, data).Err()
}

// Subscriber Redis 订阅者
type Subscriber struct {
	client *redis.Client
}

func NewSubscriber(client *redis.Client) *Subscriber {
	return &Subscriber{client: client}
}

// Subscribe 阻塞读取任务事件，直到 ctx 取消
func (s *Subscriber) Subscribe(ctx context.Context, handler func(*JobEvent)) error {
	sub := s.client.Subscribe(ctx, ChannelJobEvents)
	defer sub.Close()

	// 等待订阅生效，避免之前发布的消息丢失
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}

			var event JobEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				continue // 忽略解析错误
			}
			handler(&event)
		}
	}
}
