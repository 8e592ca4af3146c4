package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// 任务类型
const (
	JobModerateStory      = "moderate_story"
	JobGenerateCollection = "generate_collection"
)

type Queue struct {
	client    *redis.Client
	queueName string
}

type JobMessage struct {
	Type         string    `json:"type"`
	UserID       string    `json:"user_id"`
	StoryID      int64     `json:"story_id,omitempty"`
	CollectionID string    `json:"collection_id,omitempty"`
	Prompt       string    `json:"prompt,omitempty"`
	EnqueuedAt   time.Time `json:"enqueued_at"`
}

func NewQueue(client *redis.Client, queueName string) *Queue {
	return &Queue{
		client:    client,
		queueName: queueName,
	}
}

// Push 将任务加入队列
func (q *Queue) Push(ctx context.Context, msg *JobMessage) error {
	if msg.EnqueuedAt.IsZero() {
		msg.EnqueuedAt = time.Now()
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	return q.client.LPush(ctx, q.queueName, data).Err()
}

// Pop 从队列获取任务（阻塞），超时返回 nil, nil
func (q *Queue) Pop(ctx context.Context, timeout time.Duration) (*JobMessage, error) {
	result, err := q.client.BRPop(ctx, timeout, q.queueName).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to pop from queue: %w", err)
	}

	if len(result) < 2 {
		return nil, nil
	}

	var msg JobMessage
	if err := json.Unmarshal([]byte(result[1]), &msg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal message: %w", err)
	}

	return &msg, nil
}

// Length 获取队列长度
func (q *Queue) Length(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.queueName).Result()
}
