package service

import (
	"context"
	"time"
)

// 持久化记录的键名
const (
	UserRecordName         = "needvox-user"
	SubscriptionRecordName = "needvox-subscription"
)

// RecordKey 拼出 <prefix><name>[:<scope>]
func RecordKey(prefix, name, scope string) string {
	key := prefix + name
	if scope != "" {
		key += ":" + scope
	}
	return key
}

// simulateLatency 模拟远端调用耗时，ctx 取消时提前返回
func simulateLatency(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
