package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs3c/needvox_server/internal/model"
	"github.com/qs3c/needvox_server/internal/pkg/kv"
	"github.com/qs3c/needvox_server/internal/repository"
	"github.com/qs3c/needvox_server/internal/testutil"
)

const testSubscriptionKey = "needvox-subscription:u1"

func setupRedisKV(t *testing.T) kv.Store {
	t.Helper()
	rdb, _ := testutil.SetupTestRedis(t)
	return kv.NewRedisStore(rdb)
}

func setupEntitlementStore(t *testing.T) (*EntitlementStore, kv.Store) {
	t.Helper()
	store := setupRedisKV(t)
	return NewEntitlementStore(store, testSubscriptionKey, EntitlementOptions{}), store
}

func TestEntitlementStore_Plans(t *testing.T) {
	s, _ := setupEntitlementStore(t)

	plans := s.Plans()
	require.Len(t, plans, 2)
	assert.Equal(t, model.PlanBasic, plans[0].ID)
	assert.Equal(t, model.PlanPremium, plans[1].ID)

	// 修改返回值不影响目录
	plans[0].Features.Likes = 999
	assert.Equal(t, 10, s.Plans()[0].Features.Likes)
}

func TestEntitlementStore_NoPlan(t *testing.T) {
	s, _ := setupEntitlementStore(t)

	for _, d := range model.Dimensions {
		assert.Equal(t, 0, s.Remaining(d))
	}
	assert.False(t, s.HasCapability(model.FeatureDownloadCollections))
	assert.False(t, s.HasCapability(model.FeatureViewUserProfiles))

	_, ok := s.ActivePlan()
	assert.False(t, ok)
}

func TestEntitlementStore_SubscribeResetsUsage(t *testing.T) {
	ctx := context.Background()

	for _, plan := range model.Plans() {
		for _, yearly := range []bool{false, true} {
			s, _ := setupEntitlementStore(t)

			_, err := s.Subscribe(ctx, model.PlanBasic, false)
			require.NoError(t, err)
			require.NoError(t, s.RecordUsage(ctx, model.UsageUpdate{
				CollectionsUsed:   intPtr(7),
				AICollectionsUsed: intPtr(1),
				LikesUsed:         intPtr(4),
				ViewsUsed:         intPtr(300),
			}))

			_, err = s.Subscribe(ctx, plan.ID, yearly)
			require.NoError(t, err)

			for _, d := range model.Dimensions {
				assert.Equal(t, plan.Features.Quota(d), s.Remaining(d), "plan=%s dim=%s", plan.ID, d)
			}
			assert.Equal(t, yearly, s.Subscription().IsYearly)
		}
	}
}

func TestEntitlementStore_Subscribe_UnknownPlan(t *testing.T) {
	s, _ := setupEntitlementStore(t)

	_, err := s.Subscribe(context.Background(), model.PlanID("gold"), false)
	assert.ErrorIs(t, err, ErrPlanNotFound)
	assert.Nil(t, s.Subscription().PlanID)
}

func TestEntitlementStore_RemainingClamped(t *testing.T) {
	ctx := context.Background()
	s, _ := setupEntitlementStore(t)

	_, err := s.Subscribe(ctx, model.PlanBasic, false)
	require.NoError(t, err)

	for _, used := range []int{0, 1, 9, 10, 11, 500} {
		require.NoError(t, s.RecordUsage(ctx, model.UsageUpdate{LikesUsed: intPtr(used)}))

		want := 10 - used
		if want < 0 {
			want = 0
		}
		assert.Equal(t, want, s.Remaining(model.DimensionLikes), "used=%d", used)
	}
}

func TestEntitlementStore_CancelDeniesCapabilities(t *testing.T) {
	ctx := context.Background()
	s, _ := setupEntitlementStore(t)

	_, err := s.Subscribe(ctx, model.PlanPremium, true)
	require.NoError(t, err)
	require.True(t, s.HasCapability(model.FeatureViewUserProfiles))

	require.NoError(t, s.Cancel(ctx))

	assert.False(t, s.HasCapability(model.FeatureDownloadCollections))
	assert.False(t, s.HasCapability(model.FeatureViewUserProfiles))

	sub := s.Subscription()
	assert.Nil(t, sub.PlanID)
	assert.Nil(t, sub.ExpiresAt)
	assert.False(t, sub.IsYearly)
	for _, d := range model.Dimensions {
		assert.Equal(t, 0, sub.Used(d))
		assert.Equal(t, 0, s.Remaining(d))
	}
}

func TestEntitlementStore_HasCapability(t *testing.T) {
	ctx := context.Background()
	s, _ := setupEntitlementStore(t)

	_, err := s.Subscribe(ctx, model.PlanBasic, false)
	require.NoError(t, err)
	assert.False(t, s.HasCapability(model.FeatureDownloadCollections))
	assert.False(t, s.HasCapability(model.FeatureViewUserProfiles))

	_, err = s.Subscribe(ctx, model.PlanPremium, false)
	require.NoError(t, err)
	assert.True(t, s.HasCapability(model.FeatureDownloadCollections))
	assert.True(t, s.HasCapability(model.FeatureViewUserProfiles))

	// 数值配额不是布尔权益
	assert.False(t, s.HasCapability(model.Feature("likes")))
	assert.False(t, s.HasCapability(model.Feature("unknown")))
}

func TestEntitlementStore_Expiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, time.March, 15, 10, 30, 0, 0, time.UTC)
	store := setupRedisKV(t)
	s := NewEntitlementStore(store, testSubscriptionKey, EntitlementOptions{
		Now: func() time.Time { return now },
	})

	sub, err := s.Subscribe(ctx, model.PlanBasic, false)
	require.NoError(t, err)
	require.NotNil(t, sub.ExpiresAt)
	assert.True(t, sub.ExpiresAt.Equal(time.Date(2024, time.April, 15, 10, 30, 0, 0, time.UTC)))

	sub, err = s.Subscribe(ctx, model.PlanPremium, true)
	require.NoError(t, err)
	require.NotNil(t, sub.ExpiresAt)
	assert.True(t, sub.ExpiresAt.Equal(time.Date(2025, time.March, 15, 10, 30, 0, 0, time.UTC)))
}

func TestEntitlementStore_ExpiryNotEnforced(t *testing.T) {
	ctx := context.Background()
	past := time.Now().AddDate(-2, 0, 0)
	store := setupRedisKV(t)
	s := NewEntitlementStore(store, testSubscriptionKey, EntitlementOptions{
		Now: func() time.Time { return past },
	})

	_, err := s.Subscribe(ctx, model.PlanPremium, false)
	require.NoError(t, err)

	assert.True(t, s.HasCapability(model.FeatureDownloadCollections))
	assert.Equal(t, 100, s.Remaining(model.DimensionLikes))
}

func TestEntitlementStore_TenLikesOnBasic(t *testing.T) {
	ctx := context.Background()
	s, _ := setupEntitlementStore(t)

	_, err := s.Subscribe(ctx, model.PlanBasic, false)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		require.Greater(t, s.Remaining(model.DimensionLikes), 0)
		used := s.Subscription().LikesUsed + 1
		require.NoError(t, s.RecordUsage(ctx, model.UsageUpdate{LikesUsed: &used}))
	}

	assert.Equal(t, 0, s.Remaining(model.DimensionLikes))

	_, err = s.TryConsume(ctx, model.DimensionLikes, 1)
	assert.ErrorIs(t, err, ErrQuotaExceeded)
	assert.Equal(t, 10, s.Subscription().LikesUsed)
}

func TestEntitlementStore_TryConsume(t *testing.T) {
	ctx := context.Background()

	t.Run("no plan", func(t *testing.T) {
		s, _ := setupEntitlementStore(t)
		_, err := s.TryConsume(ctx, model.DimensionViews, 1)
		assert.ErrorIs(t, err, ErrNoActivePlan)
	})

	t.Run("invalid input", func(t *testing.T) {
		s, _ := setupEntitlementStore(t)
		_, err := s.Subscribe(ctx, model.PlanBasic, false)
		require.NoError(t, err)

		_, err = s.TryConsume(ctx, model.DimensionViews, 0)
		assert.ErrorIs(t, err, ErrInvalidAmount)
		_, err = s.TryConsume(ctx, model.DimensionViews, -3)
		assert.ErrorIs(t, err, ErrInvalidAmount)
		_, err = s.TryConsume(ctx, model.Dimension("downloads"), 1)
		assert.ErrorIs(t, err, ErrUnknownDimension)
	})

	t.Run("consume up to quota", func(t *testing.T) {
		s, _ := setupEntitlementStore(t)
		_, err := s.Subscribe(ctx, model.PlanBasic, false)
		require.NoError(t, err)

		left, err := s.TryConsume(ctx, model.DimensionAICollections, 1)
		require.NoError(t, err)
		assert.Equal(t, 0, left)

		left, err = s.TryConsume(ctx, model.DimensionAICollections, 1)
		assert.ErrorIs(t, err, ErrQuotaExceeded)
		assert.Equal(t, 0, left)

		left, err = s.TryConsume(ctx, model.DimensionCollections, 40)
		require.NoError(t, err)
		assert.Equal(t, 60, left)

		// 超过剩余额度的一次性消耗整体拒绝
		_, err = s.TryConsume(ctx, model.DimensionCollections, 61)
		assert.ErrorIs(t, err, ErrQuotaExceeded)
		assert.Equal(t, 60, s.Remaining(model.DimensionCollections))
	})

	t.Run("sees usage recorded by another instance", func(t *testing.T) {
		store := setupRedisKV(t)
		a := NewEntitlementStore(store, testSubscriptionKey, EntitlementOptions{})
		b := NewEntitlementStore(store, testSubscriptionKey, EntitlementOptions{})

		_, err := a.Subscribe(ctx, model.PlanBasic, false)
		require.NoError(t, err)
		require.NoError(t, b.Restore(ctx))

		for i := 0; i < 10; i++ {
			_, err := a.TryConsume(ctx, model.DimensionLikes, 1)
			require.NoError(t, err)
		}

		// b 的内存状态已过期，但检查以存储为准
		assert.Equal(t, 10, b.Remaining(model.DimensionLikes))
		_, err = b.TryConsume(ctx, model.DimensionLikes, 1)
		assert.ErrorIs(t, err, ErrQuotaExceeded)
		assert.Equal(t, 0, b.Remaining(model.DimensionLikes))
	})
}

func TestEntitlementStore_TryConsumeConcurrent(t *testing.T) {
	ctx := context.Background()

	backends := map[string]func(t *testing.T) kv.Store{
		"redis": setupRedisKV,
		"database": func(t *testing.T) kv.Store {
			db := testutil.SetupTestDB(t)
			t.Cleanup(func() { testutil.CleanupTestDB(t, db) })
			return repository.NewRecordRepository(db)
		},
	}

	for name, newStore := range backends {
		t.Run(name, func(t *testing.T) {
			store := newStore(t)
			first := NewEntitlementStore(store, testSubscriptionKey, EntitlementOptions{})
			_, err := first.Subscribe(ctx, model.PlanBasic, false)
			require.NoError(t, err)

			instances := []*EntitlementStore{first}
			for i := 0; i < 3; i++ {
				s := NewEntitlementStore(store, testSubscriptionKey, EntitlementOptions{})
				require.NoError(t, s.Restore(ctx))
				instances = append(instances, s)
			}

			var mu sync.Mutex
			granted := 0
			var wg sync.WaitGroup
			for i := 0; i < 40; i++ {
				wg.Add(1)
				go func(s *EntitlementStore) {
					defer wg.Done()
					for {
						_, err := s.TryConsume(ctx, model.DimensionLikes, 1)
						if errors.Is(err, kv.ErrConflict) {
							continue
						}
						if err == nil {
							mu.Lock()
							granted++
							mu.Unlock()
						}
						return
					}
				}(instances[i%len(instances)])
			}
			wg.Wait()

			assert.Equal(t, 10, granted)

			check := NewEntitlementStore(store, testSubscriptionKey, EntitlementOptions{})
			require.NoError(t, check.Restore(ctx))
			assert.Equal(t, 10, check.Subscription().LikesUsed)
			assert.Equal(t, 0, check.Remaining(model.DimensionLikes))
		})
	}
}

func TestEntitlementStore_PersistRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, store := setupEntitlementStore(t)

	_, err := s.Subscribe(ctx, model.PlanPremium, true)
	require.NoError(t, err)
	require.NoError(t, s.RecordUsage(ctx, model.UsageUpdate{
		CollectionsUsed:   intPtr(12),
		AICollectionsUsed: intPtr(3),
		LikesUsed:         intPtr(99),
		ViewsUsed:         intPtr(10001),
	}))

	before := make(map[model.Dimension]int)
	for _, d := range model.Dimensions {
		before[d] = s.Remaining(d)
	}

	reloaded := NewEntitlementStore(store, testSubscriptionKey, EntitlementOptions{})
	require.NoError(t, reloaded.Restore(ctx))

	for _, d := range model.Dimensions {
		assert.Equal(t, before[d], reloaded.Remaining(d), "dim=%s", d)
	}
	assert.True(t, s.Subscription().ExpiresAt.Equal(*reloaded.Subscription().ExpiresAt))
}

func TestEntitlementStore_RecordFormat(t *testing.T) {
	ctx := context.Background()
	s, store := setupEntitlementStore(t)

	_, err := s.Subscribe(ctx, model.PlanBasic, false)
	require.NoError(t, err)

	raw, err := store.Get(ctx, testSubscriptionKey)
	require.NoError(t, err)

	var fields map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &fields))
	assert.Equal(t, "basic", fields["planId"])
	assert.Equal(t, false, fields["isYearly"])
	assert.IsType(t, "", fields["expiresAt"])
	for _, key := range []string{"collectionsUsed", "aiCollectionsUsed", "likesUsed", "viewsUsed"} {
		assert.Equal(t, float64(0), fields[key], key)
	}

	require.NoError(t, s.Cancel(ctx))
	raw, err = store.Get(ctx, testSubscriptionKey)
	require.NoError(t, err)
	assert.JSONEq(t, `{"planId":null,"isYearly":false,"expiresAt":null,"collectionsUsed":0,"aiCollectionsUsed":0,"likesUsed":0,"viewsUsed":0}`, string(raw))
}

func TestEntitlementStore_Restore(t *testing.T) {
	ctx := context.Background()

	t.Run("missing record", func(t *testing.T) {
		s, _ := setupEntitlementStore(t)
		require.NoError(t, s.Restore(ctx))
		assert.Nil(t, s.Subscription().PlanID)
	})

	t.Run("millisecond timestamp", func(t *testing.T) {
		s, store := setupEntitlementStore(t)
		require.NoError(t, store.Set(ctx, testSubscriptionKey, []byte(
			`{"planId":"premium","isYearly":true,"expiresAt":"2025-06-01T12:00:00.000Z","collectionsUsed":1,"aiCollectionsUsed":0,"likesUsed":5,"viewsUsed":0}`)))

		require.NoError(t, s.Restore(ctx))
		sub := s.Subscription()
		require.NotNil(t, sub.ExpiresAt)
		assert.True(t, sub.ExpiresAt.Equal(time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)))
		assert.Equal(t, 95, s.Remaining(model.DimensionLikes))
		assert.Equal(t, 999, s.Remaining(model.DimensionCollections))
	})

	t.Run("unknown plan id", func(t *testing.T) {
		s, store := setupEntitlementStore(t)
		require.NoError(t, store.Set(ctx, testSubscriptionKey, []byte(`{"planId":"gold","likesUsed":1}`)))

		require.NoError(t, s.Restore(ctx))
		assert.False(t, s.HasCapability(model.FeatureDownloadCollections))
		assert.Equal(t, 0, s.Remaining(model.DimensionLikes))
	})

	t.Run("malformed record", func(t *testing.T) {
		s, store := setupEntitlementStore(t)
		require.NoError(t, store.Set(ctx, testSubscriptionKey, []byte(`{not json`)))

		require.NoError(t, s.Restore(ctx))
		assert.Nil(t, s.Subscription().PlanID)
	})
}

func TestEntitlementStore_SubscribeCancelledContext(t *testing.T) {
	store := setupRedisKV(t)
	s := NewEntitlementStore(store, testSubscriptionKey, EntitlementOptions{SubscribeDelay: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Subscribe(ctx, model.PlanBasic, false)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, s.Subscription().PlanID)
}

func intPtr(n int) *int {
	return &n
}

func TestEntitlementStore_RecordUsageKeepsConcurrentCancel(t *testing.T) {
	ctx := context.Background()
	a, store := setupEntitlementStore(t)

	_, err := a.Subscribe(ctx, model.PlanPremium, false)
	require.NoError(t, err)

	// b 读到的是取消之前的记录
	b := NewEntitlementStore(store, testSubscriptionKey, EntitlementOptions{})
	require.NoError(t, b.Restore(ctx))
	require.NoError(t, a.Cancel(ctx))

	require.NoError(t, b.RecordUsage(ctx, model.UsageUpdate{LikesUsed: intPtr(5)}))
	_, ok := b.ActivePlan()
	assert.False(t, ok)

	reloaded := NewEntitlementStore(store, testSubscriptionKey, EntitlementOptions{})
	require.NoError(t, reloaded.Restore(ctx))
	_, ok = reloaded.ActivePlan()
	assert.False(t, ok)
	assert.Equal(t, 5, reloaded.Subscription().LikesUsed)
}
