package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/qs3c/needvox_server/config"
	"github.com/qs3c/needvox_server/internal/model"
	"github.com/qs3c/needvox_server/internal/pkg/kv"
	"github.com/qs3c/needvox_server/internal/pkg/queue"
)

// testActor 最小的会话实现：一个身份存储加上按用户绑定的订阅存储
type testActor struct {
	store    kv.Store
	identity *IdentityStore
	ent      EntitlementService
}

func newTestActor(store kv.Store, sessionID string) *testActor {
	return &testActor{
		store:    store,
		identity: NewIdentityStore(store, RecordKey("", UserRecordName, sessionID), 0, nil),
		ent:      UnboundEntitlements{},
	}
}

func (a *testActor) Identity() IdentityService        { return a.identity }
func (a *testActor) Entitlements() EntitlementService { return a.ent }

func (a *testActor) Authenticate(ctx context.Context, email, password string) (*model.User, error) {
	user, err := a.identity.Authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return user, a.bind(ctx, user.ID)
}

func (a *testActor) Register(ctx context.Context, email, password, name string) (*model.User, error) {
	user, err := a.identity.Register(ctx, email, password, name)
	if err != nil {
		return nil, err
	}
	return user, a.bind(ctx, user.ID)
}

func (a *testActor) SignOut(ctx context.Context) error {
	if err := a.identity.SignOut(ctx); err != nil {
		return err
	}
	a.ent = UnboundEntitlements{}
	return nil
}

func (a *testActor) bind(ctx context.Context, userID string) error {
	ent := NewEntitlementStore(a.store, RecordKey("", SubscriptionRecordName, userID), EntitlementOptions{})
	if err := ent.Restore(ctx); err != nil {
		return err
	}
	a.ent = ent
	return nil
}

// signedInActor 已登录但没有订阅
func signedInActor(t *testing.T, store kv.Store, email string) *testActor {
	t.Helper()
	a := newTestActor(store, "sess-"+email)
	_, err := a.Authenticate(context.Background(), email, "secret")
	require.NoError(t, err)
	return a
}

// subscribedActor 已登录并订阅了 plan
func subscribedActor(t *testing.T, store kv.Store, email string, plan model.PlanID) *testActor {
	t.Helper()
	a := signedInActor(t, store, email)
	_, err := a.Entitlements().Subscribe(context.Background(), plan, false)
	require.NoError(t, err)
	return a
}

func testMarketConfig() *config.Config {
	return &config.Config{
		JWT: config.JWTConfig{Secret: "test-secret", ExpireHours: 24},
		Marketplace: config.MarketplaceConfig{
			MessagePrice:  1.5,
			StoryCriteria: len(model.StoryCriteria),
		},
	}
}

// fakeQueue 记录入队的任务
type fakeQueue struct {
	mu   sync.Mutex
	jobs []*queue.JobMessage
	err  error
}

func (q *fakeQueue) Push(ctx context.Context, msg *queue.JobMessage) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, msg)
	return nil
}

func (q *fakeQueue) Jobs() []*queue.JobMessage {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]*queue.JobMessage(nil), q.jobs...)
}

func acceptAll() []bool {
	accepted := make([]bool, len(model.StoryCriteria))
	for i := range accepted {
		accepted[i] = true
	}
	return accepted
}
