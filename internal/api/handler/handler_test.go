package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/qs3c/needvox_server/config"
	"github.com/qs3c/needvox_server/internal/api/middleware"
	"github.com/qs3c/needvox_server/internal/model"
	"github.com/qs3c/needvox_server/internal/pkg/kv"
	"github.com/qs3c/needvox_server/internal/pkg/response"
	"github.com/qs3c/needvox_server/internal/repository"
	"github.com/qs3c/needvox_server/internal/service"
	"github.com/qs3c/needvox_server/internal/session"
	"github.com/qs3c/needvox_server/internal/testutil"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const testJWTSecret = "test-secret-key"

type testEnv struct {
	db       *gorm.DB
	cfg      *config.Config
	sessions *session.Manager

	stories       *service.StoryService
	collections   *service.CollectionService
	chats         *service.ChatService
	wallet        *service.WalletService
	subscriptions *service.SubscriptionService
}

func testConfig() *config.Config {
	return &config.Config{
		JWT: config.JWTConfig{
			Secret:      testJWTSecret,
			ExpireHours: 24,
		},
		Marketplace: config.MarketplaceConfig{
			MessagePrice:  1.5,
			StoryCriteria: 6,
		},
	}
}

// setupEnv 全部服务同步执行，无模拟延迟
func setupEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.CleanupTestDB(t, db) })
	rdb, _ := testutil.SetupTestRedis(t)

	cfg := testConfig()
	storyRepo := repository.NewStoryRepository(db)
	chats := service.NewChatService(repository.NewChatRepository(db), nil)

	return &testEnv{
		db:            db,
		cfg:           cfg,
		sessions:      session.NewManager(kv.NewRedisStore(rdb), session.Options{}),
		stories:       service.NewStoryService(storyRepo, repository.NewLikeRepository(db), chats, nil, cfg, nil),
		collections:   service.NewCollectionService(repository.NewCollectionRepository(db), storyRepo, nil, cfg, nil),
		chats:         chats,
		wallet:        service.NewWalletService(repository.NewPayoutRepository(db), cfg, nil),
		subscriptions: service.NewSubscriptionService(nil),
	}
}

func (e *testEnv) anonymous(t *testing.T) *session.Session {
	t.Helper()
	sess, err := e.sessions.Create(context.Background())
	require.NoError(t, err)
	return sess
}

func (e *testEnv) signedIn(t *testing.T, email string) *session.Session {
	t.Helper()
	sess := e.anonymous(t)
	_, err := sess.Authenticate(context.Background(), email, "")
	require.NoError(t, err)
	return sess
}

func (e *testEnv) subscribed(t *testing.T, email string, plan model.PlanID) *session.Session {
	t.Helper()
	sess := e.signedIn(t, email)
	_, err := sess.Entitlements().Subscribe(context.Background(), plan, false)
	require.NoError(t, err)
	return sess
}

// withSession 代替 Auth 中间件直接注入会话
func withSession(sess *session.Session) gin.HandlerFunc {
	return func(c *gin.Context) {
		if sess != nil {
			c.Set(middleware.SessionKey, sess)
		}
		c.Next()
	}
}

func performRequest(r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	if body != nil {
		jsonBytes, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(jsonBytes)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func parseResponse(t *testing.T, w *httptest.ResponseRecorder) response.Response {
	var resp response.Response
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	return resp
}

// decodeData 把响应中的 data 解到 out
func decodeData(t *testing.T, resp response.Response, out interface{}) {
	t.Helper()
	raw, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, out))
}
