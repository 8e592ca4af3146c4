package handler

import (
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs3c/needvox_server/internal/model"
	"github.com/qs3c/needvox_server/internal/model/dto"
	"github.com/qs3c/needvox_server/internal/pkg/response"
	"github.com/qs3c/needvox_server/internal/session"
)

func subscriptionRouter(env *testEnv, sess *session.Session) *gin.Engine {
	h := NewSubscriptionHandler(env.subscriptions)
	router := gin.New()
	router.Use(withSession(sess))
	router.GET("/subscription/plans", h.Plans)
	router.GET("/subscription", h.Current)
	router.POST("/subscription", h.Subscribe)
	router.DELETE("/subscription", h.Cancel)
	return router
}

func TestSubscriptionHandler_Plans(t *testing.T) {
	env := setupEnv(t)
	router := subscriptionRouter(env, nil)

	var plans []*dto.PlanInfo
	decodeData(t, parseResponse(t, performRequest(router, "GET", "/subscription/plans", nil)), &plans)
	require.Len(t, plans, 2)
	assert.Equal(t, string(model.PlanBasic), plans[0].ID)
	assert.Equal(t, 30.0, plans[0].Price)

	decodeData(t, parseResponse(t, performRequest(router, "GET", "/subscription/plans?yearly=true", nil)), &plans)
	assert.Equal(t, 240.0, plans[0].Price)
	assert.Equal(t, 120.0, plans[0].YearlySavings)
	assert.Equal(t, 1200.0, plans[1].YearlySavings)
}

func TestSubscriptionHandler_SubscribeAndCancel(t *testing.T) {
	env := setupEnv(t)
	sess := env.signedIn(t, "anna@example.com")
	router := subscriptionRouter(env, sess)

	var info dto.SubscriptionInfo
	decodeData(t, parseResponse(t, performRequest(router, "GET", "/subscription", nil)), &info)
	assert.Empty(t, info.PlanID)

	resp := parseResponse(t, performRequest(router, "POST", "/subscription", dto.SubscribeRequest{PlanID: "premium", IsYearly: true}))
	require.Equal(t, response.CodeSuccess, resp.Code)
	decodeData(t, resp, &info)
	assert.Equal(t, "premium", info.PlanID)
	assert.True(t, info.IsYearly)
	assert.True(t, info.DownloadCollections)

	resp = parseResponse(t, performRequest(router, "POST", "/subscription", dto.SubscribeRequest{PlanID: "gold"}))
	assert.Equal(t, response.CodeParamError, resp.Code)

	resp = parseResponse(t, performRequest(router, "DELETE", "/subscription", nil))
	require.Equal(t, response.CodeSuccess, resp.Code)
	_, ok := sess.Entitlements().ActivePlan()
	assert.False(t, ok)
}

func TestSubscriptionHandler_RequiresLogin(t *testing.T) {
	env := setupEnv(t)
	router := subscriptionRouter(env, env.anonymous(t))

	resp := parseResponse(t, performRequest(router, "POST", "/subscription", dto.SubscribeRequest{PlanID: "basic"}))
	assert.Equal(t, response.CodeAuthFailed, resp.Code)
}
