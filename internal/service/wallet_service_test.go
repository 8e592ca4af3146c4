package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs3c/needvox_server/internal/model"
	"github.com/qs3c/needvox_server/internal/repository"
	"github.com/qs3c/needvox_server/internal/testutil"
)

func TestWalletService(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)
	store := setupRedisKV(t)
	ctx := context.Background()

	svc := NewWalletService(repository.NewPayoutRepository(db), testMarketConfig(), nil)
	user := signedInActor(t, store, "user@example.com")

	_, err := svc.Summary(ctx, nil)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	summary, err := svc.Summary(ctx, user)
	require.NoError(t, err)
	assert.Zero(t, summary.Balance)
	assert.Zero(t, summary.TotalEarnings)
	assert.Empty(t, summary.Methods)
	assert.Equal(t, model.PayoutMethods, summary.Available)

	_, err = svc.Connect(ctx, user, "bitcoin")
	assert.ErrorIs(t, err, ErrInvalidInput)

	summary, err = svc.Connect(ctx, user, " PayPal ")
	require.NoError(t, err)
	require.Len(t, summary.Methods, 1)
	assert.Equal(t, model.PayoutPaypal, summary.Methods[0].Method)

	// 重复绑定
	summary, err = svc.Connect(ctx, user, model.PayoutPaypal)
	require.NoError(t, err)
	assert.Len(t, summary.Methods, 1)

	summary, err = svc.Connect(ctx, user, model.PayoutMir)
	require.NoError(t, err)
	assert.Len(t, summary.Methods, 2)
}

func TestWalletService_ConnectHonoursContext(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)
	store := setupRedisKV(t)

	cfg := testMarketConfig()
	cfg.Simulation.WalletDelayMs = 5000
	svc := NewWalletService(repository.NewPayoutRepository(db), cfg, nil)
	user := signedInActor(t, store, "user@example.com")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := svc.Connect(ctx, user, model.PayoutVisa)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	summary, err := svc.Summary(context.Background(), user)
	require.NoError(t, err)
	assert.Empty(t, summary.Methods)
}
