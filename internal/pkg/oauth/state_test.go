package oauth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs3c/needvox_server/internal/testutil"
)

func TestStateStore_RoundTrip(t *testing.T) {
	rdb, _ := testutil.SetupTestRedis(t)
	store := NewStateStore(rdb)
	ctx := context.Background()

	state, err := store.GenerateState(ctx, "sess-1")
	require.NoError(t, err)
	assert.Len(t, state, 64)

	sessionID, err := store.ValidateState(ctx, state)
	require.NoError(t, err)
	assert.Equal(t, "sess-1", sessionID)

	// 已被消费
	_, err = store.ValidateState(ctx, state)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestStateStore_Invalid(t *testing.T) {
	rdb, _ := testutil.SetupTestRedis(t)
	store := NewStateStore(rdb)
	ctx := context.Background()

	_, err := store.ValidateState(ctx, "")
	assert.ErrorIs(t, err, ErrInvalidState)

	_, err = store.ValidateState(ctx, "deadbeef")
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestStateStore_Expires(t *testing.T) {
	rdb, mr := testutil.SetupTestRedis(t)
	store := NewStateStore(rdb)
	ctx := context.Background()

	state, err := store.GenerateState(ctx, "sess-1")
	require.NoError(t, err)

	mr.FastForward(stateTTL + time.Second)

	_, err = store.ValidateState(ctx, state)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestStateStore_Unique(t *testing.T) {
	rdb, _ := testutil.SetupTestRedis(t)
	store := NewStateStore(rdb)
	ctx := context.Background()

	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
		state, err := store.GenerateState(ctx, "sess")
		require.NoError(t, err)
		assert.False(t, seen[state])
		seen[state] = true
	}
}
