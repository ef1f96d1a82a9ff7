package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRedisStore_Integration requires a running Redis.
func TestRedisStore_Integration(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	defer client.Close()
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skip("Skipping Redis integration test: redis not available")
	}

	store := NewRedisStore(client)
	policy := Policy{RPS: 1, Burst: 1}
	key := "test-" + uuid.NewString()

	allowed, err := store.Allow(ctx, key, policy, 1)
	require.NoError(t, err)
	assert.True(t, allowed, "fresh bucket")

	allowed, err = store.Allow(ctx, key, policy, 1)
	require.NoError(t, err)
	assert.False(t, allowed, "burst of one spent")

	time.Sleep(1100 * time.Millisecond)
	allowed, err = store.Allow(ctx, key, policy, 1)
	require.NoError(t, err)
	assert.True(t, allowed, "refilled")
}
