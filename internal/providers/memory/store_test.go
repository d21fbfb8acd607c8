package memory

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisStore(t *testing.T) {
	// Skip test if Redis is not available
	client := redis.NewClient(&redis.Options{
		Addr: "127.0.0.1:6379",
		DB:   3,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	defer client.FlushDB(ctx)

	store := NewRedisStoreWithClient(client, "capgate-test")
	defer store.Close()

	now := time.Now().UTC()
	older := Memory{ID: "a", Content: "first", CreatedAt: now.Add(-time.Minute)}
	newer := Memory{ID: "b", Content: "second", Tags: []string{"x"}, CreatedAt: now}

	require.NoError(t, store.Put(ctx, older, 0))
	require.NoError(t, store.Put(ctx, newer, 0))

	got, err := store.Get(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, got.Tags)

	_, err = store.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	recent, err := store.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "b", recent[0].ID)

	recent, err = store.Recent(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, recent, 1)

	existed, err := store.Delete(ctx, "a")
	require.NoError(t, err)
	assert.True(t, existed)
	existed, err = store.Delete(ctx, "a")
	require.NoError(t, err)
	assert.False(t, existed)

	require.NoError(t, store.Put(ctx, Memory{ID: "c", CreatedAt: now.Add(time.Second)}, 50*time.Millisecond))
	time.Sleep(100 * time.Millisecond)
	recent, err = store.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "b", recent[0].ID)
	assert.Zero(t, client.ZScore(ctx, "capgate-test:memories", "c").Val())
}
