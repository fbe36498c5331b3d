package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cachedDashboard struct {
	StudentID string   `json:"student_id"`
	Dues      string   `json:"dues"`
	Bills     []string `json:"bills"`
}

func TestInMemoryDashboardCache(t *testing.T) {
	ctx := context.Background()
	c := NewInMemoryDashboardCache(time.Minute)
	now := time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	var got cachedDashboard
	hit, err := c.Get(ctx, "STU001", 2024, &got)
	require.NoError(t, err)
	assert.False(t, hit)

	want := cachedDashboard{StudentID: "STU001", Dues: "1400", Bills: []string{"BILL202404"}}
	require.NoError(t, c.Set(ctx, "STU001", 2024, want))

	t.Run("hit returns a copy", func(t *testing.T) {
		var got cachedDashboard
		hit, err := c.Get(ctx, "STU001", 2024, &got)
		require.NoError(t, err)
		require.True(t, hit)
		assert.Equal(t, want, got)

		got.Bills[0] = "changed"
		var again cachedDashboard
		_, _ = c.Get(ctx, "STU001", 2024, &again)
		assert.Equal(t, "BILL202404", again.Bills[0])
	})

	t.Run("keys are per session", func(t *testing.T) {
		hit, err := c.Get(ctx, "STU001", 2025, &got)
		require.NoError(t, err)
		assert.False(t, hit)
	})

	t.Run("entries expire", func(t *testing.T) {
		now = now.Add(2 * time.Minute)
		hit, err := c.Get(ctx, "STU001", 2024, &got)
		require.NoError(t, err)
		assert.False(t, hit)
	})

	t.Run("invalidate drops the entry", func(t *testing.T) {
		require.NoError(t, c.Set(ctx, "STU002", 2024, want))
		require.NoError(t, c.Invalidate(ctx, "STU002", 2024))
		hit, err := c.Get(ctx, "STU002", 2024, &got)
		require.NoError(t, err)
		assert.False(t, hit)
	})
}

// newTestRedisClient connects to FEES_TEST_REDIS_ADDR (default localhost:6379)
// and skips the test when no server answers
func newTestRedisClient(t *testing.T) *redis.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping Redis test in short mode")
	}
	addr := os.Getenv("FEES_TEST_REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	client := redis.NewClient(&redis.Options{Addr: addr, DB: 15})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		t.Skipf("Redis not available at %s: %v", addr, err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestRedisDashboardCache(t *testing.T) {
	client := newTestRedisClient(t)
	ctx := context.Background()
	prefix := "fees_test:" + time.Now().Format("150405.000") + ":"
	c := NewRedisDashboardCache(client, prefix, time.Minute, nil)

	want := cachedDashboard{StudentID: "STU001", Dues: "1400"}
	require.NoError(t, c.Set(ctx, "STU001", 2024, want))

	var got cachedDashboard
	hit, err := c.Get(ctx, "STU001", 2024, &got)
	require.NoError(t, err)
	require.True(t, hit)
	assert.Equal(t, want.Dues, got.Dues)

	require.NoError(t, c.Invalidate(ctx, "STU001", 2024))
	hit, err = c.Get(ctx, "STU001", 2024, &got)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestRedisIdempotencyStore(t *testing.T) {
	client := newTestRedisClient(t)
	ctx := context.Background()
	store := NewRedisIdempotencyStoreWithClient(client, "fees_test:"+time.Now().Format("150405.000")+":")

	isNew, err := store.MarkProcessed(ctx, "collect-1", time.Minute)
	require.NoError(t, err)
	assert.True(t, isNew)

	isNew, err = store.MarkProcessed(ctx, "collect-1", time.Minute)
	require.NoError(t, err)
	assert.False(t, isNew)

	require.NoError(t, store.Forget(ctx, "collect-1"))
	processed, err := store.IsProcessed(ctx, "collect-1")
	require.NoError(t, err)
	assert.False(t, processed)
}
