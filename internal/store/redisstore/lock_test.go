package redisstore

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Needs a live server: REDIS_ADDR=127.0.0.1:6379 go test ./internal/store/redisstore
func newTestLocker(t *testing.T) *Locker {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	rdb, err := NewClient(context.Background(), addr, os.Getenv("REDIS_PASSWORD"), 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })
	return NewLocker(rdb, 5*time.Second)
}

func TestLocker_ExclusiveUntilReleased(t *testing.T) {
	l := newTestLocker(t)
	key := "test:lock:" + uuid.NewString()

	unlock, err := l.Lock(context.Background(), key)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()
	_, err = l.Lock(ctx, key)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	unlock()
	unlock()

	again, err := l.Lock(context.Background(), key)
	require.NoError(t, err)
	again()
}

func TestLocker_ReleaseKeepsForeignLease(t *testing.T) {
	l := newTestLocker(t)
	key := "test:lock:" + uuid.NewString()
	ctx := context.Background()

	unlock, err := l.Lock(ctx, key)
	require.NoError(t, err)

	// simulate the lease expiring and another holder taking over
	require.NoError(t, l.rdb.Set(ctx, key, "someone-else", time.Minute).Err())
	unlock()

	val, err := l.rdb.Get(ctx, key).Result()
	require.NoError(t, err)
	assert.Equal(t, "someone-else", val)
	require.NoError(t, l.rdb.Del(ctx, key).Err())
}
