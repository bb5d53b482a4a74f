package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/sonicwave/pulse/internal/testutils"
	"github.com/sonicwave/pulse/pkg/adapters/redis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisLocker_LockUnlock(t *testing.T) {
	mr, client := testutils.SetupRedis(t)
	locker := redis.NewLocker(client, "test:")
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "dev-1", 5*time.Second)
	require.NoError(t, err)
	require.NotNil(t, unlock)

	assert.True(t, mr.Exists("test:lock:dev-1"), "Lock key should be set in Redis")
	assert.Equal(t, 5*time.Second, mr.TTL("test:lock:dev-1"))

	require.NoError(t, unlock(ctx))
	assert.False(t, mr.Exists("test:lock:dev-1"), "Lock key should be removed after unlock")
}

func TestRedisLocker_Contention(t *testing.T) {
	mr, client := testutils.SetupRedis(t)
	locker1 := redis.NewLocker(client, "test:", redis.WithRetryInterval(10*time.Millisecond))
	locker2 := redis.NewLocker(client, "test:", redis.WithRetryInterval(10*time.Millisecond))
	ctx := context.Background()

	unlock1, err := locker1.Lock(ctx, "shared", 5*time.Second)
	require.NoError(t, err)

	ctxTimeout, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
	defer cancel()

	_, err = locker2.Lock(ctxTimeout, "shared", 5*time.Second)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	require.NoError(t, unlock1(ctx))

	unlock2, err := locker2.Lock(ctx, "shared", 5*time.Second)
	require.NoError(t, err)
	defer unlock2(ctx)

	assert.True(t, mr.Exists("test:lock:shared"))
}

func TestRedisLocker_StaleUnlockKeepsNewOwner(t *testing.T) {
	mr, client := testutils.SetupRedis(t)
	locker := redis.NewLocker(client, "test:", redis.WithRetryInterval(10*time.Millisecond))
	ctx := context.Background()

	unlockOld, err := locker.Lock(ctx, "dev-1", time.Second)
	require.NoError(t, err)

	mr.FastForward(2 * time.Second)

	unlockNew, err := locker.Lock(ctx, "dev-1", 5*time.Second)
	require.NoError(t, err)

	require.NoError(t, unlockOld(ctx))
	assert.True(t, mr.Exists("test:lock:dev-1"), "an expired holder must not release the new lock")

	require.NoError(t, unlockNew(ctx))
	assert.False(t, mr.Exists("test:lock:dev-1"))
}
