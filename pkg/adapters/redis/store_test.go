package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/sonicwave/pulse/internal/testutils"
	"github.com/sonicwave/pulse/pkg/adapters/redis"
	"github.com/sonicwave/pulse/pkg/domain"
	"github.com/sonicwave/pulse/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisStore_Contract(t *testing.T) {
	_, client := testutils.SetupRedis(t)
	ports.RunSnapshotStoreContract(t, redis.NewFromClient(client))
}

func TestRedisStore_TTL_Expiration(t *testing.T) {
	mr, client := testutils.SetupRedis(t)

	now := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	store := redis.NewFromClient(client,
		redis.WithTTL(time.Second),
		redis.WithNow(func() time.Time { return now }),
	)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "dev-ttl", domain.UiState{RunState: domain.RunIdle}))

	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Contains(t, ids, "dev-ttl")

	mr.FastForward(2 * time.Second)
	now = now.Add(2 * time.Second)

	_, err = store.Load(ctx, "dev-ttl")
	assert.ErrorIs(t, err, domain.ErrSnapshotNotFound)

	ids, err = store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids, "expired entries are pruned from the index")
}

func TestRedisStore_Prefix(t *testing.T) {
	mr, client := testutils.SetupRedis(t)

	store := redis.NewFromClient(client, redis.WithPrefix("custom:app:"))
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "dev-1", domain.UiState{}))

	assert.True(t, mr.Exists("custom:app:snapshot:dev-1"))
	assert.True(t, mr.Exists("custom:app:snapshot:index"))

	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"dev-1"}, ids)
}

func TestRedisStore_CorruptSnapshot(t *testing.T) {
	mr, client := testutils.SetupRedis(t)
	store := redis.NewFromClient(client)

	require.NoError(t, mr.Set(redis.DefaultPrefix+"snapshot:dev-1", "{not json"))

	_, err := store.Load(context.Background(), "dev-1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrSnapshotNotFound)
}
