package identity

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestRedis creates a miniredis server and returns a RedisStore instance
func setupTestRedis(t *testing.T) (*RedisStore, *miniredis.Miniredis, func()) {
	// Create an in-memory Redis server
	mr := miniredis.RunT(t)

	// Create Redis client pointing to miniredis
	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	store := NewRedisStore(client, "default")

	cleanup := func() {
		client.Close()
		mr.Close()
	}

	return store, mr, cleanup
}

func TestRedisLoad_Success(t *testing.T) {
	store, mr, cleanup := setupTestRedis(t)
	defer cleanup()

	// Manually set data in miniredis
	mr.Set(sessionKey("default"), "sess-abc")

	got, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "sess-abc", got)
}

func TestRedisLoad_NoSession(t *testing.T) {
	store, _, cleanup := setupTestRedis(t)
	defer cleanup()

	_, err := store.Load(context.Background())
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestRedisSave_StoresUnderProfileKey(t *testing.T) {
	store, mr, cleanup := setupTestRedis(t)
	defer cleanup()

	require.NoError(t, store.Save(context.Background(), "sess-abc"))

	// Verify data was stored correctly in miniredis
	val, err := mr.Get(sessionKey("default"))
	require.NoError(t, err)
	assert.Equal(t, "sess-abc", val)

	// No TTL on the slot
	assert.Zero(t, mr.TTL(sessionKey("default")))
}

func TestRedisSave_Overwrite(t *testing.T) {
	store, _, cleanup := setupTestRedis(t)
	defer cleanup()

	ctx := context.Background()
	require.NoError(t, store.Save(ctx, "first"))
	require.NoError(t, store.Save(ctx, "second"))

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "second", got)
}

func TestRedisLoad_ServerDown(t *testing.T) {
	store, mr, cleanup := setupTestRedis(t)
	defer cleanup()

	mr.Close()

	_, err := store.Load(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoSession)
}
