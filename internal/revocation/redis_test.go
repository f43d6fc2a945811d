package revocation

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/benbjohnson/clock"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis, *clock.Mock) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	clk := clock.NewMock()
	return NewRedisStore(client, clk), mr, clk
}

func TestRedisStoreRevoke(t *testing.T) {
	ctx := context.Background()
	store, mr, clk := newRedisStore(t)

	require.NoError(t, store.Revoke(ctx, "tok", clk.Now().Add(10*time.Minute)))

	revoked, err := store.IsRevoked(ctx, "tok")
	require.NoError(t, err)
	assert.True(t, revoked)

	assert.False(t, mr.Exists(redisKeyPrefix+"tok"), "raw token must not be used as key")
	assert.True(t, mr.Exists(redisKeyPrefix+HashToken("tok")))

	mr.FastForward(10 * time.Minute)
	revoked, err = store.IsRevoked(ctx, "tok")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestRedisStoreNeverShortensTTL(t *testing.T) {
	ctx := context.Background()
	store, mr, clk := newRedisStore(t)

	require.NoError(t, store.Revoke(ctx, "tok", clk.Now().Add(time.Hour)))
	require.NoError(t, store.Revoke(ctx, "tok", clk.Now().Add(time.Minute)))

	assert.Equal(t, time.Hour, mr.TTL(redisKeyPrefix+HashToken("tok")))
}

func TestRedisStoreDefaultTTL(t *testing.T) {
	ctx := context.Background()
	store, mr, _ := newRedisStore(t)

	require.NoError(t, store.Revoke(ctx, "tok", time.Time{}))
	assert.Equal(t, DefaultTTL, mr.TTL(redisKeyPrefix+HashToken("tok")))
}

func TestRedisStoreUnavailable(t *testing.T) {
	ctx := context.Background()
	store, mr, _ := newRedisStore(t)
	mr.Close()

	_, err := store.IsRevoked(ctx, "tok")
	assert.Error(t, err)
}
