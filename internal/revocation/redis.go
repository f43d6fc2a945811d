package revocation

import (
	"context"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "auth:revoked:"

// revokeScript sets the key unless it already outlives the requested TTL.
var revokeScript = redis.NewScript(`
local current = redis.call('PTTL', KEYS[1])
local ttl = tonumber(ARGV[1])
if current < ttl then
  redis.call('SET', KEYS[1], '1', 'PX', ttl)
end
return 1
`)

// RedisStore shares revocations between service instances. Redis expires the
// keys itself, so no sweeping is needed.
type RedisStore struct {
	client redis.UniversalClient
	clock  clock.Clock
}

// NewRedisStore wraps an existing client. A nil clock means wall time.
func NewRedisStore(client redis.UniversalClient, clk clock.Clock) *RedisStore {
	if clk == nil {
		clk = clock.New()
	}
	return &RedisStore{client: client, clock: clk}
}

// Revoke stores the token hash with a TTL matching expiresAt. An existing key
// only has its TTL extended, never shortened.
func (s *RedisStore) Revoke(ctx context.Context, token string, expiresAt time.Time) error {
	now := s.clock.Now()
	ttl := resolveExpiry(now, expiresAt).Sub(now)
	if ttl < time.Millisecond {
		return nil
	}

	key := redisKeyPrefix + HashToken(token)
	if err := revokeScript.Run(ctx, s.client, []string{key}, ttl.Milliseconds()).Err(); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

// IsRevoked checks for a live key.
func (s *RedisStore) IsRevoked(ctx context.Context, token string) (bool, error) {
	n, err := s.client.Exists(ctx, redisKeyPrefix+HashToken(token)).Result()
	if err != nil {
		return false, fmt.Errorf("check revocation: %w", err)
	}
	return n > 0, nil
}
