package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "assist:ratelimit:"

// allowScript implements the fixed-window check atomically. The counter only
// grows while it is below the limit, and the key TTL is set on the first
// increment so windows self-expire.
var allowScript = redis.NewScript(`
local key = KEYS[1]
local limit = tonumber(ARGV[1])
local window = tonumber(ARGV[2])

local count = tonumber(redis.call('GET', key) or '0')
if count >= limit then
	return {0, 0}
end

count = redis.call('INCR', key)
if count == 1 then
	redis.call('PEXPIRE', key, window)
end
return {1, limit - count}
`)

// RedisStore implements a distributed rate limit store using Redis.
// Counter state lives in one key per identity with a TTL equal to the window,
// so rollover is handled by Redis expiry.
type RedisStore struct {
	client redis.UniversalClient
}

// NewRedisStore creates a new Redis-backed rate limit store.
func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

// Allow checks and consumes one unit of the identity's window budget.
func (s *RedisStore) Allow(ctx context.Context, identity string, limit int64, window time.Duration) (bool, int64, error) {
	res, err := allowScript.Run(ctx, s.client, []string{s.key(identity)}, limit, window.Milliseconds()).Int64Slice()
	if err != nil {
		return false, 0, fmt.Errorf("ratelimit redis eval: %w", err)
	}
	if len(res) != 2 {
		return false, 0, fmt.Errorf("ratelimit redis eval: unexpected reply %v", res)
	}
	return res[0] == 1, res[1], nil
}

// Remaining reports the identity's unused budget without consuming any.
func (s *RedisStore) Remaining(ctx context.Context, identity string, limit int64, window time.Duration) (int64, error) {
	count, err := s.client.Get(ctx, s.key(identity)).Int64()
	if err == redis.Nil {
		return limit, nil
	}
	if err != nil {
		return 0, fmt.Errorf("ratelimit redis get: %w", err)
	}
	remaining := limit - count
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

// Reset clears the counter for an identity.
func (s *RedisStore) Reset(ctx context.Context, identity string) error {
	return s.client.Del(ctx, s.key(identity)).Err()
}

// Close releases the underlying client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) key(identity string) string {
	return redisKeyPrefix + identity
}
