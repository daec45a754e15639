package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var slidingWindowScript = redis.NewScript(`
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
redis.call("ZREMRANGEBYSCORE", KEYS[1], "-inf", now - window)
if redis.call("ZCARD", KEYS[1]) >= limit then
  return 0
end
redis.call("ZADD", KEYS[1], now, ARGV[4])
redis.call("PEXPIRE", KEYS[1], window)
return 1
`)

// RedisSlidingWindow shares its window across instances through a sorted set
// per key.
type RedisSlidingWindow struct {
	client redis.Cmdable
	prefix string
	limit  int
	window time.Duration
	now    func() time.Time
}

func NewRedisSlidingWindow(client redis.Cmdable, prefix string, limit int, window time.Duration) (*RedisSlidingWindow, error) {
	if limit <= 0 || window <= 0 {
		return nil, errInvalidLimit
	}
	if client == nil {
		return nil, fmt.Errorf("rate limiter redis client is required")
	}
	prefix = strings.TrimRight(strings.TrimSpace(prefix), ":")
	if prefix == "" {
		prefix = "cratedigger:ratelimit"
	}
	return &RedisSlidingWindow{
		client: client,
		prefix: prefix,
		limit:  limit,
		window: window,
		now:    time.Now,
	}, nil
}

func (l *RedisSlidingWindow) Allow(ctx context.Context, key string) (bool, error) {
	redisKey := l.prefix + ":" + normalizeKey(key)
	now := l.now().UnixMilli()
	member := strconv.FormatInt(now, 10) + "-" + uuid.NewString()

	res, err := slidingWindowScript.Run(ctx, l.client, []string{redisKey},
		now, l.window.Milliseconds(), l.limit, member).Int64()
	if err != nil {
		return false, fmt.Errorf("rate limiter script failed: %w", err)
	}
	return res == 1, nil
}
