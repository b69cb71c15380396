package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// fixedWindow increments the counter and starts the window on the first hit.
// A key left without expiry (e.g. after a failed PEXPIRE) is repaired.
var fixedWindow = redis.NewScript(`
local current = redis.call('INCR', KEYS[1])
if current == 1 then
	redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
local ttl = redis.call('PTTL', KEYS[1])
if ttl < 0 then
	redis.call('PEXPIRE', KEYS[1], ARGV[1])
	ttl = tonumber(ARGV[1])
end
return {current, ttl}
`)

// RedisLimiter shares counters between instances through Redis.
type RedisLimiter struct {
	client redis.UniversalClient
	cfg    Config
	owned  bool
}

// NewRedisLimiter uses an existing client. Close does not close it.
func NewRedisLimiter(client redis.UniversalClient, cfg Config) (*RedisLimiter, error) {
	cfg, err := cfg.withDefaults()
	if err != nil {
		return nil, err
	}
	return &RedisLimiter{client: client, cfg: cfg}, nil
}

// DialRedisLimiter connects to redisURL and verifies the connection.
func DialRedisLimiter(ctx context.Context, redisURL string, cfg Config) (*RedisLimiter, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	l, err := NewRedisLimiter(client, cfg)
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	l.owned = true
	return l, nil
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	res, err := fixedWindow.Run(ctx, l.client, []string{l.cfg.Prefix + key}, l.cfg.Window.Milliseconds()).Int64Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("rate limit check failed: %w", err)
	}
	if len(res) != 2 {
		return Decision{}, fmt.Errorf("rate limit check failed: unexpected reply %v", res)
	}
	return decide(l.cfg, res[0], time.Duration(res[1])*time.Millisecond), nil
}

func (l *RedisLimiter) Close() error {
	if l.owned && l.client != nil {
		return l.client.Close()
	}
	return nil
}
