package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// slidingLogScript, sorted set üzerinde atomik check-and-record yapar.
// Score = deneme zamanı (ms). Pencere dışındaki üyeler silinir, limit
// dolmamışsa yeni üye eklenir.
//
// KEYS[1] = anahtar
// ARGV    = now_ms, window_ms, limit, member
// Dönüş   = {allowed (0/1), retry_after_ms, remaining}
var slidingLogScript = goredis.NewScript(`
local key    = KEYS[1]
local now    = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit  = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
local count = redis.call('ZCARD', key)

if count < limit then
  redis.call('ZADD', key, now, ARGV[4])
  redis.call('PEXPIRE', key, window)
  return {1, 0, limit - count - 1}
end

local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
local retry = tonumber(oldest[2]) + window - now
if retry < 0 then
  retry = 0
end
return {0, retry, 0}
`)

// RedisLimiter, Redis sorted set tabanlı sliding log limiter.
// Birden fazla API instance'ı aynı sayaçları paylaşır.
type RedisLimiter struct {
	client *goredis.Client
	prefix string
	limit  int
	window time.Duration
	clock  clock.Clock
}

// NewRedisLimiter, limiter oluşturur. prefix anahtarları isimlendirir
// (ör: "ratelimit:login:").
func NewRedisLimiter(client *goredis.Client, prefix string, limit int, window time.Duration, clk clock.Clock) *RedisLimiter {
	return &RedisLimiter{
		client: client,
		prefix: prefix,
		limit:  limit,
		window: window,
		clock:  clk,
	}
}

// Allow, anahtar için yeni bir denemeye izin verilip verilmediğini döner.
// Zaman Redis'ten değil enjekte edilen clock'tan gelir; instance saatleri
// senkron varsayılır.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	if l.client == nil {
		return Decision{}, fmt.Errorf("redis client is nil")
	}

	now := l.clock.Now().UnixMilli()
	res, err := slidingLogScript.Run(ctx, l.client,
		[]string{l.prefix + key},
		now, l.window.Milliseconds(), l.limit, uuid.NewString(),
	).Int64Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("run rate limit script: %w", err)
	}
	if len(res) != 3 {
		return Decision{}, fmt.Errorf("unexpected rate limit script result: %v", res)
	}

	return Decision{
		Allowed:    res[0] == 1,
		RetryAfter: time.Duration(res[1]) * time.Millisecond,
		Remaining:  int(res[2]),
	}, nil
}
