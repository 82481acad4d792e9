package ratestore

import (
	"context"
	"fmt"
	"strconv"
	"sync/atomic"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var redisRatePrefix string = "rate/"

// Sliding-window limiter backed by one redis sorted set per user, scored by unix microseconds.
type RedisRateLimiter struct {
	Client *redis.Client
	Clock  clock.Clock
	config Config
	// distinguishes this process's window entries from other processes sharing the same redis
	instance string
	seq      atomic.Uint64
}

var _ RateLimiter = (*RedisRateLimiter)(nil)

func NewRedisRateLimiter(redisURL string, config Config, clk clock.Clock) (*RedisRateLimiter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opt)
	// check redis connection
	_, err = rdb.Ping(context.TODO()).Result()
	if err != nil {
		return nil, err
	}
	if clk == nil {
		clk = clock.New()
	}
	return &RedisRateLimiter{
		Client:   rdb,
		Clock:    clk,
		config:   config,
		instance: uuid.NewString(),
	}, nil
}

func (l *RedisRateLimiter) Close() error {
	return l.Client.Close()
}

func (l *RedisRateLimiter) CheckAndRecord(ctx context.Context, user string) (bool, error) {
	key := redisRatePrefix + user
	now := l.Clock.Now().UnixMicro()
	cutoff := now - l.config.Window.Microseconds()
	member := l.member(now)

	// purge, record, and count in a single MULTI/EXEC, so concurrent calls for the same user can't interleave
	multi := l.Client.TxPipeline()
	multi.ZRemRangeByScore(ctx, key, "-inf", "("+strconv.FormatInt(cutoff, 10))
	multi.ZAdd(ctx, key, redis.Z{Score: float64(now), Member: member})
	count := multi.ZCard(ctx, key)
	multi.PExpire(ctx, key, l.config.Window)
	if _, err := multi.Exec(ctx); err != nil {
		return false, err
	}
	return count.Val() > int64(l.config.MaxMessages), nil
}

// members must be unique even for calls within the same microsecond, from any process
func (l *RedisRateLimiter) member(micros int64) string {
	return fmt.Sprintf("%d-%s-%d", micros, l.instance, l.seq.Add(1))
}

func (l *RedisRateLimiter) Reset(ctx context.Context, user string) error {
	return l.Client.Del(ctx, redisRatePrefix+user).Err()
}
