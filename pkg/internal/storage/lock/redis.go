package lock

import (
	"context"
	"errors"
	"fmt"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"

	"github.com/hsk3232/DevelopProject/pkg/configs"
)

// RedisLocker 基于 redislock 的分布式锁.
type RedisLocker struct {
	client *redis.Client
	locker *redislock.Client
	opts   Options
}

// NewRedis 创建 Redis Locker.
func NewRedis(ctx context.Context, cfg *configs.RedisKVConfig, opts Options) (*RedisLocker, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()

		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisWithClient(rdb, opts), nil
}

// NewRedisWithClient 复用已有的 Redis 客户端.
func NewRedisWithClient(rdb *redis.Client, opts Options) *RedisLocker {
	return &RedisLocker{client: rdb, locker: redislock.New(rdb), opts: opts}
}

// Obtain 获取锁.
func (r *RedisLocker) Obtain(ctx context.Context, key string) (Lock, error) {
	strategy := redislock.NoRetry()
	if r.opts.RetryCount > 0 {
		strategy = redislock.LimitRetry(redislock.LinearBackoff(r.opts.RetryBackoff), r.opts.RetryCount)
	}

	lk, err := r.locker.Obtain(ctx, key, r.opts.TTL, &redislock.Options{RetryStrategy: strategy})
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, ErrNotObtained
	}

	if err != nil {
		return nil, fmt.Errorf("obtain lock %s: %w", key, err)
	}

	return &redisLock{lk: lk}, nil
}

// Close 关闭 Redis 连接.
func (r *RedisLocker) Close() error {
	return r.client.Close()
}

type redisLock struct {
	lk *redislock.Lock
}

func (k *redisLock) Key() string { return k.lk.Key() }

func (k *redisLock) Release(ctx context.Context) error {
	err := k.lk.Release(ctx)
	if errors.Is(err, redislock.ErrLockNotHeld) {
		return nil
	}

	return err
}
