// Package lock 提供文件级分析互斥锁，保证同一文件同一时刻只有一个分析任务.
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hsk3232/DevelopProject/pkg/configs"
)

// ErrNotObtained 锁已被其他持有者占用.
var ErrNotObtained = errors.New("lock: not obtained")

// Locker 获取命名锁.
type Locker interface {
	// Obtain 尝试获取 key 对应的锁，占用时返回 ErrNotObtained.
	Obtain(ctx context.Context, key string) (Lock, error)
	Close() error
}

// Lock 已持有的锁.
type Lock interface {
	Key() string
	Release(ctx context.Context) error
}

// Options 锁的公共参数.
type Options struct {
	TTL          time.Duration
	RetryCount   int
	RetryBackoff time.Duration
}

// New 按配置创建 Locker.
func New(ctx context.Context, cfg *configs.LockConfig) (Locker, error) {
	opts := Options{
		TTL:          cfg.GetTTL(),
		RetryCount:   cfg.RetryCount,
		RetryBackoff: cfg.GetRetryBackoff(),
	}

	switch cfg.Type {
	case "", "local":
		return NewLocal(opts), nil
	case "redis":
		return NewRedis(ctx, &cfg.Redis, opts)
	default:
		return nil, fmt.Errorf("unsupported lock type: %s", cfg.Type)
	}
}

// FileKey 文件分析锁的键.
func FileKey(fileID uint) string {
	return fmt.Sprintf("epcguard:analysis:file:%d", fileID)
}
