// Package cache 提供基于键值存储的泛型缓存，参考数据快照与 HTTP 响应缓存都经由它读写.
//
// 基本用法:
//
//	c := cache.NewCache(kvStore, cache.WithNamespace("lookup"))
//
//	// 写入快照
//	err := cache.Set(ctx, c, "snapshot", snap, 10*time.Minute)
//
//	// 读取，未命中返回 kv.ErrNotFound
//	snap, err := cache.Get[Snapshot](ctx, c, "snapshot")
//
//	// 并发未命中时只执行一次 loader
//	snap, err := cache.GetOrSet(ctx, c, "snapshot", loadSnapshot, 10*time.Minute)
//
// 值使用 sonic 编码为 JSON. 线程安全性取决于底层 KV 实现，仓库内的实现均可并发使用.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"golang.org/x/sync/singleflight"

	"github.com/hsk3232/DevelopProject/pkg/internal/storage/kv"
)

// Cache 基于KV存储的缓存实现.
type Cache struct {
	kvStore   kv.KVStore
	namespace string
	group     singleflight.Group
}

// Option 缓存选项.
type Option func(*Cache)

// WithNamespace 为所有键增加 "<ns>:" 前缀.
func WithNamespace(ns string) Option {
	return func(c *Cache) {
		c.namespace = ns
	}
}

// NewCache 创建一个新的缓存实例.
func NewCache(kvStore kv.KVStore, opts ...Option) *Cache {
	c := &Cache{kvStore: kvStore}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

func (c *Cache) key(key string) string {
	if c.namespace == "" {
		return key
	}

	return c.namespace + ":" + key
}

// IsMiss 判断错误是否为缓存未命中.
func IsMiss(err error) bool {
	return errors.Is(err, kv.ErrNotFound)
}

// Get 泛型获取缓存值.
func Get[T any](ctx context.Context, c *Cache, key string) (T, error) {
	var value T

	data, err := c.kvStore.Get(ctx, c.key(key))
	if err != nil {
		return value, err
	}

	if err := sonic.Unmarshal(data, &value); err != nil {
		return value, fmt.Errorf("failed to unmarshal cache value: %w", err)
	}

	return value, nil
}

// Set 泛型设置缓存值.
func Set[T any](ctx context.Context, c *Cache, key string, value T, ttl time.Duration) error {
	data, err := sonic.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}

	return c.kvStore.Set(ctx, c.key(key), data, ttl)
}

// GetBytes 读取原始字节.
func (c *Cache) GetBytes(ctx context.Context, key string) ([]byte, error) {
	return c.kvStore.Get(ctx, c.key(key))
}

// SetBytes 写入原始字节.
func (c *Cache) SetBytes(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.kvStore.Set(ctx, c.key(key), value, ttl)
}

// Delete 删除缓存键.
func (c *Cache) Delete(ctx context.Context, key string) error {
	return c.kvStore.Delete(ctx, c.key(key))
}

// Exists 检查缓存键是否存在.
func (c *Cache) Exists(ctx context.Context, key string) (bool, error) {
	return c.kvStore.Exists(ctx, c.key(key))
}

// GetOrSet 获取缓存值，未命中时调用 getter 并回写；同一键的并发未命中合并为一次 getter 调用.
// 回写失败不影响返回值.
func GetOrSet[T any](ctx context.Context, c *Cache, key string, getter func() (T, error), ttl time.Duration) (T, error) {
	if value, err := Get[T](ctx, c, key); err == nil {
		return value, nil
	}

	v, err, _ := c.group.Do(c.key(key), func() (any, error) {
		value, err := getter()
		if err != nil {
			return value, err
		}

		_ = Set(ctx, c, key, value, ttl)

		return value, nil
	})
	if err != nil {
		var zero T

		return zero, err
	}

	return v.(T), nil
}

// Clear 清空当前命名空间下的键.
func (c *Cache) Clear(ctx context.Context) error {
	keys, err := c.kvStore.Keys(ctx, c.key("*"))
	if err != nil {
		return err
	}

	for _, key := range keys {
		if delErr := c.kvStore.Delete(ctx, key); delErr != nil {
			return delErr
		}
	}

	return nil
}
