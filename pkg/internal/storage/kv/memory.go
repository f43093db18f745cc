package kv

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hsk3232/DevelopProject/pkg/configs"
)

// MemoryKV 基于 sync.Map 的内存 KV 实现，过期时间惰性检查.
type MemoryKV struct {
	data sync.Map // key -> memoryEntry
}

type memoryEntry struct {
	value    []byte
	expireAt time.Time // 零值表示不过期
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expireAt.IsZero() && !now.Before(e.expireAt)
}

// NewMemoryKV 创建内存 KV 实例.
func NewMemoryKV(_ context.Context, _ *configs.KVConfig) (KVStore, error) {
	return &MemoryKV{}, nil
}

func (m *MemoryKV) load(key string) (memoryEntry, bool) {
	v, ok := m.data.Load(key)
	if !ok {
		return memoryEntry{}, false
	}

	e, ok := v.(memoryEntry)
	if !ok || e.expired(time.Now()) {
		m.data.Delete(key)

		return memoryEntry{}, false
	}

	return e, true
}

// Get 获取键的值.
func (m *MemoryKV) Get(_ context.Context, key string) ([]byte, error) {
	e, ok := m.load(key)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}

	// 返回副本
	result := make([]byte, len(e.value))
	copy(result, e.value)

	return result, nil
}

// Set 设置键的值.
func (m *MemoryKV) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	e := memoryEntry{value: make([]byte, len(value))}
	copy(e.value, value)

	if ttl > 0 {
		e.expireAt = time.Now().Add(ttl)
	}

	m.data.Store(key, e)

	return nil
}

// Delete 删除键.
func (m *MemoryKV) Delete(_ context.Context, key string) error {
	m.data.Delete(key)

	return nil
}

// Exists 检查键是否存在.
func (m *MemoryKV) Exists(_ context.Context, key string) (bool, error) {
	_, ok := m.load(key)

	return ok, nil
}

// Keys 获取匹配的键.
func (m *MemoryKV) Keys(_ context.Context, pattern string) ([]string, error) {
	keys := make([]string, 0)

	m.data.Range(func(key, _ any) bool {
		k, ok := key.(string)
		if !ok {
			return true
		}

		if _, alive := m.load(k); alive && matchPattern(pattern, k) {
			keys = append(keys, k)
		}

		return true
	})

	return keys, nil
}

// Close 关闭存储（内存实现无需操作）.
func (m *MemoryKV) Close() error {
	return nil
}

func init() {
	RegisterKVFactory(KVTypeMemory, NewMemoryKV)
}
