package kv

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/golang/groupcache"

	"github.com/hsk3232/DevelopProject/pkg/configs"
)

// GroupcacheKV 基于 Groupcache 的 KV 实现.
//
// 本节点写入的数据保存在 data 中并作为权威来源；只有本地缺失且配置了对等节点时
// 才经由 groupcache 向拥有该键的节点取值。groupcache 不支持删除，
// 因此本地 Delete 之后其他节点可能仍持有旧值直到被 LRU 淘汰.
type GroupcacheKV struct {
	cache *groupcache.Group
	peers *groupcache.HTTPPool
	data  map[string][]byte // 带 TTL 包装的本地数据
	mu    sync.RWMutex
}

type groupcacheGetter struct {
	kv *GroupcacheKV
}

// Get 实现 groupcache.Getter，供对等节点回源.
func (g *groupcacheGetter) Get(_ context.Context, key string, dest groupcache.Sink) error {
	value, ok := g.kv.local(key)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}

	if err := dest.SetBytes(value); err != nil {
		return fmt.Errorf("failed to set bytes to sink: %w", err)
	}

	return nil
}

var (
	groupsMu sync.Mutex
	groups   = map[string]*groupcache.Group{}
	getters  = map[string]*groupcacheGetter{}
)

// NewGroupcacheKV 创建 Groupcache KV 实例.
// 同名 group 在进程内只创建一次，重复创建时复用并改为指向新的本地数据.
func NewGroupcacheKV(_ context.Context, cfg *configs.KVConfig) (KVStore, error) {
	gc := cfg.Groupcache
	if gc.Name == "" {
		return nil, fmt.Errorf("groupcache name is required")
	}

	kv := &GroupcacheKV{data: make(map[string][]byte)}

	groupsMu.Lock()
	if g, ok := groups[gc.Name]; ok {
		getters[gc.Name].kv = kv
		kv.cache = g
	} else {
		getter := &groupcacheGetter{kv: kv}
		kv.cache = groupcache.NewGroup(gc.Name, gc.CacheBytes, getter)
		groups[gc.Name] = kv.cache
		getters[gc.Name] = getter
	}
	groupsMu.Unlock()

	if len(gc.Peers) > 0 {
		kv.peers = groupcache.NewHTTPPoolOpts(gc.Self, &groupcache.HTTPPoolOptions{})
		kv.peers.Set(gc.Peers...)
	}

	return kv, nil
}

// local 读取本地数据并处理过期.
func (g *GroupcacheKV) local(key string) ([]byte, bool) {
	g.mu.RLock()
	raw, ok := g.data[key]
	g.mu.RUnlock()

	if !ok {
		return nil, false
	}

	val, expired, _, err := decodeWithTTL(raw, time.Now())
	if err != nil || expired {
		g.mu.Lock()
		delete(g.data, key)
		g.mu.Unlock()

		return nil, false
	}

	return val, true
}

// Get 获取键的值.
func (g *GroupcacheKV) Get(ctx context.Context, key string) ([]byte, error) {
	if val, ok := g.local(key); ok {
		result := make([]byte, len(val))
		copy(result, val)

		return result, nil
	}

	if g.peers == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}

	var data []byte
	if err := g.cache.Get(ctx, key, groupcache.AllocatingByteSliceSink(&data)); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}

	return data, nil
}

// Set 设置键的值.
func (g *GroupcacheKV) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	encoded, _, err := encodeWithTTL(value, ttl)
	if err != nil {
		return err
	}

	stored := make([]byte, len(encoded))
	copy(stored, encoded)

	g.mu.Lock()
	g.data[key] = stored
	g.mu.Unlock()

	return nil
}

// Delete 删除键.
func (g *GroupcacheKV) Delete(_ context.Context, key string) error {
	g.mu.Lock()
	delete(g.data, key)
	g.mu.Unlock()

	return nil
}

// Exists 检查键是否存在.
func (g *GroupcacheKV) Exists(_ context.Context, key string) (bool, error) {
	_, ok := g.local(key)

	return ok, nil
}

// Keys 获取本地键.
func (g *GroupcacheKV) Keys(_ context.Context, pattern string) ([]string, error) {
	g.mu.RLock()
	candidates := make([]string, 0, len(g.data))
	for key := range g.data {
		if matchPattern(pattern, key) {
			candidates = append(candidates, key)
		}
	}
	g.mu.RUnlock()

	keys := candidates[:0]
	for _, key := range candidates {
		if _, ok := g.local(key); ok {
			keys = append(keys, key)
		}
	}

	return keys, nil
}

// Close 关闭缓存.
func (g *GroupcacheKV) Close() error {
	// Groupcache 没有显式的关闭方法
	return nil
}

func init() {
	RegisterKVFactory(KVTypeGroupcache, NewGroupcacheKV)
}
