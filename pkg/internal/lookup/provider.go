package lookup

import (
	"context"
	"time"

	"github.com/hsk3232/DevelopProject/pkg/cache"
	nlog "github.com/hsk3232/DevelopProject/pkg/log"
)

// SnapshotKey KV 中快照的键.
const SnapshotKey = "snapshot"

// Provider 提供带 KV 快照缓存的 Lookup.
type Provider struct {
	store Store
	cache *cache.Cache // 为 nil 时每次直接读存储
	ttl   time.Duration
}

// NewProvider 创建 Provider.
func NewProvider(store Store, c *cache.Cache, ttl time.Duration) *Provider {
	return &Provider{store: store, cache: c, ttl: ttl}
}

// Get 返回当前参考数据，快照未命中时从存储加载并回写.
func (p *Provider) Get(ctx context.Context) (*Lookup, error) {
	if p.cache == nil {
		return Load(ctx, p.store)
	}

	s, err := cache.GetOrSet(ctx, p.cache, SnapshotKey, func() (Snapshot, error) {
		return LoadSnapshot(ctx, p.store)
	}, p.ttl)
	if err != nil {
		return nil, err
	}

	return New(s), nil
}

// Refresh 强制从存储重新加载并覆盖快照.
func (p *Provider) Refresh(ctx context.Context) (*Lookup, error) {
	s, err := LoadSnapshot(ctx, p.store)
	if err != nil {
		return nil, err
	}

	if p.cache != nil {
		if err := cache.Set(ctx, p.cache, SnapshotKey, s, p.ttl); err != nil {
			nlog.Logger().Warn().Err(err).Msg("写入参考数据快照失败")
		}
	}

	nlog.Logger().Debug().
		Int("routes", len(s.Routes)).
		Int("products", len(s.ProductCodes)).
		Msg("参考数据已刷新")

	return New(s), nil
}
