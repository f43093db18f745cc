package lookup_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hsk3232/DevelopProject/pkg/cache"
	"github.com/hsk3232/DevelopProject/pkg/internal/lookup"
	"github.com/hsk3232/DevelopProject/pkg/internal/model"
	"github.com/hsk3232/DevelopProject/pkg/internal/storage/kv"
)

type fakeStore struct {
	routes   []model.AssetRoute
	products []model.AssetProduct
	calls    int
	err      error
}

func (f *fakeStore) AssetRoutes(context.Context) ([]model.AssetRoute, error) {
	f.calls++

	return f.routes, f.err
}

func (f *fakeStore) AssetProducts(context.Context) ([]model.AssetProduct, error) {
	return f.products, nil
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		routes: []model.AssetRoute{{FromLocationID: 1, ToLocationID: 2}, {FromLocationID: 2, ToLocationID: 3}},
		products: []model.AssetProduct{
			{CompanyCode: "8805843", ProductCode: "0000001", ProductName: "Product 1"},
			{CompanyCode: "8809069", ProductCode: "0000002", ProductName: "Product 2"},
		},
	}
}

func TestLoad(t *testing.T) {
	l, err := lookup.Load(context.Background(), newFakeStore())
	require.NoError(t, err)

	assert.True(t, l.IsValidRoute(1, 2))
	assert.False(t, l.IsValidRoute(2, 1), "routes are directed")
	assert.Equal(t, 2, l.RouteCount())
	assert.True(t, l.IsKnownProductCode("0000002"))
	assert.True(t, l.IsKnownCompanyCode("8805843"))
	assert.True(t, l.IsKnownProductName("Product 1"))
	assert.False(t, l.IsKnownProductName("Product 9"))
	assert.Equal(t, "10->20", lookup.RouteKey(10, 20))
}

func TestLoadError(t *testing.T) {
	store := newFakeStore()
	store.err = errors.New("db down")

	_, err := lookup.Load(context.Background(), store)
	assert.ErrorContains(t, err, "db down")
}

func TestProviderUsesSnapshot(t *testing.T) {
	ctx := context.Background()
	kvStore, err := kv.NewKVStore(ctx, kv.KVTypeMemory, nil)
	require.NoError(t, err)

	store := newFakeStore()
	p := lookup.NewProvider(store, cache.NewCache(kvStore, cache.WithNamespace("lookup")), time.Minute)

	first, err := p.Get(ctx)
	require.NoError(t, err)
	assert.True(t, first.IsValidRoute(2, 3))

	// 存储变化在快照过期前不可见
	store.routes = append(store.routes, model.AssetRoute{FromLocationID: 3, ToLocationID: 4})

	second, err := p.Get(ctx)
	require.NoError(t, err)
	assert.False(t, second.IsValidRoute(3, 4))
	assert.Equal(t, 1, store.calls)

	refreshed, err := p.Refresh(ctx)
	require.NoError(t, err)
	assert.True(t, refreshed.IsValidRoute(3, 4))

	third, err := p.Get(ctx)
	require.NoError(t, err)
	assert.True(t, third.IsValidRoute(3, 4))
	assert.Equal(t, 2, store.calls)
}

func TestProviderWithoutCache(t *testing.T) {
	store := newFakeStore()
	p := lookup.NewProvider(store, nil, 0)

	_, err := p.Get(context.Background())
	require.NoError(t, err)
	_, err = p.Get(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, store.calls)
}
