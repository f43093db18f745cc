package kv_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hsk3232/DevelopProject/pkg/configs"
	"github.com/hsk3232/DevelopProject/pkg/internal/storage/kv"
)

func newStores(t *testing.T) map[string]kv.KVStore {
	t.Helper()

	ctx := context.Background()

	mem, err := kv.NewKVStore(ctx, kv.KVTypeMemory, nil)
	require.NoError(t, err)

	gc, err := kv.NewKVStore(ctx, kv.KVTypeGroupcache, &configs.KVConfig{
		Groupcache: configs.GroupcacheKVConfig{
			Name:       "test-" + t.Name(),
			CacheBytes: 1 << 20,
		},
	})
	require.NoError(t, err)

	stores := map[string]kv.KVStore{"memory": mem, "groupcache": gc}

	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		rs, err := kv.NewKVStore(ctx, kv.KVTypeRedis, &configs.KVConfig{
			Redis: configs.RedisKVConfig{Addr: addr},
		})
		if err == nil {
			stores["redis"] = rs
		}
	}

	t.Cleanup(func() {
		for _, s := range stores {
			_ = s.Close()
		}
	})

	return stores
}

func TestKVStoreBasics(t *testing.T) {
	for name, store := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			key := "lookup:location:" + name

			_, err := store.Get(ctx, key)
			assert.True(t, errors.Is(err, kv.ErrNotFound))

			require.NoError(t, store.Set(ctx, key, []byte(`{"1":"화성공장"}`), 0))

			got, err := store.Get(ctx, key)
			require.NoError(t, err)
			assert.JSONEq(t, `{"1":"화성공장"}`, string(got))

			ok, err := store.Exists(ctx, key)
			require.NoError(t, err)
			assert.True(t, ok)

			keys, err := store.Keys(ctx, "lookup:*")
			require.NoError(t, err)
			assert.Contains(t, keys, key)

			require.NoError(t, store.Delete(ctx, key))

			ok, err = store.Exists(ctx, key)
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestKVStoreTTL(t *testing.T) {
	for name, store := range newStores(t) {
		if name == "redis" {
			continue
		}

		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			require.NoError(t, store.Set(ctx, "short", []byte("v"), 20*time.Millisecond))
			require.NoError(t, store.Set(ctx, "long", []byte("v"), time.Hour))

			time.Sleep(60 * time.Millisecond)

			_, err := store.Get(ctx, "short")
			assert.ErrorIs(t, err, kv.ErrNotFound)

			got, err := store.Get(ctx, "long")
			require.NoError(t, err)
			assert.Equal(t, []byte("v"), got)

			keys, err := store.Keys(ctx, "")
			require.NoError(t, err)
			assert.Equal(t, []string{"long"}, keys)
		})
	}
}

func TestMemoryKVReturnsCopy(t *testing.T) {
	store, err := kv.NewKVStore(context.Background(), kv.KVTypeMemory, nil)
	require.NoError(t, err)

	value := []byte("abc")
	require.NoError(t, store.Set(context.Background(), "k", value, 0))

	value[0] = 'x'

	got, err := store.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))

	got[1] = 'y'

	again, err := store.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(again))
}

func TestUnsupportedKVType(t *testing.T) {
	_, err := kv.NewKVStore(context.Background(), kv.KVType("etcd"), nil)
	assert.Error(t, err)

	types := kv.GetRegisteredKVTypes()
	assert.Contains(t, types, kv.KVTypeMemory)
	assert.Contains(t, types, kv.KVTypeGroupcache)
}

func BenchmarkMemoryKV(b *testing.B) {
	store, err := kv.NewKVStore(context.Background(), kv.KVTypeMemory, nil)
	if err != nil {
		b.Fatalf("create memory kv: %v", err)
	}

	defer store.Close()

	ctx := context.Background()
	payload := make([]byte, 1024)

	b.ReportAllocs()

	for i := 0; b.Loop(); i++ {
		key := fmt.Sprintf("bench-%d", i)
		if err := store.Set(ctx, key, payload, time.Minute); err != nil {
			b.Fatalf("set failed: %v", err)
		}

		if _, err := store.Get(ctx, key); err != nil {
			b.Fatalf("get failed: %v", err)
		}
	}
}
