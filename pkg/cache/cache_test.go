package cache_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hsk3232/DevelopProject/pkg/cache"
	"github.com/hsk3232/DevelopProject/pkg/internal/storage/kv"
)

// routeSet 测试用的参考数据结构.
type routeSet struct {
	Routes  []string          `json:"routes"`
	Version int               `json:"version"`
	Names   map[string]string `json:"names"`
}

func newStore(t *testing.T) kv.KVStore {
	t.Helper()

	store, err := kv.NewKVStore(context.Background(), kv.KVTypeMemory, nil)
	if err != nil {
		t.Fatalf("create memory kv: %v", err)
	}

	return store
}

// TestCache_GetSet 测试 Get/Set 往返与未命中.
func TestCache_GetSet(t *testing.T) {
	c := cache.NewCache(newStore(t))
	ctx := context.Background()

	_, err := cache.Get[routeSet](ctx, c, "routes")
	if !cache.IsMiss(err) {
		t.Fatalf("expected miss, got %v", err)
	}

	want := routeSet{Routes: []string{"1->2", "2->3"}, Version: 3, Names: map[string]string{"1": "화성공장"}}
	if err := cache.Set(ctx, c, "routes", want, 0); err != nil {
		t.Fatalf("set: %v", err)
	}

	got, err := cache.Get[routeSet](ctx, c, "routes")
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	if got.Version != want.Version || len(got.Routes) != 2 || got.Names["1"] != "화성공장" {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

// TestCache_Namespace 测试命名空间隔离.
func TestCache_Namespace(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	lookup := cache.NewCache(store, cache.WithNamespace("lookup"))
	httpCache := cache.NewCache(store, cache.WithNamespace("http"))

	if err := cache.Set(ctx, lookup, "k", 1, 0); err != nil {
		t.Fatalf("set: %v", err)
	}

	if err := cache.Set(ctx, httpCache, "k", 2, 0); err != nil {
		t.Fatalf("set: %v", err)
	}

	ok, _ := store.Exists(ctx, "lookup:k")
	if !ok {
		t.Error("expected lookup:k in store")
	}

	if err := lookup.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}

	if v, err := cache.Get[int](ctx, httpCache, "k"); err != nil || v != 2 {
		t.Errorf("http namespace should survive clear, got %d, %v", v, err)
	}

	if _, err := cache.Get[int](ctx, lookup, "k"); !cache.IsMiss(err) {
		t.Errorf("lookup namespace should be empty, got %v", err)
	}
}

// TestCache_Delete 测试 Delete 与 Exists.
func TestCache_Delete(t *testing.T) {
	c := cache.NewCache(newStore(t))
	ctx := context.Background()

	if err := c.SetBytes(ctx, "raw", []byte("body"), 0); err != nil {
		t.Fatalf("set bytes: %v", err)
	}

	if ok, _ := c.Exists(ctx, "raw"); !ok {
		t.Fatal("key should exist before deletion")
	}

	if err := c.Delete(ctx, "raw"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if ok, _ := c.Exists(ctx, "raw"); ok {
		t.Error("key should not exist after deletion")
	}
}

// TestGetOrSet 测试 getter 仅在未命中时调用.
func TestGetOrSet(t *testing.T) {
	c := cache.NewCache(newStore(t))
	ctx := context.Background()

	var calls int32

	getter := func() (routeSet, error) {
		atomic.AddInt32(&calls, 1)

		return routeSet{Version: 5}, nil
	}

	for range 3 {
		got, err := cache.GetOrSet(ctx, c, "snapshot", getter, time.Minute)
		if err != nil {
			t.Fatalf("get or set: %v", err)
		}

		if got.Version != 5 {
			t.Errorf("expected version 5, got %d", got.Version)
		}
	}

	if calls != 1 {
		t.Errorf("expected getter to be called once, got %d", calls)
	}
}

// TestGetOrSet_Concurrent 测试并发未命中时 getter 只执行一次.
func TestGetOrSet_Concurrent(t *testing.T) {
	c := cache.NewCache(newStore(t))
	ctx := context.Background()

	var (
		calls int32
		wg    sync.WaitGroup
	)

	release := make(chan struct{})
	getter := func() (int, error) {
		atomic.AddInt32(&calls, 1)
		<-release

		return 7, nil
	}

	for range 8 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			if v, err := cache.GetOrSet(ctx, c, "slow", getter, 0); err != nil || v != 7 {
				t.Errorf("unexpected result %d, %v", v, err)
			}
		}()
	}

	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("expected 1 getter call, got %d", n)
	}
}

// TestGetOrSet_GetterError 测试 getter 返回错误时不写缓存.
func TestGetOrSet_GetterError(t *testing.T) {
	c := cache.NewCache(newStore(t))
	ctx := context.Background()

	boom := errors.New("db unavailable")

	_, err := cache.GetOrSet(ctx, c, "broken", func() (int, error) { return 0, boom }, 0)
	if !errors.Is(err, boom) {
		t.Fatalf("expected getter error, got %v", err)
	}

	if ok, _ := c.Exists(ctx, "broken"); ok {
		t.Error("failed getter must not populate cache")
	}
}
