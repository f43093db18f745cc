package lock

import (
	"context"
	"sync"
	"time"
)

// LocalLocker 进程内锁，单实例部署使用.
type LocalLocker struct {
	mu    sync.Mutex
	held  map[string]localEntry
	opts  Options
	token uint64
}

type localEntry struct {
	token    uint64
	expireAt time.Time
}

// NewLocal 创建进程内 Locker.
func NewLocal(opts Options) *LocalLocker {
	return &LocalLocker{held: make(map[string]localEntry), opts: opts}
}

// Obtain 获取锁，按 RetryCount/RetryBackoff 重试.
func (l *LocalLocker) Obtain(ctx context.Context, key string) (Lock, error) {
	for attempt := 0; ; attempt++ {
		if lk, ok := l.tryObtain(key); ok {
			return lk, nil
		}

		if attempt >= l.opts.RetryCount {
			return nil, ErrNotObtained
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.opts.RetryBackoff):
		}
	}
}

func (l *LocalLocker) tryObtain(key string) (*localLock, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if e, ok := l.held[key]; ok && (e.expireAt.IsZero() || now.Before(e.expireAt)) {
		return nil, false
	}

	l.token++

	e := localEntry{token: l.token}
	if l.opts.TTL > 0 {
		e.expireAt = now.Add(l.opts.TTL)
	}

	l.held[key] = e

	return &localLock{owner: l, key: key, token: e.token}, true
}

// Close 释放全部锁.
func (l *LocalLocker) Close() error {
	l.mu.Lock()
	l.held = make(map[string]localEntry)
	l.mu.Unlock()

	return nil
}

type localLock struct {
	owner *LocalLocker
	key   string
	token uint64
}

func (k *localLock) Key() string { return k.key }

// Release 仅释放自己持有的锁，过期后被他人取得的锁不受影响.
func (k *localLock) Release(context.Context) error {
	k.owner.mu.Lock()
	defer k.owner.mu.Unlock()

	if e, ok := k.owner.held[k.key]; ok && e.token == k.token {
		delete(k.owner.held, k.key)
	}

	return nil
}
