package lock_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hsk3232/DevelopProject/pkg/configs"
	"github.com/hsk3232/DevelopProject/pkg/internal/storage/lock"
)

func TestLocalLockExclusive(t *testing.T) {
	ctx := context.Background()
	l := lock.NewLocal(lock.Options{TTL: time.Minute})

	first, err := l.Obtain(ctx, lock.FileKey(7))
	require.NoError(t, err)
	assert.Equal(t, "epcguard:analysis:file:7", first.Key())

	_, err = l.Obtain(ctx, lock.FileKey(7))
	assert.ErrorIs(t, err, lock.ErrNotObtained)

	other, err := l.Obtain(ctx, lock.FileKey(8))
	require.NoError(t, err)
	require.NoError(t, other.Release(ctx))

	require.NoError(t, first.Release(ctx))

	again, err := l.Obtain(ctx, lock.FileKey(7))
	require.NoError(t, err)
	require.NoError(t, again.Release(ctx))
}

func TestLocalLockExpiry(t *testing.T) {
	ctx := context.Background()
	l := lock.NewLocal(lock.Options{TTL: 20 * time.Millisecond})

	stale, err := l.Obtain(ctx, "k")
	require.NoError(t, err)

	time.Sleep(40 * time.Millisecond)

	fresh, err := l.Obtain(ctx, "k")
	require.NoError(t, err)

	// 过期持有者的释放不影响新持有者
	require.NoError(t, stale.Release(ctx))

	_, err = l.Obtain(ctx, "k")
	assert.ErrorIs(t, err, lock.ErrNotObtained)

	require.NoError(t, fresh.Release(ctx))
}

func TestLocalLockRetry(t *testing.T) {
	ctx := context.Background()
	l := lock.NewLocal(lock.Options{TTL: time.Minute, RetryCount: 5, RetryBackoff: 10 * time.Millisecond})

	held, err := l.Obtain(ctx, "k")
	require.NoError(t, err)

	go func() {
		time.Sleep(15 * time.Millisecond)
		_ = held.Release(ctx)
	}()

	next, err := l.Obtain(ctx, "k")
	require.NoError(t, err)
	require.NoError(t, next.Release(ctx))
}

func TestNewFromConfig(t *testing.T) {
	l, err := lock.New(context.Background(), &configs.LockConfig{Type: "local", TTLSeconds: 1})
	require.NoError(t, err)
	assert.IsType(t, &lock.LocalLocker{}, l)

	_, err = lock.New(context.Background(), &configs.LockConfig{Type: "zookeeper"})
	assert.Error(t, err)
}
