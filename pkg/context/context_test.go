package context_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	ctxPkg "github.com/hsk3232/DevelopProject/pkg/context"
	"github.com/hsk3232/DevelopProject/pkg/internal/storage"
	"github.com/hsk3232/DevelopProject/pkg/internal/storage/lock"
)

func TestGettersWithoutManager(t *testing.T) {
	ctx := context.Background()

	assert.Nil(t, ctxPkg.GetManager(ctx))
	assert.Nil(t, ctxPkg.GetDBClient(ctx))
	assert.Nil(t, ctxPkg.GetKVClient(ctx))
	assert.Nil(t, ctxPkg.GetLocker(ctx))
}

func TestGetLockerFromManager(t *testing.T) {
	locker := lock.NewLocal(lock.Options{TTL: time.Minute})
	ctx := ctxPkg.WithStorageManager(context.Background(), &storage.Manager{Lock: locker})

	got := ctxPkg.GetLocker(ctx)
	require.NotNil(t, got)

	l, err := got.Obtain(ctx, lock.FileKey(1))
	require.NoError(t, err)
	require.NoError(t, l.Release(ctx))
}

func TestWithTraceContext(t *testing.T) {
	var buf bytes.Buffer

	base := zerolog.New(&buf)

	ctxPkg.WithTraceContext(context.Background(), base).Info().Msg("plain")
	assert.NotContains(t, buf.String(), "trace_id")

	tp := sdktrace.NewTracerProvider()
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	defer span.End()

	buf.Reset()
	ctxPkg.WithTraceContext(ctx, base).Info().Msg("traced")
	assert.Contains(t, buf.String(), span.SpanContext().TraceID().String())
	assert.Contains(t, buf.String(), "span_id")
}
