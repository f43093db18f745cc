// Package context 在请求 context 中传递存储管理器，并为日志附加追踪信息.
//
// 处理器只依赖本包的取值函数，管理器或对应后端缺失时返回零值，由调用方决定返回 503 还是降级.
package context

import (
	"context"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"

	"github.com/hsk3232/DevelopProject/pkg/internal/storage"
	dbc "github.com/hsk3232/DevelopProject/pkg/internal/storage/db"
	kvc "github.com/hsk3232/DevelopProject/pkg/internal/storage/kv"
	lockc "github.com/hsk3232/DevelopProject/pkg/internal/storage/lock"
	mqc "github.com/hsk3232/DevelopProject/pkg/internal/storage/mq"
	s3c "github.com/hsk3232/DevelopProject/pkg/internal/storage/s3"
)

type ContextKey string

const StorageManagerKey ContextKey = "storageManager"

// WithStorageManager 将 Manager 存入 context.
func WithStorageManager(ctx context.Context, mgr *storage.Manager) context.Context {
	return context.WithValue(ctx, StorageManagerKey, mgr)
}

// GetManager 取出 Manager，未注入时为 nil.
func GetManager(ctx context.Context) *storage.Manager {
	mgr, _ := ctx.Value(StorageManagerKey).(*storage.Manager)

	return mgr
}

func fromManager[T any](ctx context.Context, get func(*storage.Manager) T) T {
	if mgr := GetManager(ctx); mgr != nil {
		return get(mgr)
	}

	var zero T

	return zero
}

// GetS3Client 原始 CSV 所在的对象存储.
func GetS3Client(ctx context.Context) *s3c.Client {
	return fromManager(ctx, (*storage.Manager).GetS3Client)
}

// GetDBClient 事件与分析结果所在的数据库.
func GetDBClient(ctx context.Context) *dbc.Client {
	return fromManager(ctx, (*storage.Manager).GetDBClient)
}

// GetMQClient 导入与分析事件的消息队列.
func GetMQClient(ctx context.Context) *mqc.Client {
	return fromManager(ctx, (*storage.Manager).GetMQClient)
}

// GetKVClient 参考数据快照与响应缓存使用的 KV.
func GetKVClient(ctx context.Context) *kvc.Client {
	return fromManager(ctx, (*storage.Manager).GetKVClient)
}

// GetLocker 文件级分析锁.
func GetLocker(ctx context.Context) lockc.Locker {
	return fromManager(ctx, (*storage.Manager).GetLocker)
}

// WithTraceContext 当前 span 在记录时为 logger 附加 trace_id 与 span_id.
func WithTraceContext(ctx context.Context, logger zerolog.Logger) zerolog.Logger {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() || !trace.SpanFromContext(ctx).IsRecording() {
		return logger
	}

	return logger.With().
		Str("trace_id", sc.TraceID().String()).
		Str("span_id", sc.SpanID().String()).
		Logger()
}
