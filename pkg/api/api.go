// Package api 组装 HTTP 引擎：中间件链、业务路由、Swagger 与 /metrics.
package api

import (
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"

	"github.com/hsk3232/DevelopProject/pkg/cache"
	"github.com/hsk3232/DevelopProject/pkg/configs"
	"github.com/hsk3232/DevelopProject/pkg/internal/notify"
	"github.com/hsk3232/DevelopProject/pkg/internal/router"
	"github.com/hsk3232/DevelopProject/pkg/internal/service"
	"github.com/hsk3232/DevelopProject/pkg/internal/storage"
	"github.com/hsk3232/DevelopProject/pkg/metrics"
	"github.com/hsk3232/DevelopProject/pkg/middleware"
	"github.com/hsk3232/DevelopProject/pkg/scheduler"
)

// ResponseCacheNamespace HTTP 响应缓存在 KV 中的命名空间.
const ResponseCacheNamespace = "resp"

// Deps 引擎依赖. Hub 与 Scheduler 可为 nil.
type Deps struct {
	Config    *configs.AppConfig
	Manager   *storage.Manager
	Runtime   *service.Runtime
	Hub       *notify.Hub
	Scheduler *scheduler.Scheduler
}

// NewEngine 创建 gin 引擎并注册全部路由.
func NewEngine(d Deps) *gin.Engine {
	cfg := d.Config
	engine := gin.New()

	engine.Use(
		middleware.RecoveryMiddleware(),
		middleware.GinLoggerMiddleware(),
		middleware.TracingMiddleware(),
		middleware.PrometheusMiddleware(),
		middleware.CORSMiddleware(cfg),
		// xlsx 本身已压缩，WebSocket 不能包装
		gzip.Gzip(gzip.DefaultCompression,
			gzip.WithExcludedExtensions([]string{".xlsx"}),
			gzip.WithExcludedPathsRegexs([]string{`/export$`, `/ws$`}),
		),
		middleware.AuthMiddleware(cfg.Auth),
		middleware.RoleMiddleware(),
		// 认证之后限流，key=user 才能取到用户
		middleware.RateLimitMiddleware(cfg.RateLimit),
		middleware.CircuitBreakerMiddleware(cfg.CircuitBreaker),
		middleware.StorageMiddleware(d.Manager),
		middleware.RuntimeMiddleware(d.Runtime),
		middleware.HubMiddleware(d.Hub),
		middleware.SchedulerMiddleware(d.Scheduler),
	)

	var opts router.Options

	if kv := d.Manager.GetKVClient(); kv != nil && cfg.KV.ResponseCacheSeconds > 0 {
		opts.ReadCache = middleware.CacheMiddleware(middleware.CacheConfig{
			Cache: cache.NewCache(kv, cache.WithNamespace(ResponseCacheNamespace)),
			TTL:   cfg.KV.GetResponseCacheTTL(),
		})
	}

	router.Register(engine, opts)
	router.RegisterSwaggerRoute(engine)

	_ = metrics.StartMetricsServer(cfg.Metrics, engine)

	return engine
}
