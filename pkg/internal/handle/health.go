package handle

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	ctxPkg "github.com/hsk3232/DevelopProject/pkg/context"
)

const timeout = 2 * time.Second

const (
	healthCheckKey = "health:check"
	lockCheckKey   = "epcguard:health:lock"
)

// HealthDB 数据库健康检查.
//
//	@Summary	数据库健康检查
//	@Tags		健康检查
//	@Produce	json
//	@Success	200	{object}	map[string]string
//	@Failure	503	{object}	map[string]string
//	@Router		/api/v1/health/db [get]
func HealthDB(c *gin.Context) {
	dbc := ctxPkg.GetDBClient(c.Request.Context())
	if dbc == nil || dbc.DB == nil {
		unhealthy(c, "db", "db client not initialized")

		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
	defer cancel()

	sqlDB, err := dbc.DB.DB()
	if err != nil {
		unhealthy(c, "db", err.Error())

		return
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		unhealthy(c, "db", err.Error())

		return
	}

	c.JSON(http.StatusOK, gin.H{"component": "db", "status": "ok"})
}

// HealthS3 对象存储健康检查.
//
//	@Summary	对象存储健康检查
//	@Tags		健康检查
//	@Produce	json
//	@Success	200	{object}	map[string]string
//	@Failure	503	{object}	map[string]string
//	@Router		/api/v1/health/s3 [get]
func HealthS3(c *gin.Context) {
	s3c := ctxPkg.GetS3Client(c.Request.Context())
	if s3c == nil {
		unhealthy(c, "s3", "s3 client not initialized")

		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
	defer cancel()

	if err := s3c.HealthCheck(ctx); err != nil {
		unhealthy(c, "s3", err.Error())

		return
	}

	c.JSON(http.StatusOK, gin.H{"component": "s3", "status": "ok", "bucket": s3c.Bucket()})
}

// HealthMQ 消息队列健康检查.
//
//	@Summary	消息队列健康检查
//	@Tags		健康检查
//	@Produce	json
//	@Success	200	{object}	map[string]string
//	@Failure	503	{object}	map[string]string
//	@Router		/api/v1/health/mq [get]
func HealthMQ(c *gin.Context) {
	mqc := ctxPkg.GetMQClient(c.Request.Context())
	if mqc == nil {
		unhealthy(c, "mq", "mq client not initialized")

		return
	}

	c.JSON(http.StatusOK, gin.H{"component": "mq", "status": "ok", "type": mqc.Type()})
}

// HealthKV 键值存储健康检查，写入并读回一个短期检查键.
//
//	@Summary	键值存储健康检查
//	@Tags		健康检查
//	@Produce	json
//	@Success	200	{object}	map[string]string
//	@Failure	503	{object}	map[string]string
//	@Router		/api/v1/health/kv [get]
func HealthKV(c *gin.Context) {
	kvc := ctxPkg.GetKVClient(c.Request.Context())
	if kvc == nil {
		unhealthy(c, "kv", "kv client not initialized")

		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
	defer cancel()

	if err := kvc.Set(ctx, healthCheckKey, []byte("ok"), 10*time.Second); err != nil {
		unhealthy(c, "kv", err.Error())

		return
	}

	if _, err := kvc.Get(ctx, healthCheckKey); err != nil {
		unhealthy(c, "kv", err.Error())

		return
	}

	c.JSON(http.StatusOK, gin.H{"component": "kv", "status": "ok"})
}

// HealthLock 分析锁健康检查，获取并释放一个检查用的锁.
//
//	@Summary	分析锁健康检查
//	@Tags		健康检查
//	@Produce	json
//	@Success	200	{object}	map[string]string
//	@Failure	503	{object}	map[string]string
//	@Router		/api/v1/health/lock [get]
func HealthLock(c *gin.Context) {
	locker := ctxPkg.GetLocker(c.Request.Context())
	if locker == nil {
		unhealthy(c, "lock", "locker not initialized")

		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
	defer cancel()

	l, err := locker.Obtain(ctx, lockCheckKey)
	if err != nil {
		unhealthy(c, "lock", err.Error())

		return
	}

	if err := l.Release(ctx); err != nil {
		unhealthy(c, "lock", err.Error())

		return
	}

	c.JSON(http.StatusOK, gin.H{"component": "lock", "status": "ok"})
}

func unhealthy(c *gin.Context, component, msg string) {
	c.JSON(http.StatusServiceUnavailable, gin.H{"component": component, "status": "unhealthy", "error": msg})
}
