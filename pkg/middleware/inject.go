package middleware

import (
	"context"

	"github.com/gin-gonic/gin"

	ctxPkg "github.com/hsk3232/DevelopProject/pkg/context"
	"github.com/hsk3232/DevelopProject/pkg/internal/notify"
	"github.com/hsk3232/DevelopProject/pkg/internal/service"
	"github.com/hsk3232/DevelopProject/pkg/internal/storage"
	"github.com/hsk3232/DevelopProject/pkg/scheduler"
)

// StorageMiddleware 将存储 Manager 注入请求 context.
func StorageMiddleware(manager *storage.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := ctxPkg.WithStorageManager(c.Request.Context(), manager)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// RuntimeMiddleware 将业务 Runtime 注入请求 context，service 包据此构造服务.
func RuntimeMiddleware(rt *service.Runtime) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request = c.Request.WithContext(service.WithRuntime(c.Request.Context(), rt))
		c.Next()
	}
}

type (
	schedulerKey struct{}
	hubKey       struct{}
)

// SchedulerMiddleware 将 scheduler 注入 context.
func SchedulerMiddleware(sched *scheduler.Scheduler) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := context.WithValue(c.Request.Context(), schedulerKey{}, sched)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// GetScheduler 从 context 中获取 scheduler.
func GetScheduler(c *gin.Context) *scheduler.Scheduler {
	if sched, ok := c.Request.Context().Value(schedulerKey{}).(*scheduler.Scheduler); ok {
		return sched
	}

	return nil
}

// HubMiddleware 将进度推送 Hub 注入 context.
func HubMiddleware(hub *notify.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := context.WithValue(c.Request.Context(), hubKey{}, hub)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// GetHub 从 context 中获取 Hub，未启用 WebSocket 时为 nil.
func GetHub(c *gin.Context) *notify.Hub {
	if hub, ok := c.Request.Context().Value(hubKey{}).(*notify.Hub); ok {
		return hub
	}

	return nil
}
