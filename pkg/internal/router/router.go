// Package router 管理 HTTP 路由，将路径绑定到 handle 包中的处理器.
package router

import "github.com/gin-gonic/gin"

// Options 路由注册选项.
type Options struct {
	// ReadCache 作用于统计与异常列表读取，为 nil 时不缓存
	ReadCache gin.HandlerFunc
}

// Register 在 /api/v1 下注册全部业务路由.
func Register(e *gin.Engine, opts Options) *gin.RouterGroup {
	v1 := e.Group("/api/v1")

	RegisterFilesRoutes(v1, opts.ReadCache)
	RegisterEventsRoutes(v1)
	RegisterHealthCheckRoute(v1)
	RegisterSchedulerRoutes(v1)

	return v1
}
