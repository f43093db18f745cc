package router

import (
	"github.com/gin-gonic/gin"

	"github.com/hsk3232/DevelopProject/pkg/internal/handle"
	"github.com/hsk3232/DevelopProject/pkg/middleware"
)

// RegisterSchedulerRoutes 注册调度器路由，修改操作需要 admin 角色.
func RegisterSchedulerRoutes(g *gin.RouterGroup) {
	sched := g.Group("/scheduler")
	{
		sched.GET("/jobs", handle.SchedulerJobs)
		sched.GET("/queue/waiting", handle.SchedulerQueueWaiting)

		admin := sched.Group("", middleware.RequireMinRole(middleware.RoleAdmin))
		admin.POST("/jobs/stop", handle.SchedulerStopJobs)
		admin.POST("/jobs/:id/run", handle.SchedulerRunJob)
		admin.DELETE("/jobs/:id", handle.SchedulerRemoveJob)
	}
}
