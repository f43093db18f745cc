package router

import (
	"github.com/gin-gonic/gin"

	"github.com/hsk3232/DevelopProject/pkg/internal/handle"
	"github.com/hsk3232/DevelopProject/pkg/middleware"
)

// RegisterFilesRoutes 注册文件上传与分析相关路由.
func RegisterFilesRoutes(g *gin.RouterGroup, readCache gin.HandlerFunc) {
	if readCache == nil {
		readCache = func(c *gin.Context) { c.Next() }
	}

	filesRoutes := g.Group("/files")
	{
		filesRoutes.POST("", handle.UploadFile)
		filesRoutes.GET("", handle.ListFiles)

		singleGroup := filesRoutes.Group("/:id")
		{
			singleGroup.GET("/download", handle.DownloadFile)
			singleGroup.GET("/export", handle.ExportReport)

			// 重新分析会清除已有结果
			singleGroup.POST("/analyze", middleware.RequireMinRole(middleware.RoleOperator), handle.AnalyzeFile)

			singleGroup.GET("/summary", readCache, handle.GetSummary)
			singleGroup.GET("/anomalies", readCache, handle.ListAnomalies)
		}
	}
}

// RegisterEventsRoutes 注册进度推送 WebSocket.
func RegisterEventsRoutes(g *gin.RouterGroup) {
	g.GET("/ws", handle.ProgressSocket)
}
