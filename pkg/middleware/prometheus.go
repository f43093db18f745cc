package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hsk3232/DevelopProject/pkg/metrics"
)

// PrometheusMiddleware 记录请求数与耗时. endpoint 使用路由模板（如 /api/v1/files/:id/summary），
// 避免文件 id 进入标签.
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}

		metrics.RequestCounter.WithLabelValues(c.Request.Method, endpoint).Inc()
		metrics.RequestDuration.WithLabelValues(c.Request.Method, endpoint).Observe(time.Since(start).Seconds())
	}
}
