// Package middleware 提供 HTTP 中间件：身份识别、依赖注入、限流、熔断、缓存、日志、指标与追踪.
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	nlog "github.com/hsk3232/DevelopProject/pkg/log"
)

// RecoveryMiddleware 捕获处理器 panic，记录日志并返回 500.
func RecoveryMiddleware() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		nlog.Component("http").Error().
			Interface("panic", recovered).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Msg("handler panicked")

		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	})
}
