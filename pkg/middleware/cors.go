package middleware

import (
	"slices"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/hsk3232/DevelopProject/pkg/configs"
)

// CORSMiddleware 跨域配置，来源列表与 WebSocket 共用 events.websocket.allowed_origins.
func CORSMiddleware(cfg *configs.AppConfig) gin.HandlerFunc {
	config := cors.DefaultConfig()
	config.AllowWebSockets = true
	config.AllowFiles = true
	config.AllowHeaders = append(config.AllowHeaders, "Authorization", "X-User", "X-Role", "X-Cache-Bypass")
	config.ExposeHeaders = []string{"Content-Disposition", "ETag", "X-Cache"}

	origins := cfg.Events.WebSocket.AllowedOrigins
	if cfg.Server.Debug || len(origins) == 0 || slices.Contains(origins, "*") {
		config.AllowAllOrigins = true
	} else {
		config.AllowOrigins = origins
	}

	return cors.New(config)
}
