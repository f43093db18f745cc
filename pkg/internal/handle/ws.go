package handle

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hsk3232/DevelopProject/pkg/configs"
	"github.com/hsk3232/DevelopProject/pkg/internal/notify"
	nlog "github.com/hsk3232/DevelopProject/pkg/log"
	"github.com/hsk3232/DevelopProject/pkg/middleware"
)

// ProgressSocket 升级为 WebSocket，推送当前用户的导入与分析进度.
//
//	@Summary		进度推送
//	@Tags			分析
//	@Router			/api/v1/ws [get]
func ProgressSocket(c *gin.Context) {
	hub := middleware.GetHub(c)
	if hub == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "websocket disabled"})

		return
	}

	user, err := checkUser(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})

		return
	}

	ws := configs.GetConfig().Events.WebSocket

	up := notify.Upgrader(ws.AllowedOrigins)
	if err := hub.Serve(up, c.Writer, c.Request, user, time.Duration(ws.PingSeconds)*time.Second); err != nil {
		// Upgrade 失败时已写出响应
		nlog.Component("ws").Warn().Err(err).Str("user", user).Msg("websocket upgrade failed")
	}
}
