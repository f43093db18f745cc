package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/hsk3232/DevelopProject/pkg/configs"
)

// 身份请求头，按顺序读取.
var identityHeaders = []string{"X-Auth-Request-Email", "X-Forwarded-Email", "X-User"}

const userCtxKey = "user"

type userKey struct{}

// AuthMiddleware 识别请求用户并注入 context.
//   - 依次读取 oauth2-proxy 注入的 X-Auth-Request-Email、X-Forwarded-Email 以及 X-User
//   - 配置的跳过路径（如 /metrics、/api/v1/health）不做校验
//   - dev_allow_query 开启时允许 ?user= 兜底，便于本地调试与浏览器 WebSocket 连接
func AuthMiddleware(conf configs.AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := identity(c, conf.DevAllowQuery)
		if user != "" {
			SetUser(c, user)
		}

		if !conf.Enabled || isSkippedPath(c.Request.URL.Path, conf.SkipPaths) {
			c.Next()

			return
		}

		if user == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})

			return
		}

		c.Next()
	}
}

func identity(c *gin.Context, allowQuery bool) string {
	for _, h := range identityHeaders {
		if v := strings.TrimSpace(c.GetHeader(h)); v != "" {
			return v
		}
	}

	if allowQuery {
		return strings.TrimSpace(c.Query("user"))
	}

	return ""
}

// SetUser 在 gin 与请求 context 中记录用户.
func SetUser(c *gin.Context, user string) {
	c.Set(userCtxKey, user)
	c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), userKey{}, user))
}

// GetUser 返回 AuthMiddleware 识别出的用户，未识别时为空.
func GetUser(c *gin.Context) string {
	if v, ok := c.Get(userCtxKey); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}

	if s, ok := c.Request.Context().Value(userKey{}).(string); ok {
		return s
	}

	return ""
}

func isSkippedPath(path string, skips []string) bool {
	if path == "" {
		return false
	}

	for _, p := range skips {
		if p = strings.TrimSpace(p); p != "" && strings.HasPrefix(path, p) {
			return true
		}
	}

	return false
}
