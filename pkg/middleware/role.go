package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Role 请求方角色，数值越大权限越高.
type Role int

const (
	RoleUser Role = iota + 1
	RoleOperator
	RoleAdmin
)

// String 返回角色名称.
func (r Role) String() string {
	switch r {
	case RoleAdmin:
		return "admin"
	case RoleOperator:
		return "operator"
	default:
		return "user"
	}
}

const roleCtxKey = "role"

// ParseRole 解析角色，未知值降级为 user.
func ParseRole(s string) Role {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "admin":
		return RoleAdmin
	case "operator":
		return RoleOperator
	default:
		return RoleUser
	}
}

// RoleMiddleware 解析 X-Role（由网关注入）. 缺省为 user.
func RoleMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(roleCtxKey, ParseRole(c.GetHeader("X-Role")))
		c.Next()
	}
}

// GetRole 返回当前请求角色.
func GetRole(c *gin.Context) Role {
	if v, ok := c.Get(roleCtxKey); ok {
		if r, ok := v.(Role); ok {
			return r
		}
	}

	return RoleUser
}

// RequireMinRole 角色不足时返回 403，用于调度器等运维接口.
func RequireMinRole(minRole Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetRole(c) < minRole {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden: requires " + minRole.String()})

			return
		}

		c.Next()
	}
}
