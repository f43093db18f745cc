// Package handle 提供 HTTP 请求处理器的实现.
package handle

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	ctxPkg "github.com/hsk3232/DevelopProject/pkg/context"
	"github.com/hsk3232/DevelopProject/pkg/internal/errs"
	"github.com/hsk3232/DevelopProject/pkg/internal/service"
	nlog "github.com/hsk3232/DevelopProject/pkg/log"
	"github.com/hsk3232/DevelopProject/pkg/middleware"
	"github.com/hsk3232/DevelopProject/pkg/rule"
)

// DefaultUser 非 release 模式下未识别到用户时使用，便于本地调试.
const DefaultUser = "test-user@example.com"

// DefaultHandler 未实现的路由.
func DefaultHandler(c *gin.Context) {
	c.JSON(http.StatusNotImplemented, gin.H{"message": "Not Implemented"})
}

func checkUser(c *gin.Context) (string, error) {
	user := middleware.GetUser(c)
	if user == "" && gin.Mode() != gin.ReleaseMode {
		user = DefaultUser
	}

	if err := rule.ValidateVar(user, "required,notblank,max=255"); err != nil {
		return "", err
	}

	return user, nil
}

// fileID 解析路径参数 :id.
func fileID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid file id"})

		return 0, false
	}

	return uint(id), true
}

// statusOf 将业务错误映射为 HTTP 状态码.
func statusOf(err error) int {
	switch {
	case errors.Is(err, errs.ErrFileNotFound), errors.Is(err, service.ErrSummaryNotReady):
		return http.StatusNotFound
	case errors.Is(err, service.ErrUnsupportedFile),
		errors.Is(err, service.ErrEmptyFile),
		errors.Is(err, errs.ErrInvalidFormat):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, errs.ErrAnalysisLocked):
		return http.StatusConflict
	case errors.Is(err, service.ErrStorageDisabled), errors.Is(err, service.ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// abortWithError 写错误响应，5xx 记录 error 级别日志.
func abortWithError(c *gin.Context, err error, msg string) {
	status := statusOf(err)

	logger := ctxPkg.WithTraceContext(c.Request.Context(), *nlog.Component("http"))

	ev := logger.Warn()
	if status >= http.StatusInternalServerError {
		ev = logger.Error()
	}

	ev.Err(err).Str("path", c.FullPath()).Int("status", status).Msg(msg)

	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}
