package middleware

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/gin-gonic/gin"

	appcache "github.com/hsk3232/DevelopProject/pkg/cache"
	nlog "github.com/hsk3232/DevelopProject/pkg/log"
)

const (
	// DefaultMaxBodyBytes 超过该大小的响应不缓存.
	DefaultMaxBodyBytes = 1 << 20
	// DefaultCacheTTL 分析结果读取的默认缓存时长.
	DefaultCacheTTL = 15 * time.Second
	// BypassHeader 请求带有该头时跳过缓存.
	BypassHeader = "X-Cache-Bypass"
)

// CacheConfig 响应缓存配置.
type CacheConfig struct {
	Cache        *appcache.Cache
	TTL          time.Duration
	MaxBodyBytes int
}

// cachedResponse 缓存条目.
type cachedResponse struct {
	Status      int    `json:"s"`
	ContentType string `json:"c,omitempty"`
	Body        []byte `json:"b,omitempty"`
	ETag        string `json:"e"`
	StoredAt    int64  `json:"t"`
}

// CacheMiddleware 缓存 GET 请求的 200 JSON 响应（统计、异常列表），键包含用户、路由与排序后的查询参数.
// 命中时支持 If-None-Match 返回 304. 重新分析后的新结果在 TTL 过期后可见.
func CacheMiddleware(cfg CacheConfig) gin.HandlerFunc {
	if cfg.Cache == nil {
		return func(c *gin.Context) { c.Next() }
	}

	if cfg.TTL <= 0 {
		cfg.TTL = DefaultCacheTTL
	}

	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}

	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet || c.GetHeader(BypassHeader) != "" {
			c.Next()

			return
		}

		key := responseKey(c)
		if serveCached(c, cfg.Cache, key) {
			return
		}

		w := &bodyCaptureWriter{ResponseWriter: c.Writer, max: cfg.MaxBodyBytes}
		c.Writer = w

		c.Next()

		if c.Writer.Status() != http.StatusOK || w.truncated {
			return
		}

		entry := cachedResponse{
			Status:      http.StatusOK,
			ContentType: c.Writer.Header().Get("Content-Type"),
			Body:        bytes.Clone(w.buf.Bytes()),
			ETag:        etag(w.buf.Bytes()),
			StoredAt:    time.Now().UnixNano(),
		}

		ctx := context.WithoutCancel(c.Request.Context())
		go func() {
			if err := appcache.Set(ctx, cfg.Cache, key, entry, cfg.TTL); err != nil {
				nlog.Component("http").Debug().Err(err).Str("key", key).Msg("缓存响应失败")
			}
		}()
	}
}

func responseKey(c *gin.Context) string {
	var b strings.Builder

	route := c.FullPath()
	if route == "" {
		route = c.Request.URL.Path
	}

	b.WriteString(GetUser(c))
	b.WriteByte('|')
	b.WriteString(route)

	for _, p := range c.Params {
		b.WriteByte('|')
		b.WriteString(p.Key)
		b.WriteByte('=')
		b.WriteString(p.Value)
	}

	if q := c.Request.URL.Query(); len(q) > 0 {
		keys := make([]string, 0, len(q))
		for k := range q {
			keys = append(keys, k)
		}

		sort.Strings(keys)

		for _, k := range keys {
			b.WriteByte('&')
			b.WriteString(k)
			b.WriteByte('=')
			b.WriteString(strings.Join(q[k], ","))
		}
	}

	return fmt.Sprintf("rc:%x", xxhash.Sum64String(b.String()))
}

func etag(body []byte) string {
	return fmt.Sprintf("%q", fmt.Sprintf("%x", xxhash.Sum64(body)))
}

func serveCached(c *gin.Context, cache *appcache.Cache, key string) bool {
	entry, err := appcache.Get[cachedResponse](c.Request.Context(), cache, key)
	if err != nil {
		return false
	}

	h := c.Writer.Header()
	h.Set("ETag", entry.ETag)
	h.Set("Age", fmt.Sprintf("%.0f", time.Since(time.Unix(0, entry.StoredAt)).Seconds()))
	h.Set("X-Cache", "HIT")

	if c.GetHeader("If-None-Match") == entry.ETag {
		c.AbortWithStatus(http.StatusNotModified)

		return true
	}

	c.Data(entry.Status, entry.ContentType, entry.Body)
	c.Abort()

	return true
}

// bodyCaptureWriter 复制响应体，超过 max 后停止复制.
type bodyCaptureWriter struct {
	gin.ResponseWriter

	buf       bytes.Buffer
	max       int
	truncated bool
}

func (w *bodyCaptureWriter) Write(b []byte) (int, error) {
	if !w.truncated {
		if w.buf.Len()+len(b) > w.max {
			w.truncated = true
		} else {
			w.buf.Write(b)
		}
	}

	if !w.truncated && w.buf.Len() == len(b) {
		w.Header().Set("ETag", etag(b))
		w.Header().Set("X-Cache", "MISS")
	}

	return w.ResponseWriter.Write(b)
}

// WriteString gin 的 JSON 渲染会走 Write，这里保持一致.
func (w *bodyCaptureWriter) WriteString(s string) (int, error) {
	return w.Write([]byte(s))
}
