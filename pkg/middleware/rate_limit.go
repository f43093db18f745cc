package middleware

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/hsk3232/DevelopProject/pkg/configs"
)

const (
	limiterSweepInterval = 10 * time.Minute
	limiterIdleAfter     = 30 * time.Minute
)

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// keyedLimiters 按键维护令牌桶，闲置条目定期清理.
type keyedLimiters struct {
	mu      sync.Mutex
	entries map[string]*limiterEntry
	rps     rate.Limit
	burst   int
}

func (k *keyedLimiters) get(key string) *rate.Limiter {
	k.mu.Lock()
	defer k.mu.Unlock()

	e, ok := k.entries[key]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(k.rps, k.burst)}
		k.entries[key] = e
	}

	e.lastSeen = time.Now()

	return e.limiter
}

func (k *keyedLimiters) sweep() {
	ticker := time.NewTicker(limiterSweepInterval)
	defer ticker.Stop()

	for now := range ticker.C {
		k.mu.Lock()

		for key, e := range k.entries {
			if now.Sub(e.lastSeen) > limiterIdleAfter {
				delete(k.entries, key)
			}
		}

		k.mu.Unlock()
	}
}

// RateLimitMiddleware 按配置限流. key 取值：
//   - global：全局一个令牌桶
//   - ip：按客户端 IP
//   - user：按 AuthMiddleware 识别的用户，未识别时退回 IP
//   - header:<Name>：按请求头，缺失时退回 IP
func RateLimitMiddleware(cfg configs.RateLimitConfig) gin.HandlerFunc {
	if !cfg.Enabled || cfg.RPS <= 0 {
		return func(c *gin.Context) { c.Next() }
	}

	mode := strings.ToLower(strings.TrimSpace(cfg.Key))

	if mode == "" || mode == "global" {
		limiter := rate.NewLimiter(rate.Limit(cfg.RPS), cfg.Burst)

		return func(c *gin.Context) {
			if !limiter.Allow() {
				c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})

				return
			}

			c.Next()
		}
	}

	limiters := &keyedLimiters{entries: map[string]*limiterEntry{}, rps: rate.Limit(cfg.RPS), burst: cfg.Burst}
	go limiters.sweep()

	return func(c *gin.Context) {
		if !limiters.get(limitKey(c, mode)).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests,
				gin.H{"error": "rate limit exceeded, please try again later"})

			return
		}

		c.Next()
	}
}

func limitKey(c *gin.Context, mode string) string {
	var key string

	switch {
	case mode == "user":
		key = GetUser(c)
	case strings.HasPrefix(mode, "header:"):
		key = c.GetHeader(strings.TrimPrefix(mode, "header:"))
	}

	if key == "" {
		key = c.ClientIP()
	}

	if key == "" {
		key = "unknown"
	}

	return key
}
