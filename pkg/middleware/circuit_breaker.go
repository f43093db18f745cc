package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sony/gobreaker"

	"github.com/hsk3232/DevelopProject/pkg/configs"
)

var errServerStatus = errors.New("handler returned 5xx")

// CircuitBreakerMiddleware 以 5xx 比例为依据的熔断，打开时直接返回 503.
// WebSocket 升级请求不经过熔断器.
func CircuitBreakerMiddleware(cfg configs.CircuitBreakerConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) { c.Next() }
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "epcguard-http",
		MaxRequests: cfg.MaxRequestsInHalf,
		Interval:    cfg.GetInterval(),
		Timeout:     cfg.GetTimeout(),
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return cfg.ShouldTrip(counts.Requests, counts.TotalFailures)
		},
	})

	return func(c *gin.Context) {
		if c.IsWebsocket() {
			c.Next()

			return
		}

		_, err := cb.Execute(func() (any, error) {
			c.Next()

			if c.Writer.Status() >= http.StatusInternalServerError {
				return nil, errServerStatus
			}

			return nil, nil
		})

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "service temporarily unavailable"})
		}
	}
}
