package configs

import (
	"time"

	"github.com/spf13/viper"
)

// CircuitBreakerConfig 熔断配置，HTTP 入口与评分服务客户端共用同一组阈值.
type CircuitBreakerConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	FailureRate       float64 `mapstructure:"failure_rate"         rule:"gt=0,lte=1"` // 窗口内失败比例阈值
	MinRequests       uint32  `mapstructure:"min_requests"         rule:"min=1"`      // 达到该请求数才判断
	IntervalSeconds   int     `mapstructure:"interval_seconds"     rule:"min=0"`      // 闭合状态计数清零周期，0 表示不清零
	TimeoutSeconds    int     `mapstructure:"timeout_seconds"      rule:"min=1"`      // 打开后转为半开的等待时间
	MaxRequestsInHalf uint32  `mapstructure:"max_requests_in_half" rule:"min=1"`
}

// GetInterval 计数清零周期.
func (c *CircuitBreakerConfig) GetInterval() time.Duration {
	return time.Duration(c.IntervalSeconds) * time.Second
}

// GetTimeout 打开状态持续时间.
func (c *CircuitBreakerConfig) GetTimeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// ShouldTrip 请求数达到下限且失败比例不低于阈值时熔断.
func (c *CircuitBreakerConfig) ShouldTrip(requests, failures uint32) bool {
	if requests == 0 || requests < c.MinRequests {
		return false
	}

	return float64(failures)/float64(requests) >= c.FailureRate
}

func (c *CircuitBreakerConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("circuit_breaker.enabled", false)
	v.SetDefault("circuit_breaker.failure_rate", 0.5)
	v.SetDefault("circuit_breaker.min_requests", 10)
	v.SetDefault("circuit_breaker.interval_seconds", 60)
	v.SetDefault("circuit_breaker.timeout_seconds", 30)
	v.SetDefault("circuit_breaker.max_requests_in_half", 2)
}
