package configs

import (
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultScoringURL              = "http://localhost:8000/api/v1/analyze"
	DefaultScoringBatchSize        = 100
	DefaultScoringRetryMaxAttempts = 2
	DefaultScoringRetryDelayMs     = 1000
	DefaultScoringBatchDelayMs     = 200
	DefaultScoringConnectTimeoutMs = 5000
	DefaultScoringReadTimeoutMs    = 120000
)

// ScoringConfig 外部评分（AI）服务客户端配置.
type ScoringConfig struct {
	URL              string `mapstructure:"url"                rule:"required,notblank,url"`
	BatchSize        int    `mapstructure:"batch_size"         rule:"min=1"`
	RetryMaxAttempts int    `mapstructure:"retry_max_attempts" rule:"min=0"`
	RetryDelayMs     int64  `mapstructure:"retry_delay_ms"     rule:"min=0"`
	BatchDelayMs     int64  `mapstructure:"batch_delay_ms"     rule:"min=0"`
	ConnectTimeoutMs int    `mapstructure:"connect_timeout_ms" rule:"min=1"`
	ReadTimeoutMs    int    `mapstructure:"read_timeout_ms"    rule:"min=1"`
	Breaker          bool   `mapstructure:"breaker"` // 是否为评分请求启用熔断
}

// GetRetryDelay 返回重试间隔.
func (c *ScoringConfig) GetRetryDelay() time.Duration {
	return time.Duration(c.RetryDelayMs) * time.Millisecond
}

// GetBatchDelay 返回批次间隔.
func (c *ScoringConfig) GetBatchDelay() time.Duration {
	return time.Duration(c.BatchDelayMs) * time.Millisecond
}

// GetConnectTimeout 返回建立连接超时.
func (c *ScoringConfig) GetConnectTimeout() time.Duration {
	return time.Duration(c.ConnectTimeoutMs) * time.Millisecond
}

// GetReadTimeout 返回读取响应超时.
func (c *ScoringConfig) GetReadTimeout() time.Duration {
	return time.Duration(c.ReadTimeoutMs) * time.Millisecond
}

func (c *ScoringConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("scoring.url", DefaultScoringURL)
	v.SetDefault("scoring.batch_size", DefaultScoringBatchSize)
	v.SetDefault("scoring.retry_max_attempts", DefaultScoringRetryMaxAttempts)
	v.SetDefault("scoring.retry_delay_ms", DefaultScoringRetryDelayMs)
	v.SetDefault("scoring.batch_delay_ms", DefaultScoringBatchDelayMs)
	v.SetDefault("scoring.connect_timeout_ms", DefaultScoringConnectTimeoutMs)
	v.SetDefault("scoring.read_timeout_ms", DefaultScoringReadTimeoutMs)
	v.SetDefault("scoring.breaker", true)
}
