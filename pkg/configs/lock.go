package configs

import (
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultLockTTLSeconds   = 1800 // 单个文件分析锁的持有时长
	DefaultLockRetryCount   = 0    // 获取锁失败后的重试次数
	DefaultLockRetryBackoff = 500  // 重试间隔（毫秒）
)

// LockConfig 文件级分析互斥锁配置，type=redis 时跨进程生效.
type LockConfig struct {
	Type           string        `mapstructure:"type"             rule:"oneof=local redis"`
	Redis          RedisKVConfig `mapstructure:"redis"`
	TTLSeconds     int           `mapstructure:"ttl_seconds"      rule:"min=1"`
	RetryCount     int           `mapstructure:"retry_count"      rule:"min=0,max=100"`
	RetryBackoffMs int           `mapstructure:"retry_backoff_ms" rule:"min=0"`
}

// GetTTL 返回锁的持有时长.
func (c *LockConfig) GetTTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

// GetRetryBackoff 返回重试间隔.
func (c *LockConfig) GetRetryBackoff() time.Duration {
	return time.Duration(c.RetryBackoffMs) * time.Millisecond
}

func (c *LockConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("lock.type", "local")
	v.SetDefault("lock.redis.addr", "localhost:6379")
	v.SetDefault("lock.redis.password", "")
	v.SetDefault("lock.redis.db", 0)
	v.SetDefault("lock.ttl_seconds", DefaultLockTTLSeconds)
	v.SetDefault("lock.retry_count", DefaultLockRetryCount)
	v.SetDefault("lock.retry_backoff_ms", DefaultLockRetryBackoff)
}
