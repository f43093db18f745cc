package configs

import "github.com/spf13/viper"

// RateLimitConfig 接口限流配置.
//
// Key 取值：global、ip、user（按认证用户，未识别时退回 IP）、header:<Name>.
type RateLimitConfig struct {
	Enabled bool    `mapstructure:"enabled"`
	RPS     float64 `mapstructure:"rps"   rule:"gte=0"`
	Burst   int     `mapstructure:"burst" rule:"min=1"`
	Key     string  `mapstructure:"key"`
}

func (c *RateLimitConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("rate_limit.enabled", false)
	v.SetDefault("rate_limit.rps", 20.0)
	v.SetDefault("rate_limit.burst", 40)
	v.SetDefault("rate_limit.key", "user")
}
