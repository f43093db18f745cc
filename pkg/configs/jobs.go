package configs

import "github.com/spf13/viper"

// JobsConfig 定时任务配置，表达式为 5 段 cron.
type JobsConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	LookupRefresh  string `mapstructure:"lookup_refresh"  rule:"required"` // 刷新参考数据快照
	PendingAnalyze string `mapstructure:"pending_analyze" rule:"required"` // 补跑尚无汇总的文件
	PendingLimit   int    `mapstructure:"pending_limit"   rule:"min=1,max=1000"`
}

func (c *JobsConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("jobs.enabled", true)
	v.SetDefault("jobs.lookup_refresh", "*/10 * * * *")
	v.SetDefault("jobs.pending_analyze", "*/30 * * * *")
	v.SetDefault("jobs.pending_limit", 10)
}
