package configs

import (
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultAnalysisBatchSize      = 1000 // 行程与异常的批量写入大小
	DefaultHighConfidenceScore    = 0.95 // 高置信度评分阈值
	DefaultLookupTTLSeconds       = 600  // 参考数据快照缓存时长
	DefaultAnalysisTimeoutMinutes = 60   // 单次分析的超时时间
)

// AnalysisConfig 行程生成、规则检测与统计汇总配置.
type AnalysisConfig struct {
	BatchSize           int     `mapstructure:"batch_size"            rule:"min=1,max=100000"`
	HighConfidenceScore float64 `mapstructure:"high_confidence_score" rule:"gte=0,lte=1"`
	LookupTTLSeconds    int     `mapstructure:"lookup_ttl_seconds"    rule:"min=0"`
	TimeoutMinutes      int     `mapstructure:"timeout_minutes"       rule:"min=1"`
	ScoringEnabled      bool    `mapstructure:"scoring_enabled"` // 关闭后只运行规则检测
}

// GetLookupTTL 返回参考数据快照缓存时长.
func (c *AnalysisConfig) GetLookupTTL() time.Duration {
	return time.Duration(c.LookupTTLSeconds) * time.Second
}

// GetTimeout 返回单次分析的超时时间.
func (c *AnalysisConfig) GetTimeout() time.Duration {
	return time.Duration(c.TimeoutMinutes) * time.Minute
}

func (c *AnalysisConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("analysis.batch_size", DefaultAnalysisBatchSize)
	v.SetDefault("analysis.high_confidence_score", DefaultHighConfidenceScore)
	v.SetDefault("analysis.lookup_ttl_seconds", DefaultLookupTTLSeconds)
	v.SetDefault("analysis.timeout_minutes", DefaultAnalysisTimeoutMinutes)
	v.SetDefault("analysis.scoring_enabled", true)
}
