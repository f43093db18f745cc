package configs

import (
	"github.com/spf13/viper"
)

const (
	DefaultIngestChunkSize     = 1000              // 每个导入批次的行数
	DefaultIngestMaxUploadMB   = 512               // 单个上传文件最大尺寸（MB）
	DefaultIngestEventTimeFmt  = "2006-01-02 15:04:05"
	DefaultIngestExpiryDateFmt = "20060102"
)

// IngestConfig CSV 导入配置.
type IngestConfig struct {
	ChunkSize     int    `mapstructure:"chunk_size"      rule:"min=1,max=100000"`
	MaxUploadMB   int    `mapstructure:"max_upload_mb"   rule:"min=1"`
	EventTimeFmt  string `mapstructure:"event_time_fmt"  rule:"required"`
	ExpiryDateFmt string `mapstructure:"expiry_date_fmt" rule:"required"`
	AutoAnalyze   bool   `mapstructure:"auto_analyze"` // 导入完成后立即触发分析
	TimeZone      string `mapstructure:"time_zone"`    // 解析事件时间使用的时区，空表示 Local
}

// GetMaxUploadBytes 返回上传大小上限（字节）.
func (c *IngestConfig) GetMaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) * 1024 * 1024
}

func (c *IngestConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("ingest.chunk_size", DefaultIngestChunkSize)
	v.SetDefault("ingest.max_upload_mb", DefaultIngestMaxUploadMB)
	v.SetDefault("ingest.event_time_fmt", DefaultIngestEventTimeFmt)
	v.SetDefault("ingest.expiry_date_fmt", DefaultIngestExpiryDateFmt)
	v.SetDefault("ingest.auto_analyze", true)
	v.SetDefault("ingest.time_zone", "")
}
