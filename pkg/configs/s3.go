package configs

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// S3Config MinIO S3存储配置，用于保存上传的原始 CSV.
type S3Config struct {
	Enabled         bool   `mapstructure:"enabled"`
	Endpoint        string `mapstructure:"endpoint"           rule:"required_if=Enabled true"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	BucketName      string `mapstructure:"bucket_name"        rule:"required_if=Enabled true"`
	Region          string `mapstructure:"region"`
	ObjectPrefix    string `mapstructure:"object_prefix"`
	PresignMinutes  int    `mapstructure:"presign_minutes"    rule:"min=1,max=10080"`
}

const (
	DefaultS3Enabled         = false            // 默认关闭对象存储
	DefaultS3Endpoint        = "localhost:9000" // 默认S3端点
	DefaultS3AccessKeyID     = "minioadmin"     // 默认访问密钥ID
	DefaultS3SecretAccessKey = "minioadmin"     // 默认秘密访问密钥
	DefaultS3UseSSL          = false            // 默认是否使用SSL
	DefaultS3BucketName      = "epcguard-csv"   // 默认存储桶名称
	DefaultS3Region          = "us-east-1"      // 默认区域
	DefaultS3ObjectPrefix    = "uploads/"       // 默认对象前缀
	DefaultS3PresignMinutes  = 15               // 默认下载链接有效期（分钟）
)

// GetEndpointURL 获取完整的端点URL.
func (c *S3Config) GetEndpointURL() string {
	scheme := "http"
	if c.UseSSL {
		scheme = "https"
	}

	return fmt.Sprintf("%s://%s", scheme, c.Endpoint)
}

// GetPresignExpiry 返回下载链接有效期.
func (c *S3Config) GetPresignExpiry() time.Duration {
	return time.Duration(c.PresignMinutes) * time.Minute
}

// setDefaults 设置 S3 配置的默认值.
func (c *S3Config) setDefaults(v *viper.Viper) {
	v.SetDefault("s3.enabled", DefaultS3Enabled)
	v.SetDefault("s3.endpoint", DefaultS3Endpoint)
	v.SetDefault("s3.access_key_id", DefaultS3AccessKeyID)
	v.SetDefault("s3.secret_access_key", DefaultS3SecretAccessKey)
	v.SetDefault("s3.use_ssl", DefaultS3UseSSL)
	v.SetDefault("s3.bucket_name", DefaultS3BucketName)
	v.SetDefault("s3.region", DefaultS3Region)
	v.SetDefault("s3.object_prefix", DefaultS3ObjectPrefix)
	v.SetDefault("s3.presign_minutes", DefaultS3PresignMinutes)
}
