package configs

import (
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultPort              = 8080
	DefaultHost              = "0.0.0.0"
	DefaultReadHeaderTimeout = 10 // 秒
	DefaultShutdownTimeout   = 30 // 秒，等待进行中的上传与导出结束
)

// ServerConfig HTTP 服务配置.
//
// 上传大文件与导出报表耗时不定，因此只限制读取请求头的时间，不设置整体读写超时.
type ServerConfig struct {
	Port              int    `mapstructure:"port"                rule:"min=1,max=65535"`
	Host              string `mapstructure:"host"                rule:"ip"`
	ReloadConfig      bool   `mapstructure:"reload_config"`
	Debug             bool   `mapstructure:"debug"` // 开启 Swagger、宽松 CORS，并保留 gin 调试输出
	ReadHeaderTimeout int    `mapstructure:"read_header_timeout" rule:"min=1,max=300"`
	ShutdownTimeout   int    `mapstructure:"shutdown_timeout"    rule:"min=1,max=600"`
}

// GetReadHeaderTimeout 读取请求头超时.
func (s *ServerConfig) GetReadHeaderTimeout() time.Duration {
	return time.Duration(s.ReadHeaderTimeout) * time.Second
}

// GetShutdownTimeout 优雅关闭等待时间.
func (s *ServerConfig) GetShutdownTimeout() time.Duration {
	return time.Duration(s.ShutdownTimeout) * time.Second
}

func (s *ServerConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", DefaultPort)
	v.SetDefault("server.host", DefaultHost)
	v.SetDefault("server.reload_config", true)
	v.SetDefault("server.debug", false)
	v.SetDefault("server.read_header_timeout", DefaultReadHeaderTimeout)
	v.SetDefault("server.shutdown_timeout", DefaultShutdownTimeout)
}
