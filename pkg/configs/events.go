package configs

import "github.com/spf13/viper"

// EventsConfig 控制进度通知与领域事件的发布.
type EventsConfig struct {
	Enabled   bool            `mapstructure:"enabled"` // 总开关
	Publish   PublishConfig   `mapstructure:"publish"`
	WebSocket WebSocketConfig `mapstructure:"websocket"`
}

// PublishConfig 针对 MQ 主题的发布开关.
type PublishConfig struct {
	FileIngested bool `mapstructure:"file_ingested"` // 导入完成后发布，监听方据此触发分析
	Progress     bool `mapstructure:"progress"`      // 分析进度消息
	Completed    bool `mapstructure:"completed"`     // 分析完成/失败
}

// WebSocketConfig 进度推送的 WebSocket 配置.
type WebSocketConfig struct {
	Enabled        bool     `mapstructure:"enabled"`
	SendBuffer     int      `mapstructure:"send_buffer"      rule:"min=1,max=4096"`
	PingSeconds    int      `mapstructure:"ping_seconds"     rule:"min=1,max=600"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

func (c *EventsConfig) setDefaults(v *viper.Viper) {
	// 总开关：默认启用事件系统
	v.SetDefault("events.enabled", true)

	v.SetDefault("events.publish.file_ingested", true)
	v.SetDefault("events.publish.progress", true)
	v.SetDefault("events.publish.completed", true)

	v.SetDefault("events.websocket.enabled", true)
	v.SetDefault("events.websocket.send_buffer", 256)
	v.SetDefault("events.websocket.ping_seconds", 54)
	v.SetDefault("events.websocket.allowed_origins", []string{"*"})
}
