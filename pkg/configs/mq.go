package configs

import (
	"github.com/spf13/viper"
)

// MQType 消息队列类型.
type MQType string

const (
	MQTypeNATS   MQType = "nats"
	MQTypeRedis  MQType = "redis"
	MQTypeMemory MQType = "memory" // 进程内 gochannel，单实例部署与测试使用
)

const (
	DefaultMQURL         = "localhost:4222"
	DefaultMQClientID    = "epcguard"
	DefaultMaxReconnects = 5     // 最大重连次数
	DefaultReconnectWait = 5     // 重连等待（秒）
	DefaultMaxPingsOut   = 3     // 未响应 ping 上限
	DefaultPingInterval  = 20    // ping 间隔（秒）
	DefaultBufferSize    = 32768 // NATS 重连缓冲 / gochannel 输出缓冲
)

// MQConfig 消息队列配置. 关闭时导入完成后在本进程内直接启动分析.
type MQConfig struct {
	Enabled bool           `mapstructure:"enabled"`
	Type    MQType         `mapstructure:"type"    rule:"oneof=nats redis memory"`
	Common  MQCommonConfig `mapstructure:"common"`
	NATS    MQNATSConfig   `mapstructure:"nats"`
	Redis   MQRedisConfig  `mapstructure:"redis"`
}

// MQCommonConfig 各后端共用的连接参数.
type MQCommonConfig struct {
	URL             string `mapstructure:"url"             rule:"required"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	ClientID        string `mapstructure:"client_id"       rule:"required"`
	MaxReconnects   int    `mapstructure:"max_reconnects"  rule:"min=0,max=100"`
	ReconnectWait   int    `mapstructure:"reconnect_wait"  rule:"min=1,max=300"`
	StrictConnect   bool   `mapstructure:"strict_connect"`
	MaxPingsOut     int    `mapstructure:"max_pings_out"   rule:"min=1,max=10"`
	PingInterval    int    `mapstructure:"ping_interval"   rule:"min=1,max=300"`
	ReconnectJitter bool   `mapstructure:"reconnect_jitter"`
	BufferSize      int    `mapstructure:"buffer_size"     rule:"min=1024,max=1048576"`
	EnableMetrics   bool   `mapstructure:"enable_metrics"`
}

// MQNATSConfig NATS 与 JetStream 参数.
type MQNATSConfig struct {
	JetStreamEnabled       bool     `mapstructure:"jetstream_enabled"`
	StreamName             string   `mapstructure:"stream_name"`
	JetStreamAutoProvision bool     `mapstructure:"jetstream_auto_provision"`
	JetStreamTrackMsgID    bool     `mapstructure:"jetstream_track_msg_id"`
	JetStreamAckAsync      bool     `mapstructure:"jetstream_ack_async"`
	JetStreamDurablePrefix string   `mapstructure:"jetstream_durable_prefix"`
	JWT                    string   `mapstructure:"jwt"`
	NKey                   string   `mapstructure:"nkey"`
	ClusterURLs            []string `mapstructure:"cluster_urls"`
	LoadBalance            bool     `mapstructure:"load_balance"`
}

// MQRedisConfig Redis Streams 参数.
type MQRedisConfig struct {
	Addr     string `mapstructure:"addr"     rule:"hostname_port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"       rule:"min=0,max=15"`
}

func (c *MQConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("mq.enabled", true)
	v.SetDefault("mq.type", MQTypeMemory)

	v.SetDefault("mq.common.url", DefaultMQURL)
	v.SetDefault("mq.common.client_id", DefaultMQClientID)
	v.SetDefault("mq.common.max_reconnects", DefaultMaxReconnects)
	v.SetDefault("mq.common.reconnect_wait", DefaultReconnectWait)
	v.SetDefault("mq.common.strict_connect", false)
	v.SetDefault("mq.common.max_pings_out", DefaultMaxPingsOut)
	v.SetDefault("mq.common.ping_interval", DefaultPingInterval)
	v.SetDefault("mq.common.reconnect_jitter", true)
	v.SetDefault("mq.common.buffer_size", DefaultBufferSize)
	v.SetDefault("mq.common.enable_metrics", true)

	// 导入与分析事件共用一个 stream，durable 前缀区分消费者
	v.SetDefault("mq.nats.jetstream_enabled", true)
	v.SetDefault("mq.nats.stream_name", "epcguard-events")
	v.SetDefault("mq.nats.jetstream_auto_provision", true)
	v.SetDefault("mq.nats.jetstream_track_msg_id", true)
	v.SetDefault("mq.nats.jetstream_ack_async", true)
	v.SetDefault("mq.nats.jetstream_durable_prefix", "epcguard-analysis")
	v.SetDefault("mq.nats.cluster_urls", []string{})
	v.SetDefault("mq.nats.load_balance", true)

	v.SetDefault("mq.redis.addr", "localhost:6379")
	v.SetDefault("mq.redis.db", 0)
}
