// Package configs 管理应用程序配置，包括数据库、对象存储、消息队列以及分析流水线的配置信息.
// configs 包支持多种配置格式（YAML、JSON、TOML、dotenv）并启用热重载.
//
// Example:
//
//	err := configs.InitConfig("./")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	config := configs.GetConfig()
//	fmt.Println(config.Server.Port)
//
// Example accessing Scoring config:
//
//	scoring := configs.GetConfig().Scoring
//	fmt.Println(scoring.URL, scoring.BatchSize)
//
// Example accessing Ingest config:
//
//	ingest := configs.GetConfig().Ingest
//	fmt.Println("chunk size:", ingest.ChunkSize)
package configs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/hsk3232/DevelopProject/pkg/rule"
)

// AppVersion 应用版本号.
const AppVersion = "1.0.0"

// EnvPrefix 环境变量前缀.
const EnvPrefix = "EPCGUARD"

type (
	// AppConfig 全局应用程序配置.
	AppConfig struct {
		Server         ServerConfig         `mapstructure:"server"`          // ServerConfig 服务器配置
		Log            LogConfig            `mapstructure:"log"`             // LogConfig 日志相关配置
		DB             DBConfig             `mapstructure:"db"`              // DBConfig 数据库配置
		S3             S3Config             `mapstructure:"s3"`              // S3Config 原始 CSV 对象存储
		MQ             MQConfig             `mapstructure:"mq"`              // MQConfig 消息队列配置
		KV             KVConfig             `mapstructure:"kv"`              // KVConfig 键值缓存配置
		Lock           LockConfig           `mapstructure:"lock"`            // LockConfig 分析任务分布式锁
		Metrics        MetricsConfig        `mapstructure:"metrics"`         // MetricsConfig 指标
		Tracing        TracingConfig        `mapstructure:"tracing"`         // TracingConfig 链路追踪
		CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"` // CircuitBreakerConfig HTTP 熔断
		RateLimit      RateLimitConfig      `mapstructure:"rate_limit"`      // RateLimitConfig HTTP 限流
		Auth           AuthConfig           `mapstructure:"auth"`            // AuthConfig 身份识别
		Events         EventsConfig         `mapstructure:"events"`          // EventsConfig 进度通知
		Ingest         IngestConfig         `mapstructure:"ingest"`          // IngestConfig CSV 导入
		Analysis       AnalysisConfig       `mapstructure:"analysis"`        // AnalysisConfig 规则检测与统计
		Scoring        ScoringConfig        `mapstructure:"scoring"`         // ScoringConfig 外部评分服务
		Jobs           JobsConfig           `mapstructure:"jobs"`            // JobsConfig 定时任务
	}
)

var (
	// globalConfig 全局配置实例.
	globalConfig AppConfig
	// appViper 全局 Viper 实例.
	appViper *viper.Viper
)

// InitConfig 加载应用程序配置，支持多种格式(yaml、json、toml、dotenv)并启用热重载.
// 目录下不存在配置文件时仅使用默认值与环境变量.
func InitConfig(path string) error {
	loadDotEnv(path)

	appViper = viper.New()
	// 设置默认值
	setAllDefaults(appViper)

	explicitFile := false

	// 检查path是否是文件
	if info, err := os.Stat(path); err == nil && !info.IsDir() {
		// 是文件，使用SetConfigFile，Viper会自动检测类型
		appViper.SetConfigFile(path)

		explicitFile = true
	} else {
		// 是目录，设置配置名和路径
		appViper.SetConfigName("config")
		appViper.AddConfigPath(path)
		appViper.AddConfigPath(filepath.Join(path, "configs"))

		for _, ext := range []string{"yaml", "yml", "json", "toml"} {
			cfg := filepath.Join(path, "config."+ext)
			if _, err := os.Stat(cfg); err == nil {
				appViper.SetConfigFile(cfg)

				break
			}
		}
	}

	appViper.SetEnvPrefix(EnvPrefix)
	appViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	appViper.AutomaticEnv()

	// 读取配置
	if err := appViper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicitFile || !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}

	// 解析到全局配置
	if err := appViper.Unmarshal(&globalConfig); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	reloadConfigs(appViper, globalConfig.Server.ReloadConfig)

	return nil
}

// loadDotEnv 预加载 .env 文件，使其中的 EPCGUARD_* 变量参与 AutomaticEnv.
func loadDotEnv(path string) {
	dir := path
	if info, err := os.Stat(path); err == nil && !info.IsDir() {
		dir = filepath.Dir(path)
	}

	envFile := filepath.Join(dir, ".env")
	if _, err := os.Stat(envFile); err != nil {
		return
	}

	if err := godotenv.Load(envFile); err != nil {
		fmt.Printf("failed to load %s: %v\n", envFile, err)
	}
}

// setAllDefaults 设置所有配置的默认值.
func setAllDefaults(v *viper.Viper) {
	var c AppConfig

	c.Server.setDefaults(v)
	c.Log.setDefaults(v)
	c.DB.setDefaults(v)
	c.S3.setDefaults(v)
	c.MQ.setDefaults(v)
	c.KV.setDefaults(v)
	c.Lock.setDefaults(v)
	c.Metrics.setDefaults(v)
	c.Tracing.setDefaults(v)
	c.CircuitBreaker.setDefaults(v)
	c.RateLimit.setDefaults(v)
	c.Auth.setDefaults(v)
	c.Events.setDefaults(v)
	c.Ingest.setDefaults(v)
	c.Analysis.setDefaults(v)
	c.Scoring.setDefaults(v)
	c.Jobs.setDefaults(v)
}

func reloadConfigs(v *viper.Viper, isHotReload bool) {
	if !isHotReload || v.ConfigFileUsed() == "" {
		return
	}
	// 启用配置热重载
	v.OnConfigChange(func(e fsnotify.Event) {
		fmt.Println("Config file changed:", e.Name)
		fmt.Println("Reloading configuration...")

		if err := v.Unmarshal(&globalConfig); err != nil {
			fmt.Printf("Error reloading config: %v\n", err)
		}
	})
	v.WatchConfig()
}

// Validate 按 rule 标签校验当前全局配置.
func Validate() error {
	if err := rule.ValidateStruct(&globalConfig); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	return nil
}

// GetConfig 返回全局配置实例.
func GetConfig() *AppConfig {
	return &globalConfig
}

// GetViper 返回全局 Viper 实例.
func GetViper() *viper.Viper {
	return appViper
}
