// Package metrics 提供监控指标功能.
// 支持Prometheus标准，收集 HTTP 指标以及导入、检测、评分等流水线指标.
//
// Example:
//
//	err := metrics.InitMetrics(config.Metrics)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	metrics.IngestRows.WithLabelValues(metrics.ResultAccepted).Add(1000)
//	defer metrics.ObserveStage(metrics.StageTrip, time.Now())
package metrics

import (
	"net/http"
	_ "net/http/pprof" // 自动注册pprof端点
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hsk3232/DevelopProject/pkg/configs"
)

const namespace = "epcguard"

// 行结果标签.
const (
	ResultAccepted = "accepted"
	ResultRejected = "rejected"
)

// 流水线阶段标签.
const (
	StageIngest    = "ingest"
	StageTrip      = "trip"
	StageDetect    = "detect"
	StageScoring   = "scoring"
	StageAggregate = "aggregate"
	StagePipeline  = "pipeline"
)

// 全局指标变量.
var (
	// RequestCounter HTTP请求计数器.
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint"},
	)

	// RequestDuration HTTP请求持续时间.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// ActiveConnections 活跃连接数（含 WebSocket）.
	ActiveConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "active_connections",
			Help: "Number of active connections",
		},
	)

	// IngestRows 导入行数，按接受/拒绝区分.
	IngestRows = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_rows_total",
			Help:      "CSV rows processed by ingestion",
		},
		[]string{"result"},
	)

	// RuleAnomalies 规则检测产生的异常数.
	RuleAnomalies = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rule_anomalies_total",
			Help:      "Anomalies produced by rule detectors",
		},
		[]string{"type", "detector"},
	)

	// ScoringRequests 评分服务请求，按 success/retry/failure 区分.
	ScoringRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scoring_requests_total",
			Help:      "Requests sent to the external scoring service",
		},
		[]string{"outcome"},
	)

	// StageDuration 各流水线阶段耗时.
	StageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_stage_duration_seconds",
			Help:      "Duration of pipeline stages in seconds",
			Buckets:   []float64{0.05, 0.25, 1, 5, 15, 60, 300, 900},
		},
		[]string{"stage"},
	)

	// registry Prometheus注册表.
	registry = prometheus.NewRegistry()
	initOnce sync.Once
)

// InitMetrics 初始化Metrics，重复调用只注册一次.
func InitMetrics(config configs.MetricsConfig) error {
	if !config.Enabled {
		return nil
	}

	initOnce.Do(func() {
		// 注册标准收集器
		if config.RuntimeMetrics {
			registry.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)
		}

		registry.MustRegister(
			RequestCounter, RequestDuration, ActiveConnections,
			IngestRows, RuleAnomalies, ScoringRequests, StageDuration,
		)
	})

	return nil
}

// StartMetricsServer 在给定引擎上挂载 /metrics 与可选的 pprof.
// 同时暴露默认注册表，gorm 与 watermill 插件注册在那里.
func StartMetricsServer(config configs.MetricsConfig, debugEngine *gin.Engine) error {
	if !config.Enabled {
		return nil
	}

	path := config.Path
	if path == "" {
		path = "/metrics"
	}

	gatherers := prometheus.Gatherers{registry, prometheus.DefaultGatherer}
	debugEngine.GET(path, gin.WrapH(promhttp.HandlerFor(gatherers, promhttp.HandlerOpts{})))

	if config.Pprof {
		debugEngine.GET("/debug/pprof/*any", gin.WrapH(http.DefaultServeMux))
	}

	return nil
}

// ObserveStage 记录阶段耗时，配合 defer 使用.
func ObserveStage(stage string, start time.Time) {
	StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

// GetRegistry 获取Prometheus注册表.
func GetRegistry() *prometheus.Registry {
	return registry
}
