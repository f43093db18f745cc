// Package service 组合存储、导入与分析流水线，向 HTTP、命令行与消息监听提供业务操作.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/hsk3232/DevelopProject/pkg/cache"
	"github.com/hsk3232/DevelopProject/pkg/configs"
	"github.com/hsk3232/DevelopProject/pkg/internal/detect"
	"github.com/hsk3232/DevelopProject/pkg/internal/ingest"
	"github.com/hsk3232/DevelopProject/pkg/internal/lookup"
	"github.com/hsk3232/DevelopProject/pkg/internal/notify"
	"github.com/hsk3232/DevelopProject/pkg/internal/pipeline"
	"github.com/hsk3232/DevelopProject/pkg/internal/report"
	"github.com/hsk3232/DevelopProject/pkg/internal/repository"
	"github.com/hsk3232/DevelopProject/pkg/internal/scoring"
	"github.com/hsk3232/DevelopProject/pkg/internal/serial"
	"github.com/hsk3232/DevelopProject/pkg/internal/storage"
	"github.com/hsk3232/DevelopProject/pkg/internal/trip"
	nlog "github.com/hsk3232/DevelopProject/pkg/log"
)

// LookupNamespace 参考数据快照在 KV 中的命名空间.
const LookupNamespace = "lookup"

// Runtime 进程内只构建一次的长生命周期组件.
type Runtime struct {
	Config       *configs.AppConfig
	Manager      *storage.Manager
	Repo         *repository.Repository
	Notifier     notify.Notifier
	Lookups      *lookup.Provider
	Orchestrator *pipeline.Orchestrator
	Exporter     *report.Exporter

	ingestOpts ingest.Options
}

// NewRuntime 基于已初始化的存储构建运行时. notifier 为 nil 时只记录日志.
func NewRuntime(mgr *storage.Manager, notifier notify.Notifier, cfg *configs.AppConfig) (*Runtime, error) {
	if mgr == nil || mgr.GetDBClient() == nil {
		return nil, errors.New("storage manager without db")
	}

	if notifier == nil {
		notifier = notify.Logger{Log: nlog.Component("progress")}
	}

	repo := repository.New(mgr.GetDBClient().DB, cfg.Analysis.BatchSize)

	var snapshots *cache.Cache
	if kv := mgr.GetKVClient(); kv != nil {
		snapshots = cache.NewCache(kv, cache.WithNamespace(LookupNamespace))
	}

	lookups := lookup.NewProvider(repo, snapshots, cfg.Analysis.GetLookupTTL())

	var scorer pipeline.Scorer

	if cfg.Analysis.ScoringEnabled {
		var opts []scoring.Option
		if cfg.Scoring.Breaker {
			opts = append(opts, scoring.WithBreaker(cfg.CircuitBreaker))
		}

		sc, err := scoring.New(repo, notifier, cfg.Scoring, opts...)
		if err != nil {
			return nil, fmt.Errorf("init scoring client: %w", err)
		}

		scorer = sc
	}

	orch := pipeline.NewOrchestrator(pipeline.Deps{
		Store:      repo,
		Trips:      trip.New(repo, cfg.Analysis.BatchSize),
		Detector:   detect.NewRunner(repo, serial.New(), cfg.Analysis.BatchSize, detect.Defaults()...),
		Lookups:    lookups,
		Scorer:     scorer,
		Aggregator: pipeline.NewAggregator(repo, cfg.Analysis.HighConfidenceScore),
		Locker:     mgr.GetLocker(),
		Notifier:   notifier,
		Publisher:  eventPublisher(mgr, cfg, cfg.Events.Publish.Completed),
	}, pipeline.WithTimeout(cfg.Analysis.GetTimeout()))

	return &Runtime{
		Config:       cfg,
		Manager:      mgr,
		Repo:         repo,
		Notifier:     notifier,
		Lookups:      lookups,
		Orchestrator: orch,
		Exporter:     report.New(repo),
		ingestOpts:   ingest.OptionsFromConfig(&cfg.Ingest),
	}, nil
}

// NewIngester 创建使用运行时通知通道的导入器.
func (rt *Runtime) NewIngester() *ingest.Ingester {
	return ingest.New(rt.Repo, rt.Notifier, rt.ingestOpts)
}

// eventPublisher 返回 MQ 发布者；事件关闭或 MQ 不可用时返回 nil.
func eventPublisher(mgr *storage.Manager, cfg *configs.AppConfig, topicEnabled bool) message.Publisher {
	if !cfg.Events.Enabled || !topicEnabled {
		return nil
	}

	if mq := mgr.GetMQClient(); mq != nil {
		return mq.Publisher()
	}

	return nil
}

type runtimeKey struct{}

// WithRuntime 将 Runtime 放入 context.
func WithRuntime(ctx context.Context, rt *Runtime) context.Context {
	return context.WithValue(ctx, runtimeKey{}, rt)
}

// RuntimeFrom 从 context 取出 Runtime，不存在时返回 nil.
func RuntimeFrom(ctx context.Context) *Runtime {
	if rt, ok := ctx.Value(runtimeKey{}).(*Runtime); ok {
		return rt
	}

	return nil
}
