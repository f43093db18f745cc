// Package pipeline 编排一次文件分析：规则检测与外部评分并行执行，完成后汇总统计.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/hsk3232/DevelopProject/pkg/internal/detect"
	"github.com/hsk3232/DevelopProject/pkg/internal/errs"
	"github.com/hsk3232/DevelopProject/pkg/internal/lookup"
	"github.com/hsk3232/DevelopProject/pkg/internal/model"
	"github.com/hsk3232/DevelopProject/pkg/internal/notify"
	"github.com/hsk3232/DevelopProject/pkg/internal/storage/lock"
	"github.com/hsk3232/DevelopProject/pkg/internal/trip"
	nlog "github.com/hsk3232/DevelopProject/pkg/log"
	"github.com/hsk3232/DevelopProject/pkg/metrics"
	"github.com/hsk3232/DevelopProject/pkg/queue"
	"github.com/hsk3232/DevelopProject/pkg/tracing"
)

// Store 编排所需的存储操作.
type Store interface {
	FindFile(ctx context.Context, fileID uint) (*model.File, error)
	DeleteDerived(ctx context.Context, fileID uint) error
}

// Scorer 外部评分通道.
type Scorer interface {
	Analyze(ctx context.Context, fileID uint, userID string) (int, error)
}

// LookupSource 提供参考数据.
type LookupSource interface {
	Get(ctx context.Context) (*lookup.Lookup, error)
}

// StageError 记录失败发生的阶段.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string { return e.Stage + ": " + e.Err.Error() }

// Unwrap 返回原始错误.
func (e *StageError) Unwrap() error { return e.Err }

// Deps 编排器依赖. Scorer 为 nil 时只运行规则检测，Locker 为 nil 时不加锁.
type Deps struct {
	Store      Store
	Trips      *trip.Generator
	Detector   *detect.Runner
	Lookups    LookupSource
	Scorer     Scorer
	Aggregator *Aggregator
	Locker     lock.Locker
	Notifier   notify.Notifier
	Publisher  message.Publisher
}

// Orchestrator 分析流水线编排器.
type Orchestrator struct {
	Deps

	timeout time.Duration
}

// Option 编排器选项.
type Option func(*Orchestrator)

// WithTimeout 单次运行的超时时间.
func WithTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.timeout = d }
}

// NewOrchestrator 创建编排器.
func NewOrchestrator(deps Deps, opts ...Option) *Orchestrator {
	if deps.Notifier == nil {
		deps.Notifier = notify.Nop{}
	}

	o := &Orchestrator{Deps: deps}
	for _, opt := range opts {
		opt(o)
	}

	return o
}

// Run 分析一个文件. 先删除该文件已有的行程与异常，再并行执行规则通道与评分通道，
// 任一通道失败会取消另一个并返回该错误；两者成功后汇总统计.
// 同一文件已有分析在运行时返回 errs.ErrAnalysisLocked.
func (o *Orchestrator) Run(ctx context.Context, fileID uint, userID string) (summary *model.Summary, err error) {
	start := time.Now()
	taskID := uuid.NewString()

	ctx, span := tracing.StartSpan(ctx, "pipeline.Run", tracing.WithFileID(fileID))
	defer func() { tracing.EndSpan(span, err) }()
	defer metrics.ObserveStage(metrics.StagePipeline, start)

	log := nlog.Component("pipeline").With().Uint("file_id", fileID).Str("task_id", taskID).Logger()

	if o.Locker != nil {
		l, err := o.Locker.Obtain(ctx, lock.FileKey(fileID))
		if errors.Is(err, lock.ErrNotObtained) {
			return nil, fmt.Errorf("%w: file %d", errs.ErrAnalysisLocked, fileID)
		}

		if err != nil {
			return nil, fmt.Errorf("obtain analysis lock: %w", err)
		}

		defer func() {
			if err := l.Release(context.WithoutCancel(ctx)); err != nil {
				log.Warn().Err(err).Msg("释放分析锁失败")
			}
		}()
	}

	if o.timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	file, err := o.Store.FindFile(ctx, fileID)
	if err != nil {
		return nil, err
	}

	if userID == "" {
		userID = file.UploadedBy
	}

	ref := queue.FileRef{FileID: file.ID, FileName: file.FileName, Bucket: file.Bucket, ObjectKey: file.ObjectKey, UploadedBy: file.UploadedBy}
	rep := notify.NewReporter(o.Notifier, userID, fileID, taskID)

	defer func() {
		if err != nil {
			o.publishFailed(ref, taskID, err)
			rep.Send(context.WithoutCancel(ctx), notify.StagePipeline, "분석 실패: "+err.Error())
			log.Error().Err(err).Msg("分析失败")
		}
	}()

	if err := o.Store.DeleteDerived(ctx, fileID); err != nil {
		return nil, &StageError{Stage: notify.StagePipeline, Err: fmt.Errorf("delete previous results: %w", err)}
	}

	rep.Send(ctx, notify.StagePipeline, "AI 분석과 백엔드 분석을 동시에 시작")

	var (
		tripCount int
		ruleCount int
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		rep.Send(gctx, notify.StageDetect, "[진행중] BE 규칙 기반 분석")

		lk, err := o.Lookups.Get(gctx)
		if err != nil {
			return &StageError{Stage: notify.StageDetect, Err: fmt.Errorf("load lookup: %w", err)}
		}

		if tripCount, err = o.Trips.Generate(gctx, fileID); err != nil {
			return &StageError{Stage: notify.StageTrip, Err: err}
		}

		if ruleCount, err = o.Detector.Run(gctx, fileID, lk); err != nil {
			return &StageError{Stage: notify.StageDetect, Err: err}
		}

		rep.Send(gctx, notify.StageDetect, "[완료] BE 분석 완료")

		return nil
	})

	if o.Scorer != nil {
		g.Go(func() error {
			rep.Send(gctx, notify.StageScoring, "[진행중] AI 서버 연동 및 분석")

			if _, err := o.Scorer.Analyze(gctx, fileID, userID); err != nil {
				return &StageError{Stage: notify.StageScoring, Err: err}
			}

			rep.Send(gctx, notify.StageScoring, "[완료] AI 분석 완료.")

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	rep.Send(ctx, notify.StageAggregate, "모든 분석 작업 완료. 후속 집계를 실행")

	summary, err = o.Aggregator.Aggregate(ctx, fileID)
	if err != nil {
		return nil, &StageError{Stage: notify.StageAggregate, Err: err}
	}

	rep.SendProgress(ctx, notify.StagePipeline, 100, "모든 처리 과정 성공적으로 완료!")

	log.Info().
		Int("trips", tripCount).
		Int("rule_anomalies", ruleCount).
		Int64("score_anomalies", summary.ScoreAnomalyCount).
		Dur("elapsed", time.Since(start)).
		Msg("分析完成")

	o.publishCompleted(ref, taskID, summary, time.Since(start))

	return summary, nil
}

func (o *Orchestrator) publishCompleted(ref queue.FileRef, taskID string, s *model.Summary, elapsed time.Duration) {
	if o.Publisher == nil {
		return
	}

	err := queue.PublishAnalysisCompleted(o.Publisher, queue.AnalysisCompletedPayload{
		File:             ref,
		TaskID:           taskID,
		TripCount:        s.TripCount,
		RuleAnomalyCount: s.RuleAnomalyCount,
		ScoreAnomalyCnt:  s.ScoreAnomalyCount,
		AvgLeadTimeSec:   s.AvgLeadTimeSec,
		DurationMs:       elapsed.Milliseconds(),
	}, queue.WithProducer("epcguard"))
	if err != nil {
		nlog.Component("pipeline").Warn().Err(err).Msg("发布分析完成事件失败")
	}
}

func (o *Orchestrator) publishFailed(ref queue.FileRef, taskID string, cause error) {
	if o.Publisher == nil {
		return
	}

	stage := notify.StagePipeline

	var se *StageError
	if errors.As(cause, &se) {
		stage = se.Stage
	}

	err := queue.PublishAnalysisFailed(o.Publisher, queue.AnalysisFailedPayload{
		File:   ref,
		TaskID: taskID,
		Stage:  stage,
		Error:  cause.Error(),
	}, queue.WithProducer("epcguard"))
	if err != nil {
		nlog.Component("pipeline").Warn().Err(err).Msg("发布分析失败事件失败")
	}
}
