package service

import (
	"context"
	"errors"
	"fmt"
	"io"

	"gorm.io/gorm"

	"github.com/hsk3232/DevelopProject/pkg/internal/errs"
	"github.com/hsk3232/DevelopProject/pkg/internal/model"
	"github.com/hsk3232/DevelopProject/pkg/internal/types"
	nlog "github.com/hsk3232/DevelopProject/pkg/log"
	"github.com/hsk3232/DevelopProject/pkg/queue"
)

// ErrSummaryNotReady 文件尚未完成分析.
var ErrSummaryNotReady = errors.New("analysis summary not ready")

// 分析请求的触发原因.
const (
	ReasonUpload = "upload"
	ReasonManual = "manual"
	ReasonCron   = "cron"
)

const defaultAnomalyLimit = 100

// AnalysisService 触发分析并读取分析结果.
type AnalysisService struct {
	rt *Runtime
}

// NewAnalysisService 从 context 中的 Runtime 创建 AnalysisService.
func NewAnalysisService(c context.Context) *AnalysisService {
	return &AnalysisService{rt: RuntimeFrom(c)}
}

// Run 同步执行一次完整分析.
func (as *AnalysisService) Run(ctx context.Context, fileID uint, user string) (*model.Summary, error) {
	if as.rt == nil {
		return nil, ErrUnavailable
	}

	return as.rt.Orchestrator.Run(ctx, fileID, user)
}

// Request 受理一次（重新）分析. MQ 可用时发布 sc.analysis.requested 交给监听方，
// 否则在本进程后台执行.
func (as *AnalysisService) Request(ctx context.Context, user string, fileID uint, reason string) (*types.AnalyzeResponse, error) {
	if as.rt == nil {
		return nil, ErrUnavailable
	}

	file, err := ownedFile(ctx, as.rt.Repo, user, fileID)
	if err != nil {
		return nil, err
	}

	resp := &types.AnalyzeResponse{FileID: file.ID, Status: "accepted", Via: "local"}

	if pub := eventPublisher(as.rt.Manager, as.rt.Config, true); pub != nil {
		err := queue.PublishAnalysisRequested(pub, queue.AnalysisRequestedPayload{
			File:   FileRef(file),
			Reason: reason,
		}, queue.WithProducer(Producer))
		if err == nil {
			resp.Via = "mq"

			return resp, nil
		}

		nlog.Logger().Warn().Err(err).Uint("file_id", fileID).Msg("发布分析请求失败，改为本地执行")
	}

	as.rt.RunDetached(ctx, file.ID, user)

	return resp, nil
}

// Summary 读取文件统计.
func (as *AnalysisService) Summary(ctx context.Context, user string, fileID uint) (*model.Summary, error) {
	if as.rt == nil {
		return nil, ErrUnavailable
	}

	if _, err := ownedFile(ctx, as.rt.Repo, user, fileID); err != nil {
		return nil, err
	}

	s, err := as.rt.Repo.FindSummary(ctx, fileID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: file %d", ErrSummaryNotReady, fileID)
	}

	return s, err
}

// Anomalies 分页读取规则异常或评分异常.
func (as *AnalysisService) Anomalies(ctx context.Context, user string, fileID uint, req *types.ListAnomaliesRequest) (*types.ListAnomaliesResponse, error) {
	if as.rt == nil {
		return nil, ErrUnavailable
	}

	if _, err := ownedFile(ctx, as.rt.Repo, user, fileID); err != nil {
		return nil, err
	}

	limit := req.Limit
	if limit <= 0 {
		limit = defaultAnomalyLimit
	}

	resp := &types.ListAnomaliesResponse{FileID: fileID, Kind: req.Kind}

	var err error

	switch req.Kind {
	case types.AnomalyKindScore:
		resp.Score, err = as.rt.Repo.ScoreAnomalies(ctx, fileID, req.Offset, limit)
	default:
		resp.Kind = types.AnomalyKindRule
		resp.Rule, err = as.rt.Repo.RuleAnomalies(ctx, fileID, req.Offset, limit)
	}

	if err != nil {
		return nil, err
	}

	return resp, nil
}

// Export 将文件报表写入 w，返回文件记录供调用方设置下载名.
func (as *AnalysisService) Export(ctx context.Context, user string, fileID uint, w io.Writer) (*model.File, error) {
	if as.rt == nil {
		return nil, ErrUnavailable
	}

	file, err := ownedFile(ctx, as.rt.Repo, user, fileID)
	if err != nil {
		return nil, err
	}

	if err := as.rt.Exporter.Export(ctx, fileID, w); err != nil {
		return nil, err
	}

	return file, nil
}

// RunDetached 在后台执行分析，不随请求取消. 同一文件已在分析时只记录日志.
func (rt *Runtime) RunDetached(ctx context.Context, fileID uint, user string) {
	ctx = context.WithoutCancel(ctx)

	go func() {
		log := nlog.Component("analysis").With().Uint("file_id", fileID).Logger()

		if _, err := rt.Orchestrator.Run(ctx, fileID, user); err != nil {
			if errors.Is(err, errs.ErrAnalysisLocked) {
				log.Info().Msg("已有分析在运行，跳过")

				return
			}

			log.Error().Err(err).Msg("后台分析失败")
		}
	}()
}
