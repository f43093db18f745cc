// Package jobs 注册并实现后台定时任务.
package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/hsk3232/DevelopProject/pkg/internal/errs"
	"github.com/hsk3232/DevelopProject/pkg/internal/service"
	nlog "github.com/hsk3232/DevelopProject/pkg/log"
	"github.com/hsk3232/DevelopProject/pkg/scheduler"
)

// RegisterCronJobs 注册定时任务:
//   - jobs.lookup_refresh 重新加载路线与产品参考数据并写回 KV 快照
//   - jobs.pending_analyze 补跑已导入但尚无汇总的文件，每次最多 jobs.pending_limit 个
func RegisterCronJobs(sched *scheduler.Scheduler, rt *service.Runtime) error {
	if sched == nil {
		return errors.New("scheduler is nil")
	}

	if rt == nil {
		return errors.New("runtime is nil")
	}

	cfg := rt.Config.Jobs

	if err := sched.AddCron(JobLookupRefresh, cfg.LookupRefresh, func(ctx context.Context) error {
		return RefreshLookups(ctx, rt)
	}); err != nil {
		return err
	}

	return sched.AddCron(JobPendingAnalyze, cfg.PendingAnalyze, func(ctx context.Context) error {
		_, err := AnalyzePending(ctx, rt, cfg.PendingLimit)

		return err
	})
}

// RefreshLookups 重新加载参考数据.
func RefreshLookups(ctx context.Context, rt *service.Runtime) error {
	l, err := rt.Lookups.Refresh(ctx)
	if err != nil {
		return fmt.Errorf("refresh lookups: %w", err)
	}

	nlog.Component("jobs").Info().Str("job", JobLookupRefresh).Int("routes", l.RouteCount()).Msg("lookups refreshed")

	return nil
}

// AnalyzePending 依次分析尚无汇总的文件，返回成功数. 单个文件失败不影响其余文件，
// 正在被其他进程分析的文件跳过.
func AnalyzePending(ctx context.Context, rt *service.Runtime, limit int) (int, error) {
	log := nlog.Component("jobs").With().Str("job", JobPendingAnalyze).Logger()

	ids, err := rt.Repo.FilesWithoutSummary(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("list pending files: %w", err)
	}

	var (
		done int
		failed []error
	)

	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}

		f, err := rt.Repo.FindFile(ctx, id)
		if err != nil {
			failed = append(failed, err)

			continue
		}

		if _, err := rt.Orchestrator.Run(ctx, id, f.UploadedBy); err != nil {
			if errors.Is(err, errs.ErrAnalysisLocked) {
				log.Debug().Uint("file_id", id).Msg("analysis already running")

				continue
			}

			log.Error().Err(err).Uint("file_id", id).Msg("pending analysis failed")
			failed = append(failed, fmt.Errorf("file %d: %w", id, err))

			continue
		}

		done++
	}

	if len(ids) > 0 {
		log.Info().Int("pending", len(ids)).Int("analyzed", done).Msg("pending files processed")
	}

	return done, errors.Join(failed...)
}
