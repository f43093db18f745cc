package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hsk3232/DevelopProject/pkg/configs"
	"github.com/hsk3232/DevelopProject/pkg/internal/model"
	"github.com/hsk3232/DevelopProject/pkg/internal/repository"
	"github.com/hsk3232/DevelopProject/pkg/metrics"
	"github.com/hsk3232/DevelopProject/pkg/tracing"
)

// StatsStore 统计汇总所需的存储操作.
type StatsStore interface {
	FindFile(ctx context.Context, fileID uint) (*model.File, error)
	CountFile(ctx context.Context, fileID uint, highScore float64) (*repository.FileCounts, error)
	UpsertSummary(ctx context.Context, s *model.Summary) error
}

// Aggregator 由新鲜查询重新计算文件统计并覆盖写入.
type Aggregator struct {
	store     StatsStore
	highScore float64
}

// NewAggregator 创建汇总器，highScore 为高置信评分阈值.
func NewAggregator(store StatsStore, highScore float64) *Aggregator {
	if highScore <= 0 {
		highScore = configs.DefaultHighConfidenceScore
	}

	return &Aggregator{store: store, highScore: highScore}
}

// Aggregate 计算并写入 Summary，文件不存在时返回 errs.ErrFileNotFound.
func (a *Aggregator) Aggregate(ctx context.Context, fileID uint) (s *model.Summary, err error) {
	ctx, span := tracing.StartSpan(ctx, "pipeline.Aggregate", tracing.WithFileID(fileID))
	defer func() { tracing.EndSpan(span, err) }()
	defer metrics.ObserveStage(metrics.StageAggregate, time.Now())

	if _, err := a.store.FindFile(ctx, fileID); err != nil {
		return nil, err
	}

	counts, err := a.store.CountFile(ctx, fileID, a.highScore)
	if err != nil {
		return nil, fmt.Errorf("count file %d: %w", fileID, err)
	}

	s = Summarize(fileID, counts)
	if err := a.store.UpsertSummary(ctx, s); err != nil {
		return nil, fmt.Errorf("save summary: %w", err)
	}

	return s, nil
}

// Summarize 由原始计数得到 Summary. 比率为百分比，保留一位小数.
func Summarize(fileID uint, c *repository.FileCounts) *model.Summary {
	s := &model.Summary{
		FileID:              fileID,
		TotalEventCount:     c.Events,
		TripCount:           c.Trips,
		UniqueProductCount:  c.Products,
		ItemCount:           c.Items,
		SalesRate:           percent(c.ItemsWithPOS, c.Items),
		DispatchRate:        percent(c.ItemsWithTrips, c.Items),
		FakeCount:           c.RuleAnomalies[model.AnomalyFake],
		TamperCount:         c.RuleAnomalies[model.AnomalyTamper],
		CloneCount:          c.RuleAnomalies[model.AnomalyClone],
		ScoreAnomalyCount:   c.ScoreAnomalies,
		HighConfidenceCount: c.HighConfidence,
	}

	for _, n := range c.RuleAnomalies {
		s.RuleAnomalyCount += n
	}

	if c.LeadTimeSamples > 0 {
		s.AvgLeadTimeSec = round(decimal.NewFromFloat(c.LeadTimeSumSec).Div(decimal.NewFromInt(c.LeadTimeSamples)), 2)
	}

	if c.ScoreAnomalies > 0 {
		s.AvgScore = round(decimal.NewFromFloat(c.ScoreSum).Div(decimal.NewFromInt(c.ScoreAnomalies)), 4)
	}

	return s
}

func percent(part, total int64) float64 {
	if total <= 0 {
		return 0
	}

	return round(decimal.NewFromInt(part).Mul(decimal.NewFromInt(100)).Div(decimal.NewFromInt(total)), 1)
}

func round(d decimal.Decimal, places int32) float64 {
	f, _ := d.Round(places).Float64()

	return f
}
