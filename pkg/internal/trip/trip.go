// Package trip 由按物品与时间排序的事件流生成相邻事件之间的行程.
package trip

import (
	"context"
	"fmt"
	"time"

	"github.com/hsk3232/DevelopProject/pkg/configs"
	"github.com/hsk3232/DevelopProject/pkg/internal/model"
	nlog "github.com/hsk3232/DevelopProject/pkg/log"
	"github.com/hsk3232/DevelopProject/pkg/metrics"
	"github.com/hsk3232/DevelopProject/pkg/tracing"
)

// Store 行程生成所需的存储操作.
type Store interface {
	// StreamEvents 按 (item, time, id) 顺序逐条回调.
	StreamEvents(ctx context.Context, fileID uint, fn func(*model.EventWithItem) error) error
	SaveTrips(ctx context.Context, trips []model.Trip) error
}

// Generator 行程生成器.
type Generator struct {
	store     Store
	batchSize int
}

// New 创建生成器，batchSize 为每次写入的行程数.
func New(store Store, batchSize int) *Generator {
	if batchSize <= 0 {
		batchSize = configs.DefaultAnalysisBatchSize
	}

	return &Generator{store: store, batchSize: batchSize}
}

// Build 由同一物品的前后两个事件构造行程.
func Build(prev, cur *model.EventWithItem) model.Trip {
	return model.Trip{
		FileID:           cur.FileID,
		ItemID:           cur.ItemID,
		FromLocationID:   prev.LocationID,
		ToLocationID:     cur.LocationID,
		FromScanLocation: prev.ScanLocation,
		ToScanLocation:   cur.ScanLocation,
		FromBusinessStep: prev.BusinessStep,
		ToBusinessStep:   cur.BusinessStep,
		FromEventTime:    prev.EventTime,
		ToEventTime:      cur.EventTime,
		EventID:          cur.ID,
	}
}

// Generate 流式读取文件事件并写入行程，返回生成的行程数.
func (g *Generator) Generate(ctx context.Context, fileID uint) (count int, err error) {
	ctx, span := tracing.StartSpan(ctx, "trip.Generate", tracing.WithFileID(fileID))
	defer func() { tracing.EndSpan(span, err) }()
	defer metrics.ObserveStage(metrics.StageTrip, time.Now())

	var prev *model.EventWithItem

	batch := make([]model.Trip, 0, g.batchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}

		if err := g.store.SaveTrips(ctx, batch); err != nil {
			return fmt.Errorf("save trips: %w", err)
		}

		count += len(batch)
		batch = batch[:0]

		return nil
	}

	err = g.store.StreamEvents(ctx, fileID, func(cur *model.EventWithItem) error {
		if prev != nil && prev.ItemID == cur.ItemID {
			batch = append(batch, Build(prev, cur))

			if len(batch) >= g.batchSize {
				if err := flush(); err != nil {
					return err
				}
			}
		}

		prev = cur

		return nil
	})
	if err != nil {
		return count, err
	}

	if err := flush(); err != nil {
		return count, err
	}

	nlog.Component("trip").Info().Uint("file_id", fileID).Int("trips", count).Msg("行程生成完成")

	return count, nil
}
