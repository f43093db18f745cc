package repository

import (
	"context"

	"github.com/hsk3232/DevelopProject/pkg/internal/model"
)

// FileCounts 统计聚合所需的原始计数.
type FileCounts struct {
	Events          int64
	Trips           int64
	Products        int64
	Items           int64
	ItemsWithPOS    int64
	ItemsWithTrips  int64
	RuleAnomalies   map[string]int64 // anomaly_type -> count
	ScoreAnomalies  int64
	ScoreSum        float64
	HighConfidence  int64
	LeadTimeSamples int64
	LeadTimeSumSec  float64
}

// CountFile 以新鲜查询计算文件的各项计数，highScore 为高置信分数阈值.
func (r *Repository) CountFile(ctx context.Context, fileID uint, highScore float64) (*FileCounts, error) {
	db := r.db.WithContext(ctx)
	c := &FileCounts{RuleAnomalies: map[string]int64{}}

	counts := []struct {
		model any
		dst   *int64
	}{
		{&model.Event{}, &c.Events},
		{&model.Trip{}, &c.Trips},
		{&model.Product{}, &c.Products},
		{&model.Item{}, &c.Items},
		{&model.ScoreAnomaly{}, &c.ScoreAnomalies},
	}

	for _, q := range counts {
		if err := db.Model(q.model).Where("file_id = ?", fileID).Count(q.dst).Error; err != nil {
			return nil, err
		}
	}

	if err := db.Model(&model.Event{}).
		Where("file_id = ? AND business_step = ?", fileID, model.StepPOS).
		Distinct("item_id").Count(&c.ItemsWithPOS).Error; err != nil {
		return nil, err
	}

	if err := db.Model(&model.Trip{}).
		Where("file_id = ?", fileID).
		Distinct("item_id").Count(&c.ItemsWithTrips).Error; err != nil {
		return nil, err
	}

	var byType []struct {
		AnomalyType string
		N           int64
	}

	if err := db.Model(&model.RuleAnomaly{}).
		Select("anomaly_type, COUNT(*) AS n").
		Where("file_id = ?", fileID).
		Group("anomaly_type").
		Scan(&byType).Error; err != nil {
		return nil, err
	}

	for _, t := range byType {
		c.RuleAnomalies[t.AnomalyType] = t.N
	}

	var score struct {
		Sum float64
	}

	if err := db.Model(&model.ScoreAnomaly{}).
		Select("COALESCE(SUM(score), 0) AS sum").
		Where("file_id = ?", fileID).
		Scan(&score).Error; err != nil {
		return nil, err
	}

	c.ScoreSum = score.Sum

	if err := db.Model(&model.ScoreAnomaly{}).
		Where("file_id = ? AND score >= ?", fileID, highScore).
		Count(&c.HighConfidence).Error; err != nil {
		return nil, err
	}

	// 行程耗时在应用侧累加，避免依赖各数据库不同的时间差函数
	rows, err := db.Model(&model.Trip{}).
		Select("from_event_time, to_event_time").
		Where("file_id = ?", fileID).
		Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var t model.Trip
		if err := db.ScanRows(rows, &t); err != nil {
			return nil, err
		}

		if t.FromEventTime.IsZero() || t.ToEventTime.IsZero() {
			continue
		}

		c.LeadTimeSamples++
		c.LeadTimeSumSec += t.LeadTime().Seconds()
	}

	return c, rows.Err()
}
