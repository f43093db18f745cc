package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/hsk3232/DevelopProject/pkg/internal/model"
)

// SaveTrips 批量写入行程.
func (r *Repository) SaveTrips(ctx context.Context, trips []model.Trip) error {
	if len(trips) == 0 {
		return nil
	}

	return r.db.WithContext(ctx).CreateInBatches(trips, r.batchSize).Error
}

// TripsByFile 读取文件的全部行程.
func (r *Repository) TripsByFile(ctx context.Context, fileID uint) ([]model.Trip, error) {
	var trips []model.Trip
	err := r.db.WithContext(ctx).Where("file_id = ?", fileID).Order("item_id, from_event_time, id").Find(&trips).Error

	return trips, err
}

// SaveRuleAnomalies 在独立事务中写入一批规则异常.
func (r *Repository) SaveRuleAnomalies(ctx context.Context, anomalies []model.RuleAnomaly) error {
	if len(anomalies) == 0 {
		return nil
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(anomalies, r.batchSize).Error
	})
}

// SaveScoreAnomalies 写入评分异常，同一事件重复时覆盖分数.
func (r *Repository) SaveScoreAnomalies(ctx context.Context, anomalies []model.ScoreAnomaly) error {
	if len(anomalies) == 0 {
		return nil
	}

	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "event_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"score", "analyzed_at", "file_id"}),
		}).
		CreateInBatches(anomalies, r.batchSize).Error
}

// DeleteDerived 删除文件的行程与两类异常，使重新分析成为整体替换.
func (r *Repository) DeleteDerived(ctx context.Context, fileID uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, m := range []any{&model.Trip{}, &model.RuleAnomaly{}, &model.ScoreAnomaly{}} {
			if err := tx.Where("file_id = ?", fileID).Delete(m).Error; err != nil {
				return err
			}
		}

		return nil
	})
}

// RuleAnomalies 分页读取文件的规则异常.
func (r *Repository) RuleAnomalies(ctx context.Context, fileID uint, offset, limit int) ([]model.RuleAnomaly, error) {
	var out []model.RuleAnomaly

	tx := r.db.WithContext(ctx).Where("file_id = ?", fileID).Order("id")
	if limit > 0 {
		tx = tx.Offset(offset).Limit(limit)
	}

	err := tx.Find(&out).Error

	return out, err
}

// ScoreAnomalies 分页读取文件的评分异常，按分数降序.
func (r *Repository) ScoreAnomalies(ctx context.Context, fileID uint, offset, limit int) ([]model.ScoreAnomaly, error) {
	var out []model.ScoreAnomaly

	tx := r.db.WithContext(ctx).Where("file_id = ?", fileID).Order("score DESC, event_id")
	if limit > 0 {
		tx = tx.Offset(offset).Limit(limit)
	}

	err := tx.Find(&out).Error

	return out, err
}

// UpsertSummary 写入或覆盖文件统计.
func (r *Repository) UpsertSummary(ctx context.Context, s *model.Summary) error {
	s.UpdatedAt = time.Now()

	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "file_id"}},
			UpdateAll: true,
		}).
		Create(s).Error
}

// FindSummary 查询文件统计，不存在时返回 gorm.ErrRecordNotFound.
func (r *Repository) FindSummary(ctx context.Context, fileID uint) (*model.Summary, error) {
	var s model.Summary
	if err := r.db.WithContext(ctx).First(&s, "file_id = ?", fileID).Error; err != nil {
		return nil, err
	}

	return &s, nil
}
