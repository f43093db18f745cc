// Package repository 基于 gorm 实现导入、分析与统计所需的持久化操作.
//
// 各业务包只声明自己需要的小接口（批量写入、流式读取、按键查询），
// Repository 同时满足这些接口.
package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/hsk3232/DevelopProject/pkg/internal/errs"
	"github.com/hsk3232/DevelopProject/pkg/internal/model"
)

// DefaultBatchSize 批量写入的默认批大小.
const DefaultBatchSize = 1000

// Repository gorm 持久化实现.
type Repository struct {
	db        *gorm.DB
	batchSize int
}

// New 创建 Repository，batchSize<=0 时使用默认值.
func New(db *gorm.DB, batchSize int) *Repository {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	return &Repository{db: db, batchSize: batchSize}
}

// DB 返回底层 gorm 实例.
func (r *Repository) DB() *gorm.DB {
	return r.db
}

// Migrate 自动迁移全部模型.
func (r *Repository) Migrate(ctx context.Context) error {
	if err := r.db.WithContext(ctx).AutoMigrate(model.All()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	return nil
}

// CreateFile 创建文件记录.
func (r *Repository) CreateFile(ctx context.Context, f *model.File) error {
	return r.db.WithContext(ctx).Create(f).Error
}

// FindFile 按 id 查询文件，不存在返回 errs.ErrFileNotFound.
func (r *Repository) FindFile(ctx context.Context, fileID uint) (*model.File, error) {
	var f model.File

	err := r.db.WithContext(ctx).First(&f, fileID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %d", errs.ErrFileNotFound, fileID)
	}

	if err != nil {
		return nil, err
	}

	return &f, nil
}

// FileQuery 文件列表查询条件.
type FileQuery struct {
	UploadedBy string
	Search     string
	Cursor     uint // 上一页最后一个文件 id，0 表示第一页
	Size       int
}

// ListFiles 以 id 倒序游标分页列出文件.
func (r *Repository) ListFiles(ctx context.Context, q FileQuery) ([]model.File, error) {
	size := q.Size
	if size <= 0 || size > 100 {
		size = 20
	}

	tx := r.db.WithContext(ctx).Model(&model.File{}).Order("id DESC").Limit(size)
	if q.UploadedBy != "" {
		tx = tx.Where("uploaded_by = ?", q.UploadedBy)
	}

	if q.Search != "" {
		tx = tx.Where("file_name LIKE ?", "%"+q.Search+"%")
	}

	if q.Cursor > 0 {
		tx = tx.Where("id < ?", q.Cursor)
	}

	var files []model.File
	if err := tx.Find(&files).Error; err != nil {
		return nil, err
	}

	return files, nil
}

// FilesWithoutSummary 返回尚未生成统计的文件 id，按 id 升序.
func (r *Repository) FilesWithoutSummary(ctx context.Context, limit int) ([]uint, error) {
	var ids []uint

	err := r.db.WithContext(ctx).
		Model(&model.File{}).
		Where("id NOT IN (?)", r.db.Model(&model.Summary{}).Select("file_id")).
		Order("id").
		Limit(limit).
		Pluck("id", &ids).Error

	return ids, err
}

// createInBatches 批量插入，冲突时忽略.
func createInBatches[T any](ctx context.Context, db *gorm.DB, rows []T, batchSize int) error {
	if len(rows) == 0 {
		return nil
	}

	return db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		CreateInBatches(rows, batchSize).Error
}
