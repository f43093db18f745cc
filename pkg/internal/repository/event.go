package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/hsk3232/DevelopProject/pkg/internal/errs"
	"github.com/hsk3232/DevelopProject/pkg/internal/model"
)

// eventViewColumns 事件视图的查询列.
const eventViewColumns = "event_histories.*, " +
	"epcs.code AS item_code, epcs.lot AS lot, epcs.serial AS serial, " +
	"csv_locations.scan_location AS scan_location, " +
	"csv_products.company_code AS company_code, csv_products.product_code AS product_code, " +
	"csv_products.product_name AS product_name"

func (r *Repository) eventView(ctx context.Context, fileID uint) *gorm.DB {
	return r.db.WithContext(ctx).
		Table("event_histories").
		Select(eventViewColumns).
		Joins("JOIN epcs ON epcs.id = event_histories.item_id").
		Joins("LEFT JOIN csv_locations ON csv_locations.id = event_histories.location_id").
		Joins("LEFT JOIN csv_products ON csv_products.id = event_histories.product_id").
		Where("event_histories.file_id = ?", fileID).
		Order("event_histories.item_id, event_histories.event_time, event_histories.id")
}

// EventKeyHashes 返回文件已写入事件的键哈希，用于重复导入去重.
func (r *Repository) EventKeyHashes(ctx context.Context, fileID uint) ([]int64, error) {
	var hashes []int64
	err := r.db.WithContext(ctx).Model(&model.Event{}).Where("file_id = ?", fileID).Pluck("key_hash", &hashes).Error

	return hashes, err
}

// CreateEvents 批量插入事件，键哈希冲突的行忽略.
func (r *Repository) CreateEvents(ctx context.Context, events []model.Event) error {
	return createInBatches(ctx, r.db, events, r.batchSize)
}

// StreamEvents 以 (item, time, id) 顺序逐行读取文件事件，fn 返回错误时停止.
func (r *Repository) StreamEvents(ctx context.Context, fileID uint, fn func(*model.EventWithItem) error) error {
	rows, err := r.eventView(ctx, fileID).Rows()
	if err != nil {
		return fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ev model.EventWithItem
		if err := r.db.ScanRows(rows, &ev); err != nil {
			return fmt.Errorf("scan event: %w", err)
		}

		if err := fn(&ev); err != nil {
			return err
		}
	}

	return rows.Err()
}

// EventsWithItem 一次性读取文件的全部事件视图，按 (item, time, id) 排序.
func (r *Repository) EventsWithItem(ctx context.Context, fileID uint) ([]model.EventWithItem, error) {
	var events []model.EventWithItem
	if err := r.eventView(ctx, fileID).Scan(&events).Error; err != nil {
		return nil, err
	}

	return events, nil
}

// EventIDs 返回文件内全部事件 id.
func (r *Repository) EventIDs(ctx context.Context, fileID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Model(&model.Event{}).Where("file_id = ?", fileID).Pluck("id", &ids).Error

	return ids, err
}

// FindEvent 按 id 查询事件.
func (r *Repository) FindEvent(ctx context.Context, eventID uint) (*model.Event, error) {
	var ev model.Event

	err := r.db.WithContext(ctx).First(&ev, eventID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %d", errs.ErrEventNotFound, eventID)
	}

	return &ev, err
}
