package model

import "time"

// 规范化后的业务步骤.
const (
	StepFactory    = "Factory"
	StepWMS        = "WMS"
	StepLogiHub    = "LogiHub"
	StepWholesaler = "Wholesaler"
	StepReseller   = "Reseller"
	StepPOS        = "POS"
)

// Event 扫描事件.
//
// (file, item, location, product, time, step, type) 在写入前由 EventKey 去重，
// KeyHash 上的唯一索引作为最后防线.
type Event struct {
	ID               uint      `gorm:"primaryKey"                      json:"event_id"`
	FileID           uint      `gorm:"not null;index:idx_event_file_item_time,priority:1" json:"file_id"`
	ItemID           uint      `gorm:"not null;index:idx_event_file_item_time,priority:2" json:"epc_id"`
	LocationID       uint64    `gorm:"not null"                        json:"location_id"`
	ProductID        uint      `gorm:"not null"                        json:"product_id"`
	HubType          string    `gorm:"size:64"                         json:"hub_type"`
	BusinessStep     string    `gorm:"size:64;not null"                json:"business_step"`
	BusinessOriginal string    `gorm:"size:128"                        json:"business_original"`
	EventType        string    `gorm:"size:64;not null"                json:"event_type"`
	EventTime        time.Time `gorm:"not null;index:idx_event_file_item_time,priority:3" json:"event_time"`
	KeyHash          int64     `gorm:"not null;uniqueIndex"            json:"-"`
}

// TableName 表名.
func (Event) TableName() string { return "event_histories" }

// EventWithItem 关联物品与地点信息的事件视图，供检测与评分导出使用.
type EventWithItem struct {
	Event

	ItemCode     string `gorm:"column:item_code"`
	Lot          string `gorm:"column:lot"`
	Serial       string `gorm:"column:serial"`
	ScanLocation string `gorm:"column:scan_location"`
	CompanyCode  string `gorm:"column:company_code"`
	ProductCode  string `gorm:"column:product_code"`
	ProductName  string `gorm:"column:product_name"`
}
