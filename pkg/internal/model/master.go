package model

import "time"

// Location 扫描地点，主键由 CSV 的 location_id 提供，全局共享.
type Location struct {
	ID           uint64 `gorm:"primaryKey;autoIncrement:false" json:"location_id"`
	ScanLocation string `gorm:"size:255"                       json:"scan_location"`
	OperatorID   int64  `json:"operator_id"`
	DeviceID     int64  `json:"device_id"`
}

// TableName 表名.
func (Location) TableName() string { return "csv_locations" }

// Product 文件内的产品，(file, company, product, name) 唯一.
type Product struct {
	ID          uint   `gorm:"primaryKey"                                    json:"product_id"`
	FileID      uint   `gorm:"not null;uniqueIndex:uq_product_file_code"     json:"file_id"`
	CompanyCode string `gorm:"size:64;uniqueIndex:uq_product_file_code"      json:"epc_company"`
	ProductCode string `gorm:"size:64;uniqueIndex:uq_product_file_code"      json:"epc_product"`
	ProductName string `gorm:"size:255;uniqueIndex:uq_product_file_code"     json:"product_name"`
}

// TableName 表名.
func (Product) TableName() string { return "csv_products" }

// CacheKey 导入缓存中的产品键.
func (p *Product) CacheKey() string {
	return ProductKey(p.CompanyCode, p.ProductCode)
}

// ProductKey 由公司码与产品码组成的产品键.
func ProductKey(company, product string) string {
	return company + "|" + product
}

// Item EPC 物品，code 在文件内唯一.
type Item struct {
	ID              uint       `gorm:"primaryKey"                                  json:"epc_id"`
	FileID          uint       `gorm:"not null;uniqueIndex:uq_item_file_code"      json:"file_id"`
	Code            string     `gorm:"size:64;not null;uniqueIndex:uq_item_file_code" json:"epc_code"`
	Header          string     `gorm:"size:32"                                     json:"epc_header"`
	Lot             string     `gorm:"size:32;index"                               json:"epc_lot"`
	Serial          string     `gorm:"size:32"                                     json:"epc_serial"`
	ManufactureDate *time.Time `json:"manufacture_date,omitempty"`
	ExpiryDate      *time.Time `json:"expiry_date,omitempty"`
}

// TableName 表名.
func (Item) TableName() string { return "epcs" }
