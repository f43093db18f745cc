package model

import "time"

// 规则异常类型.
const (
	AnomalyTamper = "Tamper"
	AnomalyFake   = "Fake"
	AnomalyClone  = "Clone"
)

// 规则异常细分类型.
const (
	DetailRouteViolation  = "Route Violation"
	DetailPartialMismatch = "Partial Product Info Mismatch"
	DetailUnknownProduct  = "Unknown Product"
	DetailSerialRule      = "Serial Rule Violation"
	DetailInvalidSerial   = "Invalid Serial Format"
)

// Trip 同一物品两个相邻事件之间的移动.
type Trip struct {
	ID               uint      `gorm:"primaryKey"         json:"trip_id"`
	FileID           uint      `gorm:"not null;index"     json:"file_id"`
	ItemID           uint      `gorm:"not null;index"     json:"epc_id"`
	FromLocationID   uint64    `json:"from_location_id"`
	ToLocationID     uint64    `json:"to_location_id"`
	FromScanLocation string    `gorm:"size:255"           json:"from_scan_location"`
	ToScanLocation   string    `gorm:"size:255"           json:"to_scan_location"`
	FromBusinessStep string    `gorm:"size:64"            json:"from_business_step"`
	ToBusinessStep   string    `gorm:"size:64"            json:"to_business_step"`
	FromEventTime    time.Time `json:"from_event_time"`
	ToEventTime      time.Time `json:"to_event_time"`
	EventID          uint      `gorm:"index"              json:"related_event_id"` // 目的地事件
}

// TableName 表名.
func (Trip) TableName() string { return "analysis_trips" }

// LeadTime 行程耗时.
func (t *Trip) LeadTime() time.Duration {
	return t.ToEventTime.Sub(t.FromEventTime)
}

// RuleAnomaly 规则检测产出的异常.
type RuleAnomaly struct {
	ID          uint      `gorm:"primaryKey"          json:"id"`
	FileID      uint      `gorm:"not null;index"      json:"file_id"`
	EventID     uint      `gorm:"not null;index"      json:"event_id"`
	ItemID      uint      `gorm:"index"               json:"epc_id"`
	AnomalyType string    `gorm:"size:32;not null"    json:"anomaly_type"`
	DetailType  string    `gorm:"size:64;not null"    json:"anomaly_detailed_type"`
	Detector    string    `gorm:"size:64"             json:"detector"`
	DetectedAt  time.Time `json:"detected_at"`
}

// TableName 表名.
func (RuleAnomaly) TableName() string { return "be_analyses" }

// ScoreAnomaly 外部评分服务返回的异常分数，每个事件最多一条.
type ScoreAnomaly struct {
	ID         uint      `gorm:"primaryKey"           json:"id"`
	FileID     uint      `gorm:"not null;index"       json:"file_id"`
	EventID    uint      `gorm:"not null;uniqueIndex" json:"event_id"`
	Score      float64   `json:"anomaly_score"`
	AnalyzedAt time.Time `json:"analyzed_at"`
}

// TableName 表名.
func (ScoreAnomaly) TableName() string { return "ai_analyses" }

// Summary 文件级统计，每个文件一行，重新分析时覆盖.
type Summary struct {
	FileID              uint      `gorm:"primaryKey;autoIncrement:false" json:"file_id"`
	TotalEventCount     int64     `json:"total_event_count"`
	TripCount           int64     `json:"trip_count"`
	UniqueProductCount  int64     `json:"unique_product_count"`
	ItemCount           int64     `json:"code_count"`
	SalesRate           float64   `json:"sales_rate"`
	DispatchRate        float64   `json:"dispatch_rate"`
	AvgLeadTimeSec      float64   `json:"avg_lead_time"`
	RuleAnomalyCount    int64     `json:"total_error_count"`
	FakeCount           int64     `json:"fake_count"`
	TamperCount         int64     `json:"tamper_count"`
	CloneCount          int64     `json:"clone_count"`
	ScoreAnomalyCount   int64     `json:"ai_total_anomaly_count"`
	AvgScore            float64   `json:"average_anomaly_score"`
	HighConfidenceCount int64     `json:"high_confidence_anomaly_count"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// TableName 表名.
func (Summary) TableName() string { return "analysis_summaries" }

// AssetRoute 合法路线参考数据.
type AssetRoute struct {
	ID             uint   `gorm:"primaryKey"                          json:"road_id"`
	FromLocationID uint64 `gorm:"not null;uniqueIndex:uq_route_edge"  json:"from_location_id"`
	ToLocationID   uint64 `gorm:"not null;uniqueIndex:uq_route_edge"  json:"to_location_id"`
	FromStep       string `gorm:"size:64"                             json:"from_business_step"`
	ToStep         string `gorm:"size:64"                             json:"to_business_step"`
}

// TableName 表名.
func (AssetRoute) TableName() string { return "asset_routes" }

// AssetProduct 已知产品参考数据.
type AssetProduct struct {
	ID          uint   `gorm:"primaryKey"                               json:"id"`
	CompanyCode string `gorm:"size:64;uniqueIndex:uq_asset_product"     json:"epc_company"`
	ProductCode string `gorm:"size:64;uniqueIndex:uq_asset_product"     json:"epc_product"`
	ProductName string `gorm:"size:255;uniqueIndex:uq_asset_product"    json:"product_name"`
}

// TableName 表名.
func (AssetProduct) TableName() string { return "asset_products" }
