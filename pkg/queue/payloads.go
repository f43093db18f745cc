package queue

import "time"

// EventHeader 定义所有事件的通用头部元数据.
// 建议在发布消息时填充 TraceID、OccurredAt、Producer 等，便于追踪链路与审计.
type EventHeader struct {
	// Topic 冗余记录消息主题，便于离线处理或转储后定位来源主题.
	Topic string `json:"topic"`
	// TraceID 分布式追踪/关联 ID，可来自中间件或业务生成.
	TraceID string `json:"trace_id,omitempty"`
	// Producer 生产者服务名或节点标识.
	Producer string `json:"producer,omitempty"`
	// OccurredAt 事件发生时间（UTC，RFC3339）.
	OccurredAt time.Time `json:"occurred_at"`
	// Version 事件负载版本，便于向后兼容演进.
	Version string `json:"version,omitempty"`
}

// Message 是统一的消息封装，Header + Payload.
// T 即不同主题对应的负载结构体.
type Message[T any] struct {
	Header  EventHeader `json:"header"`
	Payload T           `json:"payload"`
}

// FileRef 标识一个已上传的 CSV 文件.
type FileRef struct {
	FileID     uint   `json:"file_id"`
	FileName   string `json:"file_name,omitempty"`
	Bucket     string `json:"bucket,omitempty"`
	ObjectKey  string `json:"object_key,omitempty"`
	UploadedBy string `json:"uploaded_by,omitempty"`
}

// FileIngestedPayload CSV 导入完成.
type FileIngestedPayload struct {
	File      FileRef          `json:"file"`
	Processed int              `json:"processed"`
	Inserted  int              `json:"inserted"`
	Rejected  map[string][]int `json:"rejected,omitempty"` // 错误类别到行号
}

// AnalysisRequestedPayload 请求（重新）分析.
type AnalysisRequestedPayload struct {
	File   FileRef `json:"file"`
	TaskID string  `json:"task_id,omitempty"`
	Reason string  `json:"reason,omitempty"` // upload/manual/cron
}

// ProgressPayload 分析进度.
// Stage 为 ingest/trip/detect/scoring/aggregate/pipeline 之一.
type ProgressPayload struct {
	File     FileRef `json:"file"`
	UserID   string  `json:"user_id,omitempty"`
	TaskID   string  `json:"task_id,omitempty"`
	Stage    string  `json:"stage,omitempty"`
	Progress int     `json:"progress,omitempty"` // 0-100，未知时为 0
	Message  string  `json:"message"`
}

// AnalysisCompletedPayload 分析完成.
type AnalysisCompletedPayload struct {
	File             FileRef `json:"file"`
	TaskID           string  `json:"task_id,omitempty"`
	TripCount        int64   `json:"trip_count"`
	RuleAnomalyCount int64   `json:"rule_anomaly_count"`
	ScoreAnomalyCnt  int64   `json:"score_anomaly_count"`
	AvgLeadTimeSec   float64 `json:"avg_lead_time_sec"`
	DurationMs       int64   `json:"duration_ms"`
}

// AnalysisFailedPayload 分析失败.
type AnalysisFailedPayload struct {
	File   FileRef `json:"file"`
	TaskID string  `json:"task_id,omitempty"`
	Stage  string  `json:"stage,omitempty"`
	Error  string  `json:"error"`
}
