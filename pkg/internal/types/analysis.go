package types

import "github.com/hsk3232/DevelopProject/pkg/internal/model"

// 异常列表的类别.
const (
	AnomalyKindRule  = "rule"
	AnomalyKindScore = "score"
)

// AnalyzeResponse 分析请求已受理.
type AnalyzeResponse struct {
	FileID uint   `json:"file_id"`
	Status string `json:"status"`
	Via    string `json:"via"` // mq 或 local
}

// ListAnomaliesRequest 异常列表分页参数.
type ListAnomaliesRequest struct {
	Kind   string `form:"kind"   rule:"omitempty,oneof=rule score"`
	Offset int    `form:"offset" rule:"min=0"`
	Limit  int    `form:"limit"  rule:"omitempty,min=1,max=1000"`
}

// ListAnomaliesResponse 规则异常或评分异常其中一类.
type ListAnomaliesResponse struct {
	FileID uint                 `json:"file_id"`
	Kind   string               `json:"kind"`
	Rule   []model.RuleAnomaly  `json:"rule,omitempty"`
	Score  []model.ScoreAnomaly `json:"score,omitempty"`
}
