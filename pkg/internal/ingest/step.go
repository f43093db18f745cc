package ingest

import (
	"strings"

	"github.com/hsk3232/DevelopProject/pkg/internal/model"
)

// NormalizeStep 将原始 business_step 归一化，按顺序首个匹配生效，均不匹配时原样返回.
func NormalizeStep(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))

	switch {
	case strings.Contains(s, "factory"):
		return model.StepFactory
	case strings.Contains(s, "wms"):
		return model.StepWMS
	case strings.Contains(s, "logistics_hub"), strings.Contains(s, "logi"), strings.Contains(s, "hub"):
		return model.StepLogiHub
	case strings.HasPrefix(s, "w_stock"):
		return model.StepWholesaler
	case strings.HasPrefix(s, "r_stock"):
		return model.StepReseller
	case strings.Contains(s, "pos"):
		return model.StepPOS
	default:
		return raw
	}
}
