package detect

import (
	"slices"

	"github.com/hsk3232/DevelopProject/pkg/internal/model"
)

// RouteViolation 检测参考路线表之外的移动.
type RouteViolation struct{}

// Name 实现 Detector.
func (RouteViolation) Name() string { return "route_violation" }

// Priority 实现 Detector.
func (RouteViolation) Priority() int { return 1 }

// Detect 对每个物品按时间检查相邻事件，首条非法边的目的事件记为 Tamper.
func (d RouteViolation) Detect(in *Input, claimed ClaimSet) []model.RuleAnomaly {
	var out []model.RuleAnomaly

	for _, itemID := range in.Items {
		if claimed.Claimed(itemID) {
			continue
		}

		events := sortByTime(in.EventsByItem[itemID])

		for i := 1; i < len(events); i++ {
			from, to := events[i-1].LocationID, events[i].LocationID
			if from == 0 || to == 0 {
				continue
			}

			if !in.Lookup.IsValidRoute(from, to) {
				out = append(out, newAnomaly(in, &events[i], model.AnomalyTamper, model.DetailRouteViolation, d.Name()))
				claimed.Claim(itemID)

				break
			}
		}
	}

	return out
}

// sortByTime 按事件时间稳定排序，零值时间排在最后.
func sortByTime(events []model.EventWithItem) []model.EventWithItem {
	sorted := slices.Clone(events)
	slices.SortStableFunc(sorted, func(a, b model.EventWithItem) int {
		switch {
		case a.EventTime.IsZero() && b.EventTime.IsZero():
			return 0
		case a.EventTime.IsZero():
			return 1
		case b.EventTime.IsZero():
			return -1
		default:
			return a.EventTime.Compare(b.EventTime)
		}
	})

	return sorted
}
