package scoring

import (
	"fmt"

	"github.com/bytedance/sonic"

	"github.com/hsk3232/DevelopProject/pkg/internal/errs"
	"github.com/hsk3232/DevelopProject/pkg/internal/model"
)

// EventTimeLayout 请求中 eventTime 的格式.
const EventTimeLayout = "2006-01-02T15:04:05"

// EventData 发送给评分服务的单个事件.
type EventData struct {
	EventID      uint   `json:"eventId"`
	LocationID   uint64 `json:"locationId"`
	BusinessStep string `json:"businessStep"`
	EventType    string `json:"eventType"`
	EventTime    string `json:"eventTime"`
}

// ExportRecord 一个 EPC 的全部事件.
type ExportRecord struct {
	EPCCode string      `json:"epcCode"`
	Events  []EventData `json:"events"`
}

// Request 批量请求体.
type Request struct {
	Data []ExportRecord `json:"data"`
}

// AnomalyEvent 响应中的单个事件评分.
type AnomalyEvent struct {
	EventID      *uint64  `json:"eventId"`
	AnomalyScore *float64 `json:"anomalyScore"`
}

// ImportPayload 响应中的单个文件结果.
type ImportPayload struct {
	FileID       *uint64        `json:"fileId"`
	EventHistory []AnomalyEvent `json:"eventHistory"`
}

// Export 按物品编码分组事件，保持首次出现的顺序.
func Export(events []model.EventWithItem) []ExportRecord {
	index := make(map[string]int)

	var out []ExportRecord

	for i := range events {
		ev := &events[i]

		pos, ok := index[ev.ItemCode]
		if !ok {
			pos = len(out)
			index[ev.ItemCode] = pos
			out = append(out, ExportRecord{EPCCode: ev.ItemCode})
		}

		out[pos].Events = append(out[pos].Events, EventData{
			EventID:      ev.ID,
			LocationID:   ev.LocationID,
			BusinessStep: ev.BusinessStep,
			EventType:    ev.EventType,
			EventTime:    ev.EventTime.Format(EventTimeLayout),
		})
	}

	return out
}

// ParseResponse 先按数组解析，失败时按单个对象解析.
func ParseResponse(body []byte) ([]ImportPayload, error) {
	var list []ImportPayload
	if err := sonic.Unmarshal(body, &list); err == nil {
		return list, nil
	}

	var single ImportPayload
	if err := sonic.Unmarshal(body, &single); err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrParse, err)
	}

	return []ImportPayload{single}, nil
}
