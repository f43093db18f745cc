// Package report 将文件的统计与异常明细导出为 xlsx 工作簿.
package report

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"github.com/hsk3232/DevelopProject/pkg/internal/model"
	nlog "github.com/hsk3232/DevelopProject/pkg/log"
)

// ContentType xlsx 的 MIME 类型.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// 工作表名称.
const (
	SheetSummary = "Summary"
	SheetRule    = "RuleAnomalies"
	SheetScore   = "ScoreAnomalies"
)

const timeLayout = "2006-01-02 15:04:05"

// Store 导出所需的读取操作.
type Store interface {
	FindFile(ctx context.Context, fileID uint) (*model.File, error)
	FindSummary(ctx context.Context, fileID uint) (*model.Summary, error)
	EventsWithItem(ctx context.Context, fileID uint) ([]model.EventWithItem, error)
	RuleAnomalies(ctx context.Context, fileID uint, offset, limit int) ([]model.RuleAnomaly, error)
	ScoreAnomalies(ctx context.Context, fileID uint, offset, limit int) ([]model.ScoreAnomaly, error)
}

// Exporter 生成异常报表.
type Exporter struct {
	store Store
}

// New 创建 Exporter.
func New(store Store) *Exporter {
	return &Exporter{store: store}
}

// FileName 报表下载文件名.
func FileName(f *model.File) string {
	return fmt.Sprintf("epcguard-report-%d.xlsx", f.ID)
}

// Export 把文件 fileID 的报表写入 w. 尚未分析的文件只输出文件信息.
func (e *Exporter) Export(ctx context.Context, fileID uint, w io.Writer) error {
	file, err := e.store.FindFile(ctx, fileID)
	if err != nil {
		return err
	}

	summary, err := e.store.FindSummary(ctx, fileID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("load summary: %w", err)
	}

	events, err := e.store.EventsWithItem(ctx, fileID)
	if err != nil {
		return fmt.Errorf("load events: %w", err)
	}

	byID := make(map[uint]*model.EventWithItem, len(events))
	for i := range events {
		byID[events[i].ID] = &events[i]
	}

	rules, err := e.store.RuleAnomalies(ctx, fileID, 0, 0)
	if err != nil {
		return fmt.Errorf("load rule anomalies: %w", err)
	}

	scores, err := e.store.ScoreAnomalies(ctx, fileID, 0, 0)
	if err != nil {
		return fmt.Errorf("load score anomalies: %w", err)
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		return err
	}

	if err := writeSummary(f, file, summary); err != nil {
		return fmt.Errorf("write summary sheet: %w", err)
	}

	if err := writeRules(f, rules, byID); err != nil {
		return fmt.Errorf("write rule sheet: %w", err)
	}

	if err := writeScores(f, scores, byID); err != nil {
		return fmt.Errorf("write score sheet: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}

	nlog.Logger().Info().
		Uint("file_id", fileID).
		Int("rule_anomalies", len(rules)).
		Int("score_anomalies", len(scores)).
		Msg("报表已导出")

	return nil
}

func writeSummary(f *excelize.File, file *model.File, s *model.Summary) error {
	rows := [][]any{
		{"file_id", file.ID},
		{"file_name", file.FileName},
		{"uploaded_by", file.UploadedBy},
		{"uploaded_at", file.CreatedAt.Format(timeLayout)},
	}

	if s != nil {
		rows = append(rows,
			[]any{"total_event_count", s.TotalEventCount},
			[]any{"trip_count", s.TripCount},
			[]any{"unique_product_count", s.UniqueProductCount},
			[]any{"code_count", s.ItemCount},
			[]any{"sales_rate", s.SalesRate},
			[]any{"dispatch_rate", s.DispatchRate},
			[]any{"avg_lead_time", s.AvgLeadTimeSec},
			[]any{"total_error_count", s.RuleAnomalyCount},
			[]any{"fake_count", s.FakeCount},
			[]any{"tamper_count", s.TamperCount},
			[]any{"clone_count", s.CloneCount},
			[]any{"ai_total_anomaly_count", s.ScoreAnomalyCount},
			[]any{"average_anomaly_score", s.AvgScore},
			[]any{"high_confidence_anomaly_count", s.HighConfidenceCount},
			[]any{"analyzed_at", s.UpdatedAt.Format(timeLayout)},
		)
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}

		if err := f.SetSheetRow(SheetSummary, cell, &row); err != nil {
			return err
		}
	}

	return f.SetColWidth(SheetSummary, "A", "A", 32)
}

var eventHeader = []any{"epc_code", "scan_location", "business_step", "event_type", "event_time"}

func eventCells(ev *model.EventWithItem) []any {
	if ev == nil {
		return []any{"", "", "", "", ""}
	}

	return []any{ev.ItemCode, ev.ScanLocation, ev.BusinessStep, ev.EventType, formatTime(ev.EventTime)}
}

func writeRules(f *excelize.File, rules []model.RuleAnomaly, byID map[uint]*model.EventWithItem) error {
	header := append([]any{"event_id", "anomaly_type", "anomaly_detailed_type", "detector"}, eventHeader...)

	return streamSheet(f, SheetRule, header, len(rules), func(i int) []any {
		a := rules[i]

		return append([]any{a.EventID, a.AnomalyType, a.DetailType, a.Detector}, eventCells(byID[a.EventID])...)
	})
}

func writeScores(f *excelize.File, scores []model.ScoreAnomaly, byID map[uint]*model.EventWithItem) error {
	header := append([]any{"event_id", "anomaly_score"}, eventHeader...)

	return streamSheet(f, SheetScore, header, len(scores), func(i int) []any {
		a := scores[i]

		return append([]any{a.EventID, a.Score}, eventCells(byID[a.EventID])...)
	})
}

// streamSheet 以流式写入新建工作表，适合异常明细这类大表.
func streamSheet(f *excelize.File, sheet string, header []any, n int, row func(i int) []any) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return err
	}

	if err := sw.SetRow("A1", header); err != nil {
		return err
	}

	for i := range n {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}

		if err := sw.SetRow(cell, row(i)); err != nil {
			return err
		}
	}

	return sw.Flush()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}

	return t.Format(timeLayout)
}
