// Package detect 运行确定性的规则检测器.
//
// 检测器按优先级顺序执行并共享同一个 ClaimSet：
// 一个物品一旦被某个检测器标记，后续检测器不再处理它.
package detect

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/hsk3232/DevelopProject/pkg/configs"
	"github.com/hsk3232/DevelopProject/pkg/internal/lookup"
	"github.com/hsk3232/DevelopProject/pkg/internal/model"
	"github.com/hsk3232/DevelopProject/pkg/internal/serial"
	nlog "github.com/hsk3232/DevelopProject/pkg/log"
	"github.com/hsk3232/DevelopProject/pkg/metrics"
	"github.com/hsk3232/DevelopProject/pkg/tracing"
)

// Input 一次检测运行的输入，检测器只读.
type Input struct {
	FileID       uint
	Items        []uint // 物品 id 升序
	EventsByItem map[uint][]model.EventWithItem
	TripsByItem  map[uint][]model.Trip
	Lookup       *lookup.Lookup
	Serials      *serial.Validator
	Now          time.Time
}

// ClaimSet 已被标记的物品.
type ClaimSet map[uint]struct{}

// Claimed 物品是否已被标记.
func (c ClaimSet) Claimed(itemID uint) bool {
	_, ok := c[itemID]

	return ok
}

// Claim 标记物品.
func (c ClaimSet) Claim(itemID uint) { c[itemID] = struct{}{} }

// Detector 规则检测器.
type Detector interface {
	Name() string
	Priority() int
	Detect(in *Input, claimed ClaimSet) []model.RuleAnomaly
}

// Store 检测所需的存储操作.
type Store interface {
	EventsWithItem(ctx context.Context, fileID uint) ([]model.EventWithItem, error)
	TripsByFile(ctx context.Context, fileID uint) ([]model.Trip, error)
	SaveRuleAnomalies(ctx context.Context, anomalies []model.RuleAnomaly) error
}

// Runner 检测流水线.
type Runner struct {
	store     Store
	serials   *serial.Validator
	detectors []Detector
	batchSize int
}

// NewRunner 创建检测流水线，detectors 为空时使用默认检测器.
func NewRunner(store Store, serials *serial.Validator, batchSize int, detectors ...Detector) *Runner {
	if len(detectors) == 0 {
		detectors = Defaults()
	}

	if batchSize <= 0 {
		batchSize = configs.DefaultAnalysisBatchSize
	}

	sorted := slices.Clone(detectors)
	slices.SortStableFunc(sorted, func(a, b Detector) int { return cmp.Compare(a.Priority(), b.Priority()) })

	return &Runner{store: store, serials: serials, detectors: sorted, batchSize: batchSize}
}

// Defaults 默认检测器集合.
func Defaults() []Detector {
	return []Detector{RouteViolation{}, ProductMismatch{}}
}

// Detectors 按执行顺序返回检测器.
func (r *Runner) Detectors() []Detector {
	return slices.Clone(r.detectors)
}

// BuildInput 将事件与行程按物品分组.
func BuildInput(fileID uint, events []model.EventWithItem, trips []model.Trip, lk *lookup.Lookup, serials *serial.Validator) *Input {
	in := &Input{
		FileID:       fileID,
		EventsByItem: make(map[uint][]model.EventWithItem),
		TripsByItem:  make(map[uint][]model.Trip),
		Lookup:       lk,
		Serials:      serials,
		Now:          time.Now(),
	}

	for _, ev := range events {
		if _, ok := in.EventsByItem[ev.ItemID]; !ok {
			in.Items = append(in.Items, ev.ItemID)
		}

		in.EventsByItem[ev.ItemID] = append(in.EventsByItem[ev.ItemID], ev)
	}

	for _, t := range trips {
		in.TripsByItem[t.ItemID] = append(in.TripsByItem[t.ItemID], t)
	}

	slices.Sort(in.Items)

	return in
}

// Evaluate 依次运行检测器并合并结果，不落库.
func (r *Runner) Evaluate(in *Input) []model.RuleAnomaly {
	claimed := ClaimSet{}

	var all []model.RuleAnomaly

	for _, d := range r.detectors {
		found := d.Detect(in, claimed)
		for _, a := range found {
			metrics.RuleAnomalies.WithLabelValues(a.AnomalyType, d.Name()).Inc()
		}

		all = append(all, found...)
	}

	return all
}

// Run 读取文件数据、运行检测器并分批保存，返回异常条数.
func (r *Runner) Run(ctx context.Context, fileID uint, lk *lookup.Lookup) (count int, err error) {
	ctx, span := tracing.StartSpan(ctx, "detect.Run", tracing.WithFileID(fileID))
	defer func() { tracing.EndSpan(span, err) }()
	defer metrics.ObserveStage(metrics.StageDetect, time.Now())

	events, err := r.store.EventsWithItem(ctx, fileID)
	if err != nil {
		return 0, fmt.Errorf("load events: %w", err)
	}

	trips, err := r.store.TripsByFile(ctx, fileID)
	if err != nil {
		return 0, fmt.Errorf("load trips: %w", err)
	}

	anomalies := r.Evaluate(BuildInput(fileID, events, trips, lk, r.serials))

	for chunk := range slices.Chunk(anomalies, r.batchSize) {
		if err := r.store.SaveRuleAnomalies(ctx, chunk); err != nil {
			return count, fmt.Errorf("save rule anomalies: %w", err)
		}

		count += len(chunk)
	}

	nlog.Component("detect").Info().
		Uint("file_id", fileID).
		Int("events", len(events)).
		Int("anomalies", count).
		Msg("规则检测完成")

	return count, nil
}

func newAnomaly(in *Input, ev *model.EventWithItem, anomalyType, detail, detector string) model.RuleAnomaly {
	return model.RuleAnomaly{
		FileID:      in.FileID,
		EventID:     ev.ID,
		ItemID:      ev.ItemID,
		AnomalyType: anomalyType,
		DetailType:  detail,
		Detector:    detector,
		DetectedAt:  in.Now,
	}
}
