// Package ingest 将扫描日志 CSV 分块解析为地点、产品、物品与事件并写入存储.
//
// 每个分块依次完成：主数据提取、批量插入主数据、回填数据库 id、
// 逐行解析事件并去重、批量插入事件，最后推送一条进度消息.
// 行级错误记录在 Result.ErrorRows 中，不会中断导入.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/hsk3232/DevelopProject/pkg/configs"
	"github.com/hsk3232/DevelopProject/pkg/internal/model"
	"github.com/hsk3232/DevelopProject/pkg/internal/notify"
	nlog "github.com/hsk3232/DevelopProject/pkg/log"
	"github.com/hsk3232/DevelopProject/pkg/metrics"
	"github.com/hsk3232/DevelopProject/pkg/tracing"
)

// 行错误类别.
const (
	CategoryTimeFormat = "event_time 날짜 형식 오류"
	CategoryRejected   = "참조오류/중복/시간누락"
)

// DefaultManufactureLayout manufacture_date 的格式.
const DefaultManufactureLayout = "2006-01-02 15:04:05"

// Store 导入所需的存储操作.
type Store interface {
	LocationIDs(ctx context.Context) ([]uint64, error)
	ProductsByFile(ctx context.Context, fileID uint) ([]model.Product, error)
	ItemsByFile(ctx context.Context, fileID uint) ([]model.Item, error)
	EventKeyHashes(ctx context.Context, fileID uint) ([]int64, error)

	CreateLocations(ctx context.Context, locs []model.Location) error
	CreateProducts(ctx context.Context, products []model.Product) error
	CreateItems(ctx context.Context, items []model.Item) error
	CreateEvents(ctx context.Context, events []model.Event) error

	FindProducts(ctx context.Context, fileID uint, keys []string) ([]model.Product, error)
	FindItems(ctx context.Context, fileID uint, codes []string) ([]model.Item, error)
}

// Options 导入参数.
type Options struct {
	ChunkSize         int
	EventTimeLayout   string
	ManufactureLayout string
	ExpiryLayout      string
	Location          *time.Location
}

// OptionsFromConfig 由配置构建导入参数.
func OptionsFromConfig(cfg *configs.IngestConfig) Options {
	opts := Options{
		ChunkSize:       cfg.ChunkSize,
		EventTimeLayout: cfg.EventTimeFmt,
		ExpiryLayout:    cfg.ExpiryDateFmt,
	}

	if cfg.TimeZone != "" {
		if loc, err := time.LoadLocation(cfg.TimeZone); err == nil {
			opts.Location = loc
		} else {
			nlog.Logger().Warn().Err(err).Str("time_zone", cfg.TimeZone).Msg("无法加载时区，使用本地时区")
		}
	}

	return opts
}

func (o *Options) normalize() {
	if o.ChunkSize <= 0 {
		o.ChunkSize = configs.DefaultIngestChunkSize
	}

	if o.EventTimeLayout == "" {
		o.EventTimeLayout = configs.DefaultIngestEventTimeFmt
	}

	if o.ManufactureLayout == "" {
		o.ManufactureLayout = DefaultManufactureLayout
	}

	if o.ExpiryLayout == "" {
		o.ExpiryLayout = configs.DefaultIngestExpiryDateFmt
	}

	if o.Location == nil {
		o.Location = time.Local
	}
}

// Result 导入结果.
type Result struct {
	Processed int              `json:"processed"`
	Inserted  int              `json:"inserted"`
	ErrorRows map[string][]int `json:"error_rows,omitempty"`
}

// Rejected 返回被拒绝的行数（同一行可能出现在多个类别中，按类别计数）.
func (r *Result) Rejected() int {
	n := 0
	for _, rows := range r.ErrorRows {
		n += len(rows)
	}

	return n
}

func (r *Result) addError(category string, rowNum int) {
	if r.ErrorRows == nil {
		r.ErrorRows = make(map[string][]int)
	}

	r.ErrorRows[category] = append(r.ErrorRows[category], rowNum)
}

// Ingester CSV 导入器，实例可复用，单次 Ingest 调用非并发安全.
type Ingester struct {
	store    Store
	notifier notify.Notifier
	opts     Options
}

// New 创建导入器.
func New(store Store, notifier notify.Notifier, opts Options) *Ingester {
	opts.normalize()

	if notifier == nil {
		notifier = notify.Nop{}
	}

	return &Ingester{store: store, notifier: notifier, opts: opts}
}

// importCache 导入期间的主数据与去重状态.
type importCache struct {
	locations map[uint64]struct{}
	products  map[string]uint
	items     map[string]uint
	seen      map[int64]struct{}
}

func (in *Ingester) seed(ctx context.Context, fileID uint) (*importCache, error) {
	c := &importCache{
		locations: make(map[uint64]struct{}),
		products:  make(map[string]uint),
		items:     make(map[string]uint),
		seen:      make(map[int64]struct{}),
	}

	locIDs, err := in.store.LocationIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("load locations: %w", err)
	}

	for _, id := range locIDs {
		c.locations[id] = struct{}{}
	}

	products, err := in.store.ProductsByFile(ctx, fileID)
	if err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}

	for i := range products {
		if _, ok := c.products[products[i].CacheKey()]; !ok {
			c.products[products[i].CacheKey()] = products[i].ID
		}
	}

	items, err := in.store.ItemsByFile(ctx, fileID)
	if err != nil {
		return nil, fmt.Errorf("load items: %w", err)
	}

	for i := range items {
		c.items[items[i].Code] = items[i].ID
	}

	hashes, err := in.store.EventKeyHashes(ctx, fileID)
	if err != nil {
		return nil, fmt.Errorf("load event keys: %w", err)
	}

	for _, h := range hashes {
		c.seen[h] = struct{}{}
	}

	return c, nil
}

// Ingest 导入 r 中的 CSV 到 file. 表头缺失或缺列时在处理任何行之前返回 errs.ErrInvalidFormat；
// 读取失败时中止，已提交的分块保留.
func (in *Ingester) Ingest(ctx context.Context, file *model.File, r io.Reader) (res *Result, err error) {
	ctx, span := tracing.StartSpan(ctx, "ingest.Ingest", tracing.WithFileID(file.ID))
	defer func() { tracing.EndSpan(span, err) }()
	defer metrics.ObserveStage(metrics.StageIngest, time.Now())

	log := nlog.Component("ingest")
	rep := notify.NewReporter(in.notifier, file.UploadedBy, file.ID, "")

	rr, err := newRowReader(r)
	if err != nil {
		return nil, err
	}

	cache, err := in.seed(ctx, file.ID)
	if err != nil {
		return nil, err
	}

	res = &Result{}
	chunk := make([]row, 0, in.opts.ChunkSize)

	flush := func() error {
		if len(chunk) == 0 {
			return nil
		}

		inserted, err := in.processChunk(ctx, file.ID, chunk, cache, res)
		if err != nil {
			return err
		}

		res.Processed += len(chunk)
		res.Inserted += inserted
		chunk = chunk[:0]

		rep.Send(ctx, notify.StageIngest, fmt.Sprintf("파싱 진행: %d행 처리", res.Processed))

		return nil
	}

	for {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		rw, err := rr.Next()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return res, err
		}

		chunk = append(chunk, rw)
		if len(chunk) >= in.opts.ChunkSize {
			if err := flush(); err != nil {
				return res, err
			}
		}
	}

	if err := flush(); err != nil {
		return res, err
	}

	metrics.IngestRows.WithLabelValues(metrics.ResultAccepted).Add(float64(res.Inserted))
	metrics.IngestRows.WithLabelValues(metrics.ResultRejected).Add(float64(res.Processed - res.Inserted))

	log.Info().
		Uint("file_id", file.ID).
		Int("processed", res.Processed).
		Int("inserted", res.Inserted).
		Int("rejected", res.Processed-res.Inserted).
		Msg("CSV 导入完成")

	return res, nil
}

// processChunk 处理一个分块，返回写入的事件数.
func (in *Ingester) processChunk(ctx context.Context, fileID uint, rows []row, cache *importCache, res *Result) (int, error) {
	if err := in.saveMasters(ctx, fileID, rows, cache); err != nil {
		return 0, err
	}

	events := make([]model.Event, 0, len(rows))
	chunkKeys := make(map[string]struct{}, len(rows))

	for _, rw := range rows {
		ev, ok := in.buildEvent(fileID, rw, cache, res)
		if !ok {
			res.addError(CategoryRejected, rw.Num)

			continue
		}

		key := EventKey(fileID, ev.ItemID, ev.LocationID, ev.ProductID, ev.EventTime, ev.BusinessStep, ev.EventType)
		if _, dup := chunkKeys[key]; dup {
			res.addError(CategoryRejected, rw.Num)

			continue
		}

		chunkKeys[key] = struct{}{}

		ev.KeyHash = HashKey(key)
		if _, dup := cache.seen[ev.KeyHash]; dup {
			res.addError(CategoryRejected, rw.Num)

			continue
		}

		cache.seen[ev.KeyHash] = struct{}{}
		events = append(events, ev)
	}

	if len(events) > 0 {
		if err := in.store.CreateEvents(ctx, events); err != nil {
			return 0, fmt.Errorf("save events: %w", err)
		}
	}

	return len(events), nil
}

// buildEvent 解析一行事件，引用无法解析或时间缺失时返回 false.
func (in *Ingester) buildEvent(fileID uint, rw row, cache *importCache, res *Result) (model.Event, bool) {
	itemID, itemOK := cache.items[rw.Get(ColEPCCode)]
	productID, productOK := cache.products[model.ProductKey(rw.Get(ColEPCCompany), rw.Get(ColEPCProduct))]

	locationID, locErr := strconv.ParseUint(rw.Get(ColLocationID), 10, 64)
	_, locOK := cache.locations[locationID]
	locOK = locOK && locErr == nil

	var (
		eventTime time.Time
		timeOK    bool
	)

	if raw := rw.Get(ColEventTime); raw != "" {
		t, err := time.ParseInLocation(in.opts.EventTimeLayout, raw, in.opts.Location)
		if err != nil {
			res.addError(CategoryTimeFormat, rw.Num)
		} else {
			eventTime, timeOK = t, true
		}
	}

	if !itemOK || !productOK || !locOK || !timeOK {
		return model.Event{}, false
	}

	original := rw.Get(ColBusinessStep)

	return model.Event{
		FileID:           fileID,
		ItemID:           itemID,
		LocationID:       locationID,
		ProductID:        productID,
		HubType:          rw.Get(ColHubType),
		BusinessStep:     NormalizeStep(original),
		BusinessOriginal: original,
		EventType:        rw.Get(ColEventType),
		EventTime:        eventTime,
	}, true
}
