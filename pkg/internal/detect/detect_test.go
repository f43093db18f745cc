package detect_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hsk3232/DevelopProject/pkg/internal/detect"
	"github.com/hsk3232/DevelopProject/pkg/internal/lookup"
	"github.com/hsk3232/DevelopProject/pkg/internal/model"
	"github.com/hsk3232/DevelopProject/pkg/internal/serial"
)

var base = time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC)

func testLookup() *lookup.Lookup {
	return lookup.New(lookup.Snapshot{
		Routes:       []string{lookup.RouteKey(1, 2), lookup.RouteKey(2, 3)},
		ProductCodes: []string{"0000001"},
		CompanyCodes: []string{"8805843"},
		ProductNames: []string{"Product 1"},
	})
}

type itemSpec struct {
	company, product, name string
	lot, serial            string
	locations              []uint64
}

var knownProduct = itemSpec{company: "8805843", product: "0000001", name: "Product 1", lot: "50002", serial: "5"}

func (s itemSpec) with(f func(*itemSpec)) itemSpec {
	f(&s)

	return s
}

func buildEvents(specs map[uint]itemSpec) []model.EventWithItem {
	var (
		out []model.EventWithItem
		id  uint
	)

	for itemID := uint(1); itemID <= uint(len(specs)); itemID++ {
		s := specs[itemID]
		for i, loc := range s.locations {
			id++
			out = append(out, model.EventWithItem{
				Event: model.Event{
					ID: id, FileID: 1, ItemID: itemID, LocationID: loc,
					HubType: "HWS_Factory", EventTime: base.Add(time.Duration(i) * time.Hour),
				},
				Lot: s.lot, Serial: s.serial,
				CompanyCode: s.company, ProductCode: s.product, ProductName: s.name,
			})
		}
	}

	return out
}

func byItem(anomalies []model.RuleAnomaly) map[uint][]model.RuleAnomaly {
	out := map[uint][]model.RuleAnomaly{}
	for _, a := range anomalies {
		out[a.ItemID] = append(out[a.ItemID], a)
	}

	return out
}

func TestRunnerEvaluate(t *testing.T) {
	valid := []uint64{1, 2, 3}

	specs := map[uint]itemSpec{
		1: knownProduct.with(func(s *itemSpec) { s.locations = valid }),
		2: knownProduct.with(func(s *itemSpec) { s.locations = []uint64{1, 3}; s.company = "0000000" }),
		3: knownProduct.with(func(s *itemSpec) { s.locations = []uint64{1, 2}; s.company = "9999999" }),
		4: {company: "1", product: "2", name: "x", lot: "1", serial: "abc", locations: []uint64{1, 2}},
		5: knownProduct.with(func(s *itemSpec) { s.locations = valid; s.serial = "5000" }),
		6: knownProduct.with(func(s *itemSpec) { s.locations = valid; s.serial = "x12" }),
		7: {company: "1", product: "2", name: "x", lot: "10001", serial: "abc", locations: []uint64{1}},
	}

	events := buildEvents(specs)
	runner := detect.NewRunner(nil, serial.New(), 10)
	in := detect.BuildInput(1, events, nil, testLookup(), serial.New())

	got := byItem(runner.Evaluate(in))

	assert.Empty(t, got[1], "valid item must not be flagged")

	// 路线违规只记录在目的事件上，且物品被认领后不再被产品检测器标记
	require.Len(t, got[2], 1)
	assert.Equal(t, model.DetailRouteViolation, got[2][0].DetailType)
	assert.Equal(t, model.AnomalyTamper, got[2][0].AnomalyType)
	assert.Equal(t, "route_violation", got[2][0].Detector)

	require.Len(t, got[3], 2)
	assert.Equal(t, model.DetailPartialMismatch, got[3][0].DetailType)

	require.Len(t, got[4], 2)
	assert.Equal(t, model.AnomalyFake, got[4][0].AnomalyType)
	assert.Equal(t, model.DetailUnknownProduct, got[4][1].DetailType)

	require.Len(t, got[5], 3)
	assert.Equal(t, model.DetailSerialRule, got[5][2].DetailType)

	require.Len(t, got[6], 3)
	assert.Equal(t, model.DetailInvalidSerial, got[6][0].DetailType)

	require.Len(t, got[7], 1)
	assert.Equal(t, model.DetailPartialMismatch, got[7][0].DetailType, "known lot makes it a tamper")
}

func TestRouteViolationFirstEdgeOnly(t *testing.T) {
	events := buildEvents(map[uint]itemSpec{
		1: knownProduct.with(func(s *itemSpec) { s.locations = []uint64{1, 3, 1, 3} }),
	})

	in := detect.BuildInput(1, events, nil, testLookup(), serial.New())
	claimed := detect.ClaimSet{}

	got := detect.RouteViolation{}.Detect(in, claimed)
	require.Len(t, got, 1)
	assert.Equal(t, events[1].ID, got[0].EventID)
	assert.True(t, claimed.Claimed(1))
}

func TestRouteViolationSkipsMissingLocation(t *testing.T) {
	events := buildEvents(map[uint]itemSpec{
		1: knownProduct.with(func(s *itemSpec) { s.locations = []uint64{1, 0, 3} }),
	})

	in := detect.BuildInput(1, events, nil, testLookup(), serial.New())

	assert.Empty(t, detect.RouteViolation{}.Detect(in, detect.ClaimSet{}))
}

func TestRouteViolationSortsByTime(t *testing.T) {
	events := buildEvents(map[uint]itemSpec{
		1: knownProduct.with(func(s *itemSpec) { s.locations = []uint64{2, 1} }),
	})
	// 时间倒置后实际路径为 1->2
	events[0].EventTime, events[1].EventTime = events[1].EventTime, events[0].EventTime

	in := detect.BuildInput(1, events, nil, testLookup(), serial.New())

	assert.Empty(t, detect.RouteViolation{}.Detect(in, detect.ClaimSet{}))
}

type claimAll struct{}

func (claimAll) Name() string  { return "claim_all" }
func (claimAll) Priority() int { return 0 }

func (claimAll) Detect(in *detect.Input, claimed detect.ClaimSet) []model.RuleAnomaly {
	for _, id := range in.Items {
		claimed.Claim(id)
	}

	return nil
}

type fakeStore struct {
	events  []model.EventWithItem
	batches [][]model.RuleAnomaly
}

func (f *fakeStore) EventsWithItem(context.Context, uint) ([]model.EventWithItem, error) {
	return f.events, nil
}

func (f *fakeStore) TripsByFile(context.Context, uint) ([]model.Trip, error) { return nil, nil }

func (f *fakeStore) SaveRuleAnomalies(_ context.Context, a []model.RuleAnomaly) error {
	f.batches = append(f.batches, a)

	return nil
}

func TestRunnerPriorityAndBatches(t *testing.T) {
	events := buildEvents(map[uint]itemSpec{
		1: {company: "1", product: "2", name: "x", lot: "1", serial: "abc", locations: []uint64{1, 2, 3}},
	})

	store := &fakeStore{events: events}

	n, err := detect.NewRunner(store, serial.New(), 2).Run(context.Background(), 1, testLookup())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	require.Len(t, store.batches, 2)
	assert.Len(t, store.batches[0], 2)
	assert.Len(t, store.batches[1], 1)

	store.batches = nil
	runner := detect.NewRunner(store, serial.New(), 2, detect.ProductMismatch{}, claimAll{})
	assert.Equal(t, "claim_all", runner.Detectors()[0].Name())

	n, err = runner.Run(context.Background(), 1, testLookup())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, store.batches)
}
