package trip_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hsk3232/DevelopProject/pkg/internal/model"
	"github.com/hsk3232/DevelopProject/pkg/internal/repository/repotest"
	"github.com/hsk3232/DevelopProject/pkg/internal/trip"
)

type fakeStore struct {
	events  []model.EventWithItem
	batches [][]model.Trip
	saveErr error
}

func (f *fakeStore) StreamEvents(_ context.Context, _ uint, fn func(*model.EventWithItem) error) error {
	for i := range f.events {
		if err := fn(&f.events[i]); err != nil {
			return err
		}
	}

	return nil
}

func (f *fakeStore) SaveTrips(_ context.Context, trips []model.Trip) error {
	if f.saveErr != nil {
		return f.saveErr
	}

	f.batches = append(f.batches, append([]model.Trip(nil), trips...))

	return nil
}

func ev(id, item uint, loc uint64, at time.Time) model.EventWithItem {
	return model.EventWithItem{Event: model.Event{ID: id, FileID: 1, ItemID: item, LocationID: loc, EventTime: at}}
}

func TestGenerateTripsPerItem(t *testing.T) {
	base := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)

	// 物品 1 三个事件 → 2 条行程；物品 2 一个事件 → 0 条；物品 3 两个事件 → 1 条
	store := &fakeStore{events: []model.EventWithItem{
		ev(1, 1, 10, base),
		ev(2, 1, 20, base.Add(time.Hour)),
		ev(3, 1, 30, base.Add(2*time.Hour)),
		ev(4, 2, 10, base),
		ev(5, 3, 10, base),
		ev(6, 3, 40, base.Add(30*time.Minute)),
	}}

	n, err := trip.New(store, 2).Generate(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	require.Len(t, store.batches, 2)
	assert.Len(t, store.batches[0], 2)
	assert.Len(t, store.batches[1], 1)

	first := store.batches[0][0]
	assert.Equal(t, uint64(10), first.FromLocationID)
	assert.Equal(t, uint64(20), first.ToLocationID)
	assert.Equal(t, uint(2), first.EventID)
	assert.Equal(t, time.Hour, first.LeadTime())

	last := store.batches[1][0]
	assert.Equal(t, uint(3), last.ItemID)
	assert.Equal(t, uint(6), last.EventID)
}

func TestGenerateSingleEvent(t *testing.T) {
	store := &fakeStore{events: []model.EventWithItem{ev(1, 1, 10, time.Now())}}

	n, err := trip.New(store, 10).Generate(context.Background(), 1)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, store.batches)
}

func TestGenerateSaveError(t *testing.T) {
	base := time.Now()
	store := &fakeStore{
		events:  []model.EventWithItem{ev(1, 1, 10, base), ev(2, 1, 20, base.Add(time.Minute))},
		saveErr: errors.New("disk full"),
	}

	_, err := trip.New(store, 1).Generate(context.Background(), 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestGenerateWithRepository(t *testing.T) {
	repo := repotest.Open(t)
	file := repotest.SeedFile(t, repo, "trips.csv")
	ctx := context.Background()

	require.NoError(t, repo.CreateLocations(ctx, []model.Location{{ID: 1, ScanLocation: "A"}, {ID: 2, ScanLocation: "B"}}))
	require.NoError(t, repo.CreateProducts(ctx, []model.Product{{FileID: file.ID, CompanyCode: "c", ProductCode: "p", ProductName: "n"}}))
	require.NoError(t, repo.CreateItems(ctx, []model.Item{{FileID: file.ID, Code: "epc-1"}}))

	products, err := repo.ProductsByFile(ctx, file.ID)
	require.NoError(t, err)
	items, err := repo.ItemsByFile(ctx, file.ID)
	require.NoError(t, err)

	base := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repo.CreateEvents(ctx, []model.Event{
		{FileID: file.ID, ItemID: items[0].ID, LocationID: 2, ProductID: products[0].ID, BusinessStep: "WMS", EventType: "in", EventTime: base.Add(time.Hour), KeyHash: 2},
		{FileID: file.ID, ItemID: items[0].ID, LocationID: 1, ProductID: products[0].ID, BusinessStep: "Factory", EventType: "out", EventTime: base, KeyHash: 1},
	}))

	n, err := trip.New(repo, 100).Generate(ctx, file.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	trips, err := repo.TripsByFile(ctx, file.ID)
	require.NoError(t, err)
	require.Len(t, trips, 1)
	assert.Equal(t, "A", trips[0].FromScanLocation)
	assert.Equal(t, "B", trips[0].ToScanLocation)
	assert.Equal(t, time.Hour, trips[0].LeadTime())
}
