package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hsk3232/DevelopProject/pkg/internal/errs"
	"github.com/hsk3232/DevelopProject/pkg/internal/model"
	"github.com/hsk3232/DevelopProject/pkg/internal/repository"
	"github.com/hsk3232/DevelopProject/pkg/internal/repository/repotest"
)

func seedEvents(t *testing.T, repo *repository.Repository, fileID uint) (model.Item, model.Item) {
	t.Helper()

	ctx := context.Background()

	require.NoError(t, repo.CreateLocations(ctx, []model.Location{
		{ID: 1, ScanLocation: "화성공장"},
		{ID: 2, ScanLocation: "수도권물류센터"},
	}))
	require.NoError(t, repo.CreateProducts(ctx, []model.Product{
		{FileID: fileID, CompanyCode: "8805843", ProductCode: "0000001", ProductName: "Product 1"},
	}))
	require.NoError(t, repo.CreateItems(ctx, []model.Item{
		{FileID: fileID, Code: "001.8805843.0000001.000001.20250701.000000001", Lot: "000001", Serial: "1"},
		{FileID: fileID, Code: "001.8805843.0000001.000001.20250701.000000002", Lot: "000001", Serial: "2"},
	}))

	products, err := repo.ProductsByFile(ctx, fileID)
	require.NoError(t, err)
	require.Len(t, products, 1)

	items, err := repo.ItemsByFile(ctx, fileID)
	require.NoError(t, err)
	require.Len(t, items, 2)

	base := time.Date(2025, 7, 1, 10, 0, 0, 0, time.UTC)
	events := []model.Event{
		{FileID: fileID, ItemID: items[1].ID, LocationID: 1, ProductID: products[0].ID, BusinessStep: model.StepFactory, EventType: "Aggregation", EventTime: base, KeyHash: 11},
		{FileID: fileID, ItemID: items[0].ID, LocationID: 2, ProductID: products[0].ID, BusinessStep: model.StepWMS, EventType: "WMS_Inbound", EventTime: base.Add(time.Hour), KeyHash: 12},
		{FileID: fileID, ItemID: items[0].ID, LocationID: 1, ProductID: products[0].ID, BusinessStep: model.StepFactory, EventType: "Aggregation", EventTime: base, KeyHash: 13},
	}
	require.NoError(t, repo.CreateEvents(ctx, events))

	return items[0], items[1]
}

func TestFindFileNotFound(t *testing.T) {
	repo := repotest.Open(t)

	_, err := repo.FindFile(context.Background(), 42)
	assert.ErrorIs(t, err, errs.ErrFileNotFound)
}

func TestMasterInsertIgnoresDuplicates(t *testing.T) {
	repo := repotest.Open(t)
	ctx := context.Background()
	f := repotest.SeedFile(t, repo, "a.csv")

	seedEvents(t, repo, f.ID)

	// 重复插入不报错也不新增
	require.NoError(t, repo.CreateLocations(ctx, []model.Location{{ID: 1, ScanLocation: "dup"}}))
	require.NoError(t, repo.CreateEvents(ctx, []model.Event{{FileID: f.ID, ItemID: 1, LocationID: 1, ProductID: 1, BusinessStep: "x", EventType: "y", EventTime: time.Now(), KeyHash: 11}}))

	ids, err := repo.LocationIDs(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint64{1, 2}, ids)

	hashes, err := repo.EventKeyHashes(ctx, f.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{11, 12, 13}, hashes)
}

func TestFindItemsAndProducts(t *testing.T) {
	repo := repotest.Open(t)
	ctx := context.Background()
	f := repotest.SeedFile(t, repo, "a.csv")
	first, _ := seedEvents(t, repo, f.ID)

	items, err := repo.FindItems(ctx, f.ID, []string{first.Code, "missing"})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, first.ID, items[0].ID)

	products, err := repo.FindProducts(ctx, f.ID, []string{model.ProductKey("8805843", "0000001")})
	require.NoError(t, err)
	assert.Len(t, products, 1)
}

func TestStreamEventsOrder(t *testing.T) {
	repo := repotest.Open(t)
	ctx := context.Background()
	f := repotest.SeedFile(t, repo, "a.csv")
	first, second := seedEvents(t, repo, f.ID)

	var got []model.EventWithItem

	require.NoError(t, repo.StreamEvents(ctx, f.ID, func(ev *model.EventWithItem) error {
		got = append(got, *ev)

		return nil
	}))

	require.Len(t, got, 3)
	assert.Equal(t, first.ID, got[0].ItemID)
	assert.Equal(t, model.StepFactory, got[0].BusinessStep)
	assert.Equal(t, "화성공장", got[0].ScanLocation)
	assert.Equal(t, first.Code, got[0].ItemCode)
	assert.Equal(t, first.ID, got[1].ItemID)
	assert.Equal(t, model.StepWMS, got[1].BusinessStep)
	assert.Equal(t, second.ID, got[2].ItemID)
	assert.Equal(t, "Product 1", got[2].ProductName)

	all, err := repo.EventsWithItem(ctx, f.ID)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestScoreAnomalyUpsertAndDeleteDerived(t *testing.T) {
	repo := repotest.Open(t)
	ctx := context.Background()
	f := repotest.SeedFile(t, repo, "a.csv")
	seedEvents(t, repo, f.ID)

	require.NoError(t, repo.SaveScoreAnomalies(ctx, []model.ScoreAnomaly{{FileID: f.ID, EventID: 1, Score: 0.5, AnalyzedAt: time.Now()}}))
	require.NoError(t, repo.SaveScoreAnomalies(ctx, []model.ScoreAnomaly{{FileID: f.ID, EventID: 1, Score: 0.97, AnalyzedAt: time.Now()}}))
	require.NoError(t, repo.SaveRuleAnomalies(ctx, []model.RuleAnomaly{{FileID: f.ID, EventID: 2, AnomalyType: model.AnomalyTamper, DetailType: model.DetailRouteViolation}}))

	scores, err := repo.ScoreAnomalies(ctx, f.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, scores, 1)
	assert.InDelta(t, 0.97, scores[0].Score, 1e-9)

	require.NoError(t, repo.DeleteDerived(ctx, f.ID))

	scores, err = repo.ScoreAnomalies(ctx, f.ID, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, scores)

	rules, err := repo.RuleAnomalies(ctx, f.ID, 0, 10)
	require.NoError(t, err)
	assert.Empty(t, rules)
}

func TestCountFileAndSummary(t *testing.T) {
	repo := repotest.Open(t)
	ctx := context.Background()
	f := repotest.SeedFile(t, repo, "a.csv")
	first, _ := seedEvents(t, repo, f.ID)

	base := time.Date(2025, 7, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, repo.SaveTrips(ctx, []model.Trip{{
		FileID: f.ID, ItemID: first.ID, FromLocationID: 1, ToLocationID: 2,
		FromEventTime: base, ToEventTime: base.Add(time.Hour), EventID: 2,
	}}))
	require.NoError(t, repo.SaveRuleAnomalies(ctx, []model.RuleAnomaly{
		{FileID: f.ID, EventID: 2, AnomalyType: model.AnomalyTamper, DetailType: model.DetailRouteViolation},
		{FileID: f.ID, EventID: 1, AnomalyType: model.AnomalyFake, DetailType: model.DetailUnknownProduct},
	}))
	require.NoError(t, repo.SaveScoreAnomalies(ctx, []model.ScoreAnomaly{
		{FileID: f.ID, EventID: 1, Score: 0.99},
		{FileID: f.ID, EventID: 2, Score: 0.5},
	}))

	c, err := repo.CountFile(ctx, f.ID, 0.95)
	require.NoError(t, err)
	assert.EqualValues(t, 3, c.Events)
	assert.EqualValues(t, 1, c.Trips)
	assert.EqualValues(t, 2, c.Items)
	assert.EqualValues(t, 1, c.Products)
	assert.EqualValues(t, 1, c.ItemsWithTrips)
	assert.EqualValues(t, 0, c.ItemsWithPOS)
	assert.EqualValues(t, 1, c.RuleAnomalies[model.AnomalyTamper])
	assert.EqualValues(t, 1, c.RuleAnomalies[model.AnomalyFake])
	assert.EqualValues(t, 2, c.ScoreAnomalies)
	assert.InDelta(t, 1.49, c.ScoreSum, 1e-9)
	assert.EqualValues(t, 1, c.HighConfidence)
	assert.EqualValues(t, 1, c.LeadTimeSamples)
	assert.InDelta(t, 3600, c.LeadTimeSumSec, 1e-6)

	require.NoError(t, repo.UpsertSummary(ctx, &model.Summary{FileID: f.ID, TripCount: 1}))
	require.NoError(t, repo.UpsertSummary(ctx, &model.Summary{FileID: f.ID, TripCount: 5}))

	s, err := repo.FindSummary(ctx, f.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 5, s.TripCount)

	pending, err := repo.FilesWithoutSummary(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestListFilesCursor(t *testing.T) {
	repo := repotest.Open(t)
	ctx := context.Background()

	for _, name := range []string{"a.csv", "b.csv", "c.csv"} {
		repotest.SeedFile(t, repo, name)
	}

	page, err := repo.ListFiles(ctx, repository.FileQuery{Size: 2})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "c.csv", page[0].FileName)

	next, err := repo.ListFiles(ctx, repository.FileQuery{Size: 2, Cursor: page[1].ID})
	require.NoError(t, err)
	require.Len(t, next, 1)
	assert.Equal(t, "a.csv", next[0].FileName)

	search, err := repo.ListFiles(ctx, repository.FileQuery{Search: "b"})
	require.NoError(t, err)
	require.Len(t, search, 1)

	pending, err := repo.FilesWithoutSummary(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, pending, 3)
}
