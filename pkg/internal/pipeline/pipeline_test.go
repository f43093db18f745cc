package pipeline_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hsk3232/DevelopProject/pkg/configs"
	"github.com/hsk3232/DevelopProject/pkg/internal/detect"
	"github.com/hsk3232/DevelopProject/pkg/internal/errs"
	"github.com/hsk3232/DevelopProject/pkg/internal/ingest"
	"github.com/hsk3232/DevelopProject/pkg/internal/lookup"
	"github.com/hsk3232/DevelopProject/pkg/internal/model"
	"github.com/hsk3232/DevelopProject/pkg/internal/pipeline"
	"github.com/hsk3232/DevelopProject/pkg/internal/repository"
	"github.com/hsk3232/DevelopProject/pkg/internal/repository/repotest"
	"github.com/hsk3232/DevelopProject/pkg/internal/scoring"
	"github.com/hsk3232/DevelopProject/pkg/internal/serial"
	"github.com/hsk3232/DevelopProject/pkg/internal/storage/lock"
	"github.com/hsk3232/DevelopProject/pkg/internal/trip"
	"github.com/hsk3232/DevelopProject/pkg/queue"
)

const scenarioCSV = "location_id,scan_location,operator_id,device_id,epc_code,epc_header,epc_lot,epc_serial," +
	"epc_product,epc_company,product_name,event_time,business_step,event_type,hub_type\n" +
	"1,화성공장,1,10,001.8805843.0000001.050002.20250701.000000005,001,050002,5,0000001,8805843,Product 1," +
	"2025-07-01 10:00:00,Factory,Aggregation,HWS_Factory\n" +
	"2,강남_소매상1,2,20,001.8805843.0000001.050002.20250701.000000005,001,050002,5,0000001,8805843,Product 1," +
	"2025-07-01 11:00:00,POS_Sell,POS_Sell,HWS_Factory\n"

type env struct {
	repo   *repository.Repository
	file   *model.File
	scorer *httptest.Server
	pubsub *gochannel.GoChannel
	locker lock.Locker
}

func setup(t *testing.T, withRoute bool, scoreHandler http.HandlerFunc) *env {
	t.Helper()

	ctx := context.Background()
	repo := repotest.Open(t)
	file := repotest.SeedFile(t, repo, "scenario.csv")

	res, err := ingest.New(repo, nil, ingest.Options{Location: time.UTC}).Ingest(ctx, file, strings.NewReader(scenarioCSV))
	require.NoError(t, err)
	require.Equal(t, 2, res.Inserted)

	if withRoute {
		require.NoError(t, repo.SaveAssetRoutes(ctx, []model.AssetRoute{{FromLocationID: 1, ToLocationID: 2}}))
	}

	require.NoError(t, repo.SaveAssetProducts(ctx, []model.AssetProduct{
		{CompanyCode: "8805843", ProductCode: "0000001", ProductName: "Product 1"},
	}))

	if scoreHandler == nil {
		scoreHandler = func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"fileId":1,"eventHistory":null}`))
		}
	}

	srv := httptest.NewServer(scoreHandler)
	t.Cleanup(srv.Close)

	pubsub := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 16, Persistent: true}, watermill.NopLogger{})
	t.Cleanup(func() { _ = pubsub.Close() })

	return &env{repo: repo, file: file, scorer: srv, pubsub: pubsub, locker: lock.NewLocal(lock.Options{TTL: time.Minute})}
}

func (e *env) orchestrator(t *testing.T) *pipeline.Orchestrator {
	t.Helper()

	sc, err := scoring.New(e.repo, nil, configs.ScoringConfig{
		URL: e.scorer.URL, BatchSize: 10, RetryMaxAttempts: 1, RetryDelayMs: 1,
		ConnectTimeoutMs: 1000, ReadTimeoutMs: 5000,
	})
	require.NoError(t, err)

	return pipeline.NewOrchestrator(pipeline.Deps{
		Store:      e.repo,
		Trips:      trip.New(e.repo, 100),
		Detector:   detect.NewRunner(e.repo, serial.New(), 100),
		Lookups:    lookup.NewProvider(e.repo, nil, 0),
		Scorer:     sc,
		Aggregator: pipeline.NewAggregator(e.repo, 0.95),
		Locker:     e.locker,
		Publisher:  e.pubsub,
	}, pipeline.WithTimeout(time.Minute))
}

func TestEndToEndValidRoute(t *testing.T) {
	e := setup(t, true, nil)

	summary, err := e.orchestrator(t).Run(context.Background(), e.file.ID, "")
	require.NoError(t, err)

	assert.EqualValues(t, 2, summary.TotalEventCount)
	assert.EqualValues(t, 1, summary.TripCount)
	assert.EqualValues(t, 1, summary.ItemCount)
	assert.Zero(t, summary.RuleAnomalyCount)
	assert.Zero(t, summary.ScoreAnomalyCount)
	assert.InDelta(t, 3600, summary.AvgLeadTimeSec, 0.001)
	assert.InDelta(t, 100, summary.SalesRate, 0.001)
	assert.InDelta(t, 100, summary.DispatchRate, 0.001)

	stored, err := e.repo.FindSummary(context.Background(), e.file.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, stored.TripCount)
}

func TestEndToEndRouteViolation(t *testing.T) {
	e := setup(t, false, nil)
	ctx := context.Background()

	ch, err := e.pubsub.Subscribe(ctx, queue.TopicAnalysisCompleted)
	require.NoError(t, err)

	summary, err := e.orchestrator(t).Run(ctx, e.file.ID, "alice")
	require.NoError(t, err)
	assert.EqualValues(t, 1, summary.RuleAnomalyCount)
	assert.EqualValues(t, 1, summary.TamperCount)

	anomalies, err := e.repo.RuleAnomalies(ctx, e.file.ID, 0, 10)
	require.NoError(t, err)
	require.Len(t, anomalies, 1)
	assert.Equal(t, model.DetailRouteViolation, anomalies[0].DetailType)

	pos, err := e.repo.FindEvent(ctx, anomalies[0].EventID)
	require.NoError(t, err)
	assert.Equal(t, model.StepPOS, pos.BusinessStep)

	select {
	case msg := <-ch:
		got, err := queue.ParseWatermillMessage[queue.AnalysisCompletedPayload](msg)
		require.NoError(t, err)
		assert.EqualValues(t, 1, got.Payload.RuleAnomalyCount)
		msg.Ack()
	case <-time.After(2 * time.Second):
		t.Fatal("analysis completed event not published")
	}
}

func TestRerunReplacesResults(t *testing.T) {
	e := setup(t, false, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[{"fileId":1,"eventHistory":[{"eventId":1,"anomalyScore":0.97},{"eventId":2,"anomalyScore":0.2}]}]`))
	})
	o := e.orchestrator(t)
	ctx := context.Background()

	for range 2 {
		summary, err := o.Run(ctx, e.file.ID, "alice")
		require.NoError(t, err)
		assert.EqualValues(t, 1, summary.TripCount)
		assert.EqualValues(t, 1, summary.RuleAnomalyCount)
		assert.EqualValues(t, 2, summary.ScoreAnomalyCount)
		assert.EqualValues(t, 1, summary.HighConfidenceCount)
		assert.InDelta(t, 0.585, summary.AvgScore, 0.0001)
	}

	trips, err := e.repo.TripsByFile(ctx, e.file.ID)
	require.NoError(t, err)
	assert.Len(t, trips, 1)
}

func TestRunLocked(t *testing.T) {
	e := setup(t, true, nil)
	ctx := context.Background()

	held, err := e.locker.Obtain(ctx, lock.FileKey(e.file.ID))
	require.NoError(t, err)
	defer held.Release(ctx)

	_, err = e.orchestrator(t).Run(ctx, e.file.ID, "alice")
	require.ErrorIs(t, err, errs.ErrAnalysisLocked)
}

func TestRunScoringFailure(t *testing.T) {
	e := setup(t, true, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	ctx := context.Background()

	ch, err := e.pubsub.Subscribe(ctx, queue.TopicAnalysisFailed)
	require.NoError(t, err)

	_, err = e.orchestrator(t).Run(ctx, e.file.ID, "alice")
	require.ErrorIs(t, err, errs.ErrTransport)

	var se *pipeline.StageError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "scoring", se.Stage)

	select {
	case msg := <-ch:
		got, err := queue.ParseWatermillMessage[queue.AnalysisFailedPayload](msg)
		require.NoError(t, err)
		assert.Equal(t, "scoring", got.Payload.Stage)
		msg.Ack()
	case <-time.After(2 * time.Second):
		t.Fatal("analysis failed event not published")
	}

	// 锁在失败后释放
	l, err := e.locker.Obtain(ctx, lock.FileKey(e.file.ID))
	require.NoError(t, err)
	require.NoError(t, l.Release(ctx))
}

func TestRunMissingFile(t *testing.T) {
	e := setup(t, true, nil)

	_, err := e.orchestrator(t).Run(context.Background(), 9999, "alice")
	require.ErrorIs(t, err, errs.ErrFileNotFound)

	_, err = pipeline.NewAggregator(e.repo, 0.95).Aggregate(context.Background(), 9999)
	require.ErrorIs(t, err, errs.ErrFileNotFound)
}

func TestSummarize(t *testing.T) {
	s := pipeline.Summarize(7, &repository.FileCounts{
		Events:          10,
		Trips:           6,
		Products:        2,
		Items:           3,
		ItemsWithPOS:    1,
		ItemsWithTrips:  2,
		RuleAnomalies:   map[string]int64{model.AnomalyFake: 2, model.AnomalyTamper: 3},
		ScoreAnomalies:  4,
		ScoreSum:        2.5,
		HighConfidence:  1,
		LeadTimeSamples: 3,
		LeadTimeSumSec:  100,
	})

	assert.Equal(t, uint(7), s.FileID)
	assert.EqualValues(t, 5, s.RuleAnomalyCount)
	assert.EqualValues(t, 2, s.FakeCount)
	assert.EqualValues(t, 3, s.TamperCount)
	assert.Zero(t, s.CloneCount)
	assert.InDelta(t, 33.3, s.SalesRate, 1e-9)
	assert.InDelta(t, 66.7, s.DispatchRate, 1e-9)
	assert.InDelta(t, 33.33, s.AvgLeadTimeSec, 1e-9)
	assert.InDelta(t, 0.625, s.AvgScore, 1e-9)

	empty := pipeline.Summarize(1, &repository.FileCounts{})
	assert.Zero(t, empty.SalesRate)
	assert.Zero(t, empty.AvgLeadTimeSec)
}
