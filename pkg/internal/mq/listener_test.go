package mq_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hsk3232/DevelopProject/pkg/configs"
	"github.com/hsk3232/DevelopProject/pkg/internal/mq"
	"github.com/hsk3232/DevelopProject/pkg/internal/repository"
	"github.com/hsk3232/DevelopProject/pkg/internal/repository/repotest"
	"github.com/hsk3232/DevelopProject/pkg/internal/service"
	"github.com/hsk3232/DevelopProject/pkg/internal/storage"
	dbc "github.com/hsk3232/DevelopProject/pkg/internal/storage/db"
	mqc "github.com/hsk3232/DevelopProject/pkg/internal/storage/mq"
)

const scenario = "location_id,scan_location,operator_id,device_id,epc_code,epc_header,epc_lot,epc_serial," +
	"epc_product,epc_company,product_name,event_time,business_step,event_type,hub_type\n" +
	"1,화성공장,1,10,001.8805843.0000001.050002.20250701.000000005,001,050002,5,0000001,8805843,Product 1," +
	"2025-07-01 10:00:00,Factory,Aggregation,HWS_Factory\n"

func setup(t *testing.T, autoAnalyze bool) (context.Context, *repository.Repository) {
	t.Helper()

	require.NoError(t, configs.InitConfig(t.TempDir()))

	cfg := configs.GetConfig()
	cfg.Analysis.ScoringEnabled = false
	cfg.Events.Enabled = true
	cfg.Events.Publish.FileIngested = true
	cfg.Ingest.AutoAnalyze = autoAnalyze

	client, err := mqc.New(context.Background(), &configs.MQConfig{Type: configs.MQTypeMemory})
	require.NoError(t, err)

	t.Cleanup(func() { _ = client.Close() })

	repo := repotest.Open(t)
	mgr := &storage.Manager{DB: &dbc.Client{DB: repo.DB()}, MQ: client}

	rt, err := service.NewRuntime(mgr, nil, cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())

	l := mq.NewListener(rt, client)
	require.NoError(t, l.Start(ctx))

	t.Cleanup(func() {
		cancel()
		l.Wait()
	})

	return service.WithRuntime(ctx, rt), repo
}

func TestIngestedEventTriggersAnalysis(t *testing.T) {
	ctx, repo := setup(t, true)

	up, err := service.NewFileService(ctx).Upload(ctx, "alice", "scenario.csv", strings.NewReader(scenario), int64(len(scenario)))
	require.NoError(t, err)
	assert.True(t, up.Analyzing)

	require.Eventually(t, func() bool {
		_, err := repo.FindSummary(context.Background(), up.FileID)

		return err == nil
	}, 5*time.Second, 20*time.Millisecond)
}

func TestAnalysisRequestedViaMQ(t *testing.T) {
	ctx, repo := setup(t, false)

	up, err := service.NewFileService(ctx).Upload(ctx, "alice", "scenario.csv", strings.NewReader(scenario), int64(len(scenario)))
	require.NoError(t, err)
	assert.False(t, up.Analyzing)

	resp, err := service.NewAnalysisService(ctx).Request(ctx, "alice", up.FileID, service.ReasonManual)
	require.NoError(t, err)
	assert.Equal(t, "mq", resp.Via)

	require.Eventually(t, func() bool {
		_, err := repo.FindSummary(context.Background(), up.FileID)

		return err == nil
	}, 5*time.Second, 20*time.Millisecond)
}

func TestStartWithoutClient(t *testing.T) {
	require.Error(t, mq.NewListener(nil, nil).Start(context.Background()))
}
