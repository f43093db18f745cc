package jobs_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hsk3232/DevelopProject/pkg/configs"
	"github.com/hsk3232/DevelopProject/pkg/internal/jobs"
	"github.com/hsk3232/DevelopProject/pkg/internal/repository/repotest"
	"github.com/hsk3232/DevelopProject/pkg/internal/service"
	"github.com/hsk3232/DevelopProject/pkg/internal/storage"
	dbc "github.com/hsk3232/DevelopProject/pkg/internal/storage/db"
	"github.com/hsk3232/DevelopProject/pkg/scheduler"
)

const scenario = "location_id,scan_location,operator_id,device_id,epc_code,epc_header,epc_lot,epc_serial," +
	"epc_product,epc_company,product_name,event_time,business_step,event_type,hub_type\n" +
	"1,화성공장,1,10,001.8805843.0000001.050002.20250701.000000005,001,050002,5,0000001,8805843,Product 1," +
	"2025-07-01 10:00:00,Factory,Aggregation,HWS_Factory\n"

func newRuntime(t *testing.T) *service.Runtime {
	t.Helper()

	require.NoError(t, configs.InitConfig(t.TempDir()))

	cfg := configs.GetConfig()
	cfg.Analysis.ScoringEnabled = false
	cfg.Events.Enabled = false
	cfg.Ingest.AutoAnalyze = false

	repo := repotest.Open(t)

	rt, err := service.NewRuntime(&storage.Manager{DB: &dbc.Client{DB: repo.DB()}}, nil, cfg)
	require.NoError(t, err)

	return rt
}

func TestAnalyzePending(t *testing.T) {
	rt := newRuntime(t)
	ctx := service.WithRuntime(context.Background(), rt)

	for range 2 {
		_, err := service.NewFileService(ctx).Upload(ctx, "alice", "scenario.csv", strings.NewReader(scenario), int64(len(scenario)))
		require.NoError(t, err)
	}

	done, err := jobs.AnalyzePending(ctx, rt, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, done)

	done, err = jobs.AnalyzePending(ctx, rt, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, done)

	done, err = jobs.AnalyzePending(ctx, rt, 10)
	require.NoError(t, err)
	assert.Zero(t, done)
}

func TestRefreshLookups(t *testing.T) {
	rt := newRuntime(t)

	require.NoError(t, jobs.RefreshLookups(context.Background(), rt))
}

func TestRegisterCronJobs(t *testing.T) {
	rt := newRuntime(t)

	sched, err := scheduler.NewScheduler()
	require.NoError(t, err)

	t.Cleanup(func() { _ = sched.Stop() })

	require.NoError(t, jobs.RegisterCronJobs(sched, rt))

	infos := sched.GetJobInfos()
	require.Len(t, infos, 2)
	assert.Equal(t, jobs.JobPendingAnalyze, infos[0].Name)
	assert.Equal(t, jobs.JobLookupRefresh, infos[1].Name)

	require.Error(t, jobs.RegisterCronJobs(sched, rt))
	require.Error(t, jobs.RegisterCronJobs(nil, rt))
}
