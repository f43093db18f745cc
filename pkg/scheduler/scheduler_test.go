package scheduler_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hsk3232/DevelopProject/pkg/scheduler"
)

func TestAddCronRejectsDuplicatesAndBadExpr(t *testing.T) {
	s, err := scheduler.NewScheduler()
	require.NoError(t, err)

	t.Cleanup(func() { _ = s.Stop() })

	noop := func(context.Context) error { return nil }

	require.NoError(t, s.AddCron("a", "*/5 * * * *", noop))
	require.Error(t, s.AddCron("a", "*/5 * * * *", noop))
	require.Error(t, s.AddCron("b", "not a cron", noop))

	info, ok := s.GetJobInfo("a")
	require.True(t, ok)
	assert.Equal(t, scheduler.StatusScheduled, info.Status)
	assert.Equal(t, "*/5 * * * *", info.CronExpr)
}

func TestNextRunAfterStart(t *testing.T) {
	s, err := scheduler.NewScheduler()
	require.NoError(t, err)

	t.Cleanup(func() { _ = s.Stop() })

	require.NoError(t, s.AddCron("a", "*/5 * * * *", func(context.Context) error { return nil }))

	s.Start()

	require.Eventually(t, func() bool {
		info, _ := s.GetJobInfo("a")

		return info.NextRun.After(time.Now())
	}, 5*time.Second, 20*time.Millisecond)

	infos := s.GetJobInfos()
	require.Len(t, infos, 1)
	assert.False(t, infos[0].NextRun.IsZero())
}

func TestRunNowRecordsOutcome(t *testing.T) {
	s, err := scheduler.NewScheduler()
	require.NoError(t, err)

	t.Cleanup(func() { _ = s.Stop() })

	require.NoError(t, s.AddCron("ok", "0 0 1 1 *", func(context.Context) error { return nil }))
	require.NoError(t, s.AddCron("fail", "0 0 1 1 *", func(context.Context) error { return errors.New("boom") }))
	require.NoError(t, s.AddCron("panic", "0 0 1 1 *", func(context.Context) error { panic("bad") }))

	s.Start()

	for _, name := range []string{"ok", "fail", "panic"} {
		require.NoError(t, s.RunNow(name))
	}

	require.Eventually(t, func() bool {
		for _, info := range s.GetJobInfos() {
			if info.Runs == 0 {
				return false
			}
		}

		return true
	}, 5*time.Second, 20*time.Millisecond)

	ok, _ := s.GetJobInfo("ok")
	assert.Equal(t, scheduler.StatusScheduled, ok.Status)
	assert.False(t, ok.LastSuccess.IsZero())

	fail, _ := s.GetJobInfo("fail")
	assert.Equal(t, scheduler.StatusError, fail.Status)
	assert.Equal(t, "boom", fail.Error)
	assert.Equal(t, 1, fail.Failures)

	p, _ := s.GetJobInfo("panic")
	assert.Equal(t, scheduler.StatusError, p.Status)
	assert.Contains(t, p.Error, "panic")

	require.Error(t, s.RunNow("missing"))
}
