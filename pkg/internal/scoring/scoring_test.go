package scoring_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hsk3232/DevelopProject/pkg/configs"
	"github.com/hsk3232/DevelopProject/pkg/internal/errs"
	"github.com/hsk3232/DevelopProject/pkg/internal/model"
	"github.com/hsk3232/DevelopProject/pkg/internal/notify"
	"github.com/hsk3232/DevelopProject/pkg/internal/scoring"
)

type fakeStore struct {
	mu     sync.Mutex
	events []model.EventWithItem
	saved  []model.ScoreAnomaly
}

func (f *fakeStore) EventsWithItem(context.Context, uint) ([]model.EventWithItem, error) {
	return f.events, nil
}

func (f *fakeStore) SaveScoreAnomalies(_ context.Context, a []model.ScoreAnomaly) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.saved = append(f.saved, a...)

	return nil
}

func newStore() *fakeStore {
	at := time.Date(2025, 7, 1, 10, 0, 0, 0, time.UTC)

	return &fakeStore{events: []model.EventWithItem{
		{Event: model.Event{ID: 1, ItemID: 1, LocationID: 10, BusinessStep: "Factory", EventType: "Aggregation", EventTime: at}, ItemCode: "epc-a"},
		{Event: model.Event{ID: 2, ItemID: 1, LocationID: 20, BusinessStep: "WMS", EventType: "WMS_Inbound", EventTime: at.Add(time.Hour)}, ItemCode: "epc-a"},
		{Event: model.Event{ID: 3, ItemID: 2, LocationID: 10, BusinessStep: "Factory", EventType: "Aggregation", EventTime: at}, ItemCode: "epc-b"},
		{Event: model.Event{ID: 4, ItemID: 3, LocationID: 10, BusinessStep: "Factory", EventType: "Aggregation", EventTime: at}, ItemCode: "epc-c"},
	}}
}

func testConfig(url string) configs.ScoringConfig {
	return configs.ScoringConfig{
		URL:              url,
		BatchSize:        2,
		RetryMaxAttempts: 2,
		RetryDelayMs:     10,
		BatchDelayMs:     10,
		ConnectTimeoutMs: 1000,
		ReadTimeoutMs:    5000,
	}
}

type sleepRecorder struct{ calls []time.Duration }

func (s *sleepRecorder) sleep(_ context.Context, d time.Duration) error {
	s.calls = append(s.calls, d)

	return nil
}

// echoHandler 对请求中的每个事件返回 0.5 分，并附带一个不属于该文件的事件与一个空分数.
func echoHandler(t *testing.T, requests *atomic.Int32) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		var req scoring.Request
		require.NoError(t, sonic.Unmarshal(body, &req))

		var history []map[string]any
		for _, rec := range req.Data {
			for _, ev := range rec.Events {
				history = append(history, map[string]any{"eventId": ev.EventID, "anomalyScore": 0.5})
			}
		}

		history = append(history,
			map[string]any{"eventId": 999, "anomalyScore": 0.9},
			map[string]any{"eventId": 1, "anomalyScore": nil},
		)

		out, _ := sonic.Marshal([]map[string]any{{"fileId": 1, "eventHistory": history}})
		_, _ = w.Write(out)
	}
}

func TestExportGroupsByItemCode(t *testing.T) {
	records := scoring.Export(newStore().events)

	require.Len(t, records, 3)
	assert.Equal(t, "epc-a", records[0].EPCCode)
	require.Len(t, records[0].Events, 2)
	assert.Equal(t, uint(2), records[0].Events[1].EventID)
	assert.Equal(t, "2025-07-01T11:00:00", records[0].Events[1].EventTime)
	assert.Equal(t, "epc-c", records[2].EPCCode)
}

func TestAnalyzeBatches(t *testing.T) {
	var requests atomic.Int32

	srv := httptest.NewServer(echoHandler(t, &requests))
	defer srv.Close()

	store := newStore()
	sleeper := &sleepRecorder{}

	var msgs []string
	n := notify.Func(func(_ context.Context, ev notify.Event) { msgs = append(msgs, ev.Message) })

	c, err := scoring.New(store, n, testConfig(srv.URL), scoring.WithSleep(sleeper.sleep))
	require.NoError(t, err)

	saved, err := c.Analyze(context.Background(), 1, "alice")
	require.NoError(t, err)

	assert.EqualValues(t, 2, requests.Load())
	assert.Equal(t, 4, saved)
	assert.Len(t, store.saved, 4)
	assert.Equal(t, []time.Duration{10 * time.Millisecond}, sleeper.calls, "only between batches")

	assert.Equal(t, "[AI] 이벤트 수집 시작", msgs[0])
	assert.Equal(t, "[AI] 이벤트 수집 완료: EPC 3개", msgs[1])
	assert.Equal(t, "[AI] 전송: EPC 1 ~ 2 / 3", msgs[2])
	assert.Equal(t, "[AI] 전체 처리 완료: 총 저장 4건", msgs[len(msgs)-1])
}

func TestAnalyzeRetryBound(t *testing.T) {
	var requests atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		requests.Add(1)
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	sleeper := &sleepRecorder{}

	c, err := scoring.New(newStore(), nil, testConfig(srv.URL), scoring.WithSleep(sleeper.sleep))
	require.NoError(t, err)

	_, err = c.Analyze(context.Background(), 1, "alice")
	require.ErrorIs(t, err, errs.ErrTransport)
	assert.True(t, scoring.IsStatus(err, http.StatusInternalServerError))
	assert.EqualValues(t, 3, requests.Load(), "retry_max_attempts + 1")
	assert.Len(t, sleeper.calls, 2)
}

func TestAnalyzeRetryThenSuccess(t *testing.T) {
	var (
		requests atomic.Int32
		echoed   atomic.Int32
	)

	echo := echoHandler(t, &echoed)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requests.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)

			return
		}

		echo(w, r)
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.BatchSize = 10

	c, err := scoring.New(newStore(), nil, cfg, scoring.WithSleep((&sleepRecorder{}).sleep))
	require.NoError(t, err)

	saved, err := c.Analyze(context.Background(), 1, "")
	require.NoError(t, err)
	assert.Equal(t, 4, saved)
	assert.EqualValues(t, 2, requests.Load())
}

func TestAnalyzeResponseShapes(t *testing.T) {
	cases := map[string]struct {
		body    string
		saved   int
		wantErr error
	}{
		"null eventHistory": {body: `[{"fileId":1,"eventHistory":null}]`},
		"missing history":   {body: `{"fileId":1}`},
		"single object":     {body: `{"fileId":1,"eventHistory":[{"eventId":3,"anomalyScore":0.97}]}`, saved: 1},
		"not json":          {body: `<html>oops</html>`, wantErr: errs.ErrParse},
		"null event id":     {body: `[{"eventHistory":[{"eventId":null,"anomalyScore":0.3}]}]`},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			cfg := testConfig(srv.URL)
			cfg.BatchSize = 10

			store := newStore()
			c, err := scoring.New(store, nil, cfg)
			require.NoError(t, err)

			saved, err := c.Analyze(context.Background(), 1, "alice")
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.saved, saved)
		})
	}
}

func TestAnalyzeNoEvents(t *testing.T) {
	var requests atomic.Int32

	srv := httptest.NewServer(echoHandler(t, &requests))
	defer srv.Close()

	c, err := scoring.New(&fakeStore{}, nil, testConfig(srv.URL))
	require.NoError(t, err)

	saved, err := c.Analyze(context.Background(), 1, "alice")
	require.NoError(t, err)
	assert.Zero(t, saved)
	assert.Zero(t, requests.Load())
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig("http://localhost:8000/analyze")
	cfg.BatchSize = 0

	_, err := scoring.New(&fakeStore{}, nil, cfg)
	require.ErrorIs(t, err, errs.ErrInvalidConfig)

	cfg = testConfig("   ")
	_, err = scoring.New(&fakeStore{}, nil, cfg)
	require.ErrorIs(t, err, errs.ErrInvalidConfig)
}

func TestBreakerOpens(t *testing.T) {
	var requests atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.RetryMaxAttempts = 5

	c, err := scoring.New(newStore(), nil, cfg,
		scoring.WithSleep((&sleepRecorder{}).sleep),
		scoring.WithBreaker(configs.CircuitBreakerConfig{
			FailureRate: 0.5, MinRequests: 2, IntervalSeconds: 60, TimeoutSeconds: 60, MaxRequestsInHalf: 1,
		}))
	require.NoError(t, err)

	_, err = c.Analyze(context.Background(), 1, "alice")
	require.ErrorIs(t, err, errs.ErrTransport)
	assert.EqualValues(t, 2, requests.Load(), "breaker stops calls after it opens")
}
