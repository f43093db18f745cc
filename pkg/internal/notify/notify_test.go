package notify_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hsk3232/DevelopProject/pkg/internal/notify"
	"github.com/hsk3232/DevelopProject/pkg/queue"
)

type recorder struct {
	mu     sync.Mutex
	events []notify.Event
}

func (r *recorder) Notify(_ context.Context, ev notify.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = append(r.events, ev)
}

func TestReporterAndMulti(t *testing.T) {
	a, b := &recorder{}, &recorder{}
	rep := notify.NewReporter(notify.Multi{a, nil, b}, "alice", 3, "task-1")

	rep.Send(context.Background(), notify.StageIngest, "파싱 진행: 1000행 처리")

	require.Len(t, a.events, 1)
	require.Len(t, b.events, 1)
	assert.Equal(t, "alice", a.events[0].UserID)
	assert.Equal(t, uint(3), a.events[0].FileID)
	assert.Equal(t, notify.StageIngest, a.events[0].Stage)
	assert.False(t, a.events[0].Time.IsZero())

	// nil notifier 不应 panic
	notify.NewReporter(nil, "bob", 1, "").Send(context.Background(), notify.StagePipeline, "x")
}

func TestPublisher(t *testing.T) {
	pubsub := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 4}, watermill.NopLogger{})
	defer pubsub.Close()

	ch, err := pubsub.Subscribe(context.Background(), queue.TopicAnalysisProgress)
	require.NoError(t, err)

	notify.NewPublisher(pubsub).Notify(context.Background(), notify.Event{
		UserID: "alice", FileID: 9, Stage: notify.StageScoring, Message: "[AI] 전송: EPC 1 ~ 100 / 250",
	})

	select {
	case msg := <-ch:
		env, err := queue.ParseWatermillMessage[queue.ProgressPayload](msg)
		require.NoError(t, err)
		assert.Equal(t, uint(9), env.Payload.File.FileID)
		assert.Equal(t, notify.StageScoring, env.Payload.Stage)
		assert.Contains(t, env.Payload.Message, "[AI]")
		msg.Ack()
	case <-time.After(time.Second):
		t.Fatal("progress message not published")
	}
}

func TestHubDeliversToUser(t *testing.T) {
	hub := notify.NewHub(8)
	defer hub.Close()

	up := notify.Upgrader(nil)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = hub.Serve(up, w, r, r.URL.Query().Get("user"), time.Minute)
	}))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "?user=alice"

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.Connections("alice") == 1 }, time.Second, 10*time.Millisecond)

	hub.Notify(context.Background(), notify.Event{UserID: "bob", Message: "not for alice"})
	hub.Notify(context.Background(), notify.Event{UserID: "alice", FileID: 1, Message: "[AI] 이벤트 수집 시작"})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var ev notify.Event
	require.NoError(t, sonic.Unmarshal(data, &ev))
	assert.Equal(t, "[AI] 이벤트 수집 시작", ev.Message)
}

func TestUpgraderOrigin(t *testing.T) {
	up := notify.Upgrader([]string{"https://dashboard.example.com"})

	r := httptest.NewRequest(http.MethodGet, "/api/v1/ws", nil)
	r.Header.Set("Origin", "https://evil.example.com")
	assert.False(t, up.CheckOrigin(r))

	r.Header.Set("Origin", "https://dashboard.example.com")
	assert.True(t, up.CheckOrigin(r))
}
