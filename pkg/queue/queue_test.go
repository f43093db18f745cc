package queue_test

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hsk3232/DevelopProject/pkg/queue"
)

func TestNewWatermillMessageMetadata(t *testing.T) {
	msg, err := queue.NewWatermillMessage(queue.TopicAnalysisProgress,
		queue.ProgressPayload{File: queue.FileRef{FileID: 7}, Message: "[AI] 이벤트 수집 시작"},
		queue.WithTraceID("trace-1"), queue.WithProducer("epcguard"))
	require.NoError(t, err)

	assert.Equal(t, queue.TopicAnalysisProgress, msg.Metadata.Get("topic"))
	assert.Equal(t, "trace-1", msg.Metadata.Get("trace_id"))
	assert.Equal(t, "epcguard", msg.Metadata.Get("producer"))
	assert.Equal(t, queue.PayloadVersionV1, msg.Metadata.Get("version"))
	assert.NotEmpty(t, msg.Metadata.Get("occurred_at"))
}

func TestPublishFileIngestedOverGoChannel(t *testing.T) {
	pubsub := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 4}, watermill.NopLogger{})
	defer pubsub.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ch, err := pubsub.Subscribe(ctx, queue.TopicFileIngested)
	require.NoError(t, err)

	err = queue.PublishFileIngested(pubsub, queue.FileIngestedPayload{
		File:      queue.FileRef{FileID: 42, FileName: "scan.csv", UploadedBy: "alice"},
		Processed: 3,
		Inserted:  2,
		Rejected:  map[string][]int{"참조오류/중복/시간누락": {4}},
	})
	require.NoError(t, err)

	select {
	case m := <-ch:
		env, err := queue.ParseFileIngested(m)
		require.NoError(t, err)
		m.Ack()

		assert.Equal(t, queue.TopicFileIngested, env.Header.Topic)
		assert.Equal(t, uint(42), env.Payload.File.FileID)
		assert.Equal(t, "alice", env.Payload.File.UploadedBy)
		assert.Equal(t, []int{4}, env.Payload.Rejected["참조오류/중복/시간누락"])
	case <-ctx.Done():
		t.Fatal("message not delivered")
	}
}
