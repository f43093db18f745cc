package mq_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hsk3232/DevelopProject/pkg/configs"
	"github.com/hsk3232/DevelopProject/pkg/internal/storage/mq"
	"github.com/hsk3232/DevelopProject/pkg/queue"
)

func TestRegisteredMQTypes(t *testing.T) {
	assert.ElementsMatch(t,
		[]configs.MQType{configs.MQTypeMemory, configs.MQTypeNATS, configs.MQTypeRedis},
		mq.GetRegisteredMQTypes())
}

func TestMemoryClientRoundTrip(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := mq.New(ctx, &configs.MQConfig{Type: configs.MQTypeMemory})
	require.NoError(t, err)

	defer client.Close()

	ch, err := client.Subscribe(ctx, queue.TopicAnalysisProgress)
	require.NoError(t, err)

	err = queue.PublishProgress(client.Publisher(), queue.ProgressPayload{
		File:    queue.FileRef{FileID: 3},
		UserID:  "bob",
		Stage:   "scoring",
		Message: "[AI] 전송: EPC 1 ~ 2 / 2",
	})
	require.NoError(t, err)

	select {
	case m := <-ch:
		env, err := queue.ParseWatermillMessage[queue.ProgressPayload](m)
		require.NoError(t, err)
		m.Ack()
		assert.Equal(t, "bob", env.Payload.UserID)
		assert.Equal(t, "[AI] 전송: EPC 1 ~ 2 / 2", env.Payload.Message)
	case <-ctx.Done():
		t.Fatal("progress message not delivered")
	}
}

func TestUnsupportedMQType(t *testing.T) {
	_, err := mq.New(context.Background(), &configs.MQConfig{Type: "kafka"})
	require.Error(t, err)
}
