package mq

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/hsk3232/DevelopProject/pkg/configs"
)

func init() {
	RegisterFactory(configs.MQTypeMemory, memoryFactory)
}

// memoryFactory 创建进程内 gochannel Pub/Sub，同一实例同时作为 Publisher 与 Subscriber.
func memoryFactory(
	_ context.Context,
	cfg *configs.MQConfig,
	logger watermill.LoggerAdapter) (
	message.Publisher, message.Subscriber, error) {
	buffer := int64(DefaultChannelBufferSize)
	if cfg.Common.BufferSize > 0 {
		buffer = int64(cfg.Common.BufferSize)
	}

	ps := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer:            buffer,
		BlockPublishUntilSubscriberAck: false,
	}, logger)

	return ps, &sharedCloser{Subscriber: ps}, nil
}

// sharedCloser 避免 Client.Close 对同一个 gochannel 关闭两次.
type sharedCloser struct {
	message.Subscriber
}

func (s *sharedCloser) Close() error { return nil }
