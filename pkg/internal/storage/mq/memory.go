package mq

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/yeisme/blobdrive/pkg/configs"
)

func init() {
	RegisterFactory(configs.MQTypeMemory, memoryFactory)
}

// memoryFactory 进程内 gochannel，单实例部署与测试使用. 消息不持久化.
func memoryFactory(_ context.Context, cfg *configs.MQConfig, logger watermill.LoggerAdapter) (message.Publisher, message.Subscriber, error) {
	ch := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: cfg.ChannelBuffer,
	}, logger)

	return ch, ch, nil
}
