package mq

import (
	"context"
	"strings"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	nc "github.com/nats-io/nats.go"

	"github.com/yeisme/blobdrive/pkg/configs"
)

const (
	DefaultDrainTimeout   = 30 * time.Second
	DefaultFlusherTimeout = 10 * time.Second
	DefaultAckWait        = 30 * time.Second
)

func init() {
	RegisterFactory(configs.MQTypeNATS, natsFactory)
}

// buildNatsOptions 构建 NATS 连接选项.
func buildNatsOptions(cfg *configs.MQConfig) []nc.Option {
	opts := []nc.Option{
		nc.Name(cfg.ClientID),
		nc.MaxReconnects(cfg.MaxReconnects),
		nc.ReconnectWait(time.Duration(cfg.ReconnectWait) * time.Second),
		nc.PingInterval(time.Duration(cfg.PingInterval) * time.Second),
		nc.ReconnectBufSize(cfg.BufferSize),
		nc.DrainTimeout(DefaultDrainTimeout),
		nc.FlusherTimeout(DefaultFlusherTimeout),
		nc.RetryOnFailedConnect(true),
	}

	switch {
	case cfg.JWT != "":
		opts = append(opts, nc.UserJWTAndSeed(cfg.JWT, cfg.NKey))
	case cfg.NKey != "":
		opts = append(opts, nc.Nkey(cfg.NKey, nil))
	case cfg.User != "":
		opts = append(opts, nc.UserInfo(cfg.User, cfg.Password))
	}

	return opts
}

func buildJetStreamConfig(cfg *configs.MQConfig, logger watermill.LoggerAdapter) nats.JetStreamConfig {
	js := cfg.JetStream
	if !js.Enabled {
		return nats.JetStreamConfig{Disabled: true}
	}

	logger.Info("jetstream enabled", watermill.LogFields{
		"auto_provision": js.AutoProvision,
		"track_msg_id":   js.TrackMsgID,
		"durable_prefix": js.DurablePrefix,
	})

	return nats.JetStreamConfig{
		AutoProvision: js.AutoProvision,
		TrackMsgId:    js.TrackMsgID,
		AckAsync:      js.AckAsync,
		DurablePrefix: js.DurablePrefix,
	}
}

func buildURL(cfg *configs.MQConfig) string {
	if len(cfg.ClusterURLs) > 0 {
		return strings.Join(cfg.ClusterURLs, ",")
	}

	return cfg.URL
}

// subjectCalculator 把 watermill topic 映射为带前缀的 NATS subject，
// 多个 blobdrive 部署可共用同一个 NATS 集群.
func subjectCalculator(prefix string) nats.SubjectCalculator {
	return func(queueGroupPrefix, topic string) *nats.SubjectDetail {
		return nats.DefaultSubjectCalculator(queueGroupPrefix, prefix+topic)
	}
}

// natsFactory 创建 NATS Publisher & Subscriber. 同一 queue group 内的实例分摊消费.
func natsFactory(_ context.Context, cfg *configs.MQConfig, logger watermill.LoggerAdapter) (message.Publisher, message.Subscriber, error) {
	opts := buildNatsOptions(cfg)
	jsCfg := buildJetStreamConfig(cfg, logger)
	marshaler := &nats.JSONMarshaler{}
	calc := subjectCalculator(cfg.JetStream.SubjectPrefix)

	pub, err := nats.NewPublisher(nats.PublisherConfig{
		URL:               buildURL(cfg),
		NatsOptions:       opts,
		Marshaler:         marshaler,
		JetStream:         jsCfg,
		SubjectCalculator: calc,
	}, logger)
	if err != nil {
		return nil, nil, err
	}

	sub, err := nats.NewSubscriber(nats.SubscriberConfig{
		URL:               buildURL(cfg),
		QueueGroupPrefix:  cfg.QueueGroup,
		SubscribersCount:  1,
		AckWaitTimeout:    DefaultAckWait,
		NatsOptions:       opts,
		Unmarshaler:       marshaler,
		JetStream:         jsCfg,
		SubjectCalculator: calc,
	}, logger)
	if err != nil {
		_ = pub.Close()
		return nil, nil, err
	}

	return pub, sub, nil
}
