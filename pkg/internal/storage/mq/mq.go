// Package mq 基于 Watermill 封装领域事件总线. 支持进程内 gochannel 与 NATS（可选 JetStream），
// 通过工厂注册不同实现. Client 同时持有一个 message.Router，消费者以 handler 形式挂在其上.
//
// 使用示例：
//
//	client, err := mq.New(ctx, &cfg.MQ, mq.Options{})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer client.Close()
//
//	client.AddConsumer("activity", "bd.object.uploaded", func(msg *message.Message) error {
//		return nil
//	})
//	go client.Run(ctx)
package mq

import (
	"context"
	"fmt"
	"sort"

	watermill "github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/components/metrics"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/yeisme/blobdrive/pkg/configs"
	nlog "github.com/yeisme/blobdrive/pkg/log"
)

// Factory 定义创建 Publisher + Subscriber 的工厂函数.
type Factory func(ctx context.Context, cfg *configs.MQConfig, logger watermill.LoggerAdapter) (message.Publisher, message.Subscriber, error)

var factories = map[configs.MQType]Factory{}

// RegisterFactory 注册指定 MQType 的工厂.
func RegisterFactory(t configs.MQType, f Factory) {
	factories[t] = f
}

// Types 返回已注册的 MQ 类型.
func Types() []string {
	out := make([]string, 0, len(factories))
	for t := range factories {
		out = append(out, string(t))
	}

	sort.Strings(out)

	return out
}

// Options 创建选项.
type Options struct {
	// Registerer 非空时为 publisher、subscriber 与 router 注册 prometheus 指标.
	Registerer prometheus.Registerer
	Namespace  string
}

// Client 封装 watermill Publisher、Subscriber 与 Router.
type Client struct {
	publisher  message.Publisher
	subscriber message.Subscriber
	router     *message.Router
	logger     watermill.LoggerAdapter
	kind       configs.MQType
}

// New 按配置创建消息总线.
func New(ctx context.Context, cfg *configs.MQConfig, opts Options) (*Client, error) {
	kind := cfg.Type
	if kind == "" {
		kind = configs.MQTypeMemory
	}

	factory, ok := factories[kind]
	if !ok {
		return nil, fmt.Errorf("unsupported mq type: %s", kind)
	}

	logger := NewLogger(nlog.Component("mq"))

	pub, sub, err := factory(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("init mq (%s): %w", kind, err)
	}

	router, err := message.NewRouter(message.RouterConfig{}, logger)
	if err != nil {
		return nil, fmt.Errorf("create router: %w", err)
	}

	router.AddMiddleware(middleware.Recoverer)

	if opts.Registerer != nil {
		builder := metrics.NewPrometheusMetricsBuilder(opts.Registerer, opts.Namespace, "events")
		builder.AddPrometheusRouterMetrics(router)

		if pub, err = builder.DecoratePublisher(pub); err != nil {
			return nil, fmt.Errorf("decorate publisher with metrics: %w", err)
		}

		if sub, err = builder.DecorateSubscriber(sub); err != nil {
			return nil, fmt.Errorf("decorate subscriber with metrics: %w", err)
		}
	}

	nlog.Logger().Info().Str("type", string(kind)).Msg("event bus initialized")

	return &Client{publisher: pub, subscriber: sub, router: router, logger: logger, kind: kind}, nil
}

// Type 返回当前实现类型.
func (c *Client) Type() configs.MQType { return c.kind }

// Publisher 返回底层 Publisher.
func (c *Client) Publisher() message.Publisher { return c.publisher }

// Publish 便捷发布.
func (c *Client) Publish(topic string, msgs ...*message.Message) error {
	if c == nil || c.publisher == nil {
		return fmt.Errorf("mq publisher not initialized")
	}

	return c.publisher.Publish(topic, msgs...)
}

// Subscribe 直接订阅主题，返回消息通道. 调用方负责 Ack.
func (c *Client) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	if c == nil || c.subscriber == nil {
		return nil, fmt.Errorf("mq subscriber not initialized")
	}

	return c.subscriber.Subscribe(ctx, topic)
}

// AddConsumer 在 router 上注册只消费不转发的 handler，须在 Run 之前调用.
func (c *Client) AddConsumer(name, topic string, fn message.NoPublishHandlerFunc) {
	c.router.AddNoPublisherHandler(name, topic, c.subscriber, fn)
}

// Run 运行 router，阻塞直到 ctx 取消或 Close.
func (c *Client) Run(ctx context.Context) error {
	return c.router.Run(ctx)
}

// Running 在 router 启动后关闭.
func (c *Client) Running() chan struct{} {
	return c.router.Running()
}

// Close 关闭 router、publisher 与 subscriber.
func (c *Client) Close() error {
	var err error

	if c.router != nil {
		if e := c.router.Close(); e != nil {
			err = e
		}
	}

	if c.publisher != nil {
		if e := c.publisher.Close(); e != nil {
			err = e
		}
	}

	// gochannel 的 publisher 与 subscriber 是同一个对象
	if c.subscriber != nil && any(c.subscriber) != any(c.publisher) {
		if e := c.subscriber.Close(); e != nil {
			err = e
		}
	}

	return err
}
