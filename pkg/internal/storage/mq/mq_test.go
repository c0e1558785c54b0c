package mq_test

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/yeisme/blobdrive/pkg/configs"
	"github.com/yeisme/blobdrive/pkg/internal/storage/mq"
)

func TestMemoryConsumer(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client, err := mq.New(ctx, &configs.MQConfig{Type: configs.MQTypeMemory, ChannelBuffer: 16}, mq.Options{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer client.Close()

	got := make(chan string, 1)

	client.AddConsumer("test", "bd.test", func(msg *message.Message) error {
		got <- string(msg.Payload)
		return nil
	})

	go func() { _ = client.Run(ctx) }()

	select {
	case <-client.Running():
	case <-time.After(5 * time.Second):
		t.Fatal("router did not start")
	}

	if err := client.Publish("bd.test", message.NewMessage(watermill.NewUUID(), []byte("hello"))); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	select {
	case v := <-got:
		if v != "hello" {
			t.Errorf("payload = %q", v)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("message not consumed")
	}
}

func TestUnknownType(t *testing.T) {
	if _, err := mq.New(context.Background(), &configs.MQConfig{Type: "kafka"}, mq.Options{}); err == nil {
		t.Fatal("expected error for unknown mq type")
	}

	types := mq.Types()
	if len(types) != 2 || types[0] != "memory" || types[1] != "nats" {
		t.Errorf("Types() = %v", types)
	}
}
