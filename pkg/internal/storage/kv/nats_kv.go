package kv

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/yeisme/blobdrive/pkg/configs"
)

// NATSKV 基于 NATS JetStream KV 的实现. bucket 没有逐键 TTL，过期信息写在值的包装里，读取时惰性删除.
type NATSKV struct {
	kv     nats.KeyValue
	bucket string
	conn   *nats.Conn
}

// NewNATSKV 创建 NATS KV 实例，bucket 不存在时创建.
func NewNATSKV(ctx context.Context, config any) (KVStore, error) {
	natsConfig, ok := config.(*configs.NATSKVConfig)
	if !ok {
		return nil, fmt.Errorf("invalid NATS config")
	}

	opts := []nats.Option{nats.Name("blobdrive-kv")}
	if natsConfig.User != "" {
		opts = append(opts, nats.UserInfo(natsConfig.User, natsConfig.Password))
	}

	nc, err := nats.Connect(natsConfig.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	kv, err := js.KeyValue(natsConfig.Bucket)
	if errors.Is(err, nats.ErrBucketNotFound) {
		kv, err = js.CreateKeyValue(&nats.KeyValueConfig{
			Bucket:      natsConfig.Bucket,
			Description: "blobdrive share record cache",
		})
	}

	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create/get KV bucket: %w", err)
	}

	return &NATSKV{kv: kv, bucket: natsConfig.Bucket, conn: nc}, nil
}

func (n *NATSKV) Get(ctx context.Context, key string) ([]byte, error) {
	entry, err := n.kv.Get(key)
	if errors.Is(err, nats.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get key: %w", err)
	}

	val, expired, err := decodeWithTTL(entry.Value(), time.Now())
	if err != nil {
		return nil, err
	}

	if expired {
		_ = n.kv.Delete(key)
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}

	return val, nil
}

func (n *NATSKV) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	encoded, err := encodeWithTTL(value, ttl)
	if err != nil {
		return err
	}

	if _, err := n.kv.Put(key, encoded); err != nil {
		return fmt.Errorf("failed to set key: %w", err)
	}

	return nil
}

func (n *NATSKV) Delete(ctx context.Context, key string) error {
	if err := n.kv.Delete(key); err != nil && !errors.Is(err, nats.ErrKeyNotFound) {
		return fmt.Errorf("failed to delete key: %w", err)
	}

	return nil
}

func (n *NATSKV) Exists(ctx context.Context, key string) (bool, error) {
	_, err := n.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}

	return err == nil, err
}

func (n *NATSKV) Keys(ctx context.Context, pattern string) ([]string, error) {
	keys, err := n.kv.Keys()
	if errors.Is(err, nats.ErrNoKeysFound) {
		return []string{}, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get keys: %w", err)
	}

	result := make([]string, 0, len(keys))

	for _, key := range keys {
		if !matchPattern(pattern, key) {
			continue
		}

		if ok, _ := n.Exists(ctx, key); ok {
			result = append(result, key)
		}
	}

	return result, nil
}

// Close 关闭 NATS 连接.
func (n *NATSKV) Close() error {
	n.conn.Close()
	return nil
}

func init() {
	RegisterKVFactory(KVTypeNATS, NewNATSKV)
}
