// Package kv 提供键值存储接口及 memory、redis、nats、groupcache 实现，分享记录缓存使用.
package kv

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/yeisme/blobdrive/pkg/configs"
)

// ErrNotFound 键不存在或已过期.
var ErrNotFound = errors.New("kv: key not found")

type Client struct {
	KVStore
}

// KVStore 定义键值存储接口.
type KVStore interface {
	// Get 获取键的值，不存在时返回 ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set 设置键的值，ttl <= 0 表示不过期.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	// Keys 返回匹配模式的键，模式为空匹配全部，以 "*" 结尾按前缀匹配.
	Keys(ctx context.Context, pattern string) ([]string, error)
	Close() error
}

// KVType 键值存储类型.
type KVType string

const (
	KVTypeMemory     KVType = "memory"
	KVTypeRedis      KVType = "redis"
	KVTypeNATS       KVType = "nats"
	KVTypeGroupcache KVType = "groupcache"
)

// KVFactory 定义创建 KVStore 的工厂函数类型.
type KVFactory func(ctx context.Context, config any) (KVStore, error)

var kvFactories = make(map[KVType]KVFactory)

// RegisterKVFactory 注册 KV 工厂函数.
func RegisterKVFactory(kvType KVType, factory KVFactory) {
	kvFactories[kvType] = factory
}

// GetRegisteredKVTypes 返回已注册的 KV 类型列表.
func GetRegisteredKVTypes() []KVType {
	types := make([]KVType, 0, len(kvFactories))
	for kvType := range kvFactories {
		types = append(types, kvType)
	}

	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })

	return types
}

// NewKVStore 根据类型创建 KVStore 实例.
func NewKVStore(ctx context.Context, kvType KVType, config any) (KVStore, error) {
	factory, exists := kvFactories[kvType]
	if !exists {
		return nil, fmt.Errorf("unsupported KV type: %s", kvType)
	}

	return factory(ctx, config)
}

// NewKVClient 按配置创建 KV 客户端.
func NewKVClient(ctx context.Context, cfg *configs.KVConfig) (*Client, error) {
	kvType := KVType(cfg.Type)
	if kvType == "" {
		kvType = KVTypeMemory
	}

	store, err := NewKVStore(ctx, kvType, cfg.StoreConfig())
	if err != nil {
		return nil, err
	}

	return &Client{KVStore: store}, nil
}

// HealthCheck 写入并读取探测键.
func (c *Client) HealthCheck(ctx context.Context) error {
	const probe = "healthcheck"

	if err := c.Set(ctx, probe, []byte("ok"), time.Minute); err != nil {
		return err
	}

	_, err := c.Get(ctx, probe)

	return err
}

// matchPattern 支持精确匹配与 "prefix*" 前缀匹配.
func matchPattern(pattern, key string) bool {
	if pattern == "" || pattern == "*" {
		return true
	}

	if p, ok := strings.CutSuffix(pattern, "*"); ok {
		return strings.HasPrefix(key, p)
	}

	return key == pattern
}
