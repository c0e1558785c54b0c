// Package cache 提供基于键值存储的泛型缓存.
//
// 值使用 JSON（bytedance/sonic）编码，键统一加上实例前缀，
// 以便多个用途共享同一个 KV 后端而互不干扰.
//
// 基本用法:
//
//	c := cache.New(store, "share")
//
//	// 写入
//	err := cache.Set(ctx, c, shareID, rec, 10*time.Minute)
//
//	// 读取，未命中时 cache.IsMiss(err) 为 true
//	rec, err := cache.Get[model.ShareLink](ctx, c, shareID)
//
//	// 读穿：并发的相同键只调用一次 getter
//	rec, err := cache.GetOrSet(ctx, c, shareID, func() (model.ShareLink, error) {
//	    return loadFromDB(shareID)
//	}, 10*time.Minute)
//
// 缓存是尽力而为的：写缓存失败不影响 GetOrSet 返回 getter 的结果.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"golang.org/x/sync/singleflight"

	"github.com/yeisme/blobdrive/pkg/internal/storage/kv"
	nlog "github.com/yeisme/blobdrive/pkg/log"
)

// ErrMiss 缓存未命中.
var ErrMiss = errors.New("cache miss")

// Cache 基于KV存储的缓存实现.
type Cache struct {
	kvStore kv.KVStore
	prefix  string
	group   singleflight.Group
}

// New 创建缓存实例，prefix 为空时不加前缀.
func New(kvStore kv.KVStore, prefix string) *Cache {
	if prefix != "" {
		prefix += ":"
	}

	return &Cache{kvStore: kvStore, prefix: prefix}
}

// IsMiss 报告 err 是否表示未命中.
func IsMiss(err error) bool {
	return errors.Is(err, ErrMiss) || errors.Is(err, kv.ErrNotFound)
}

func (c *Cache) key(k string) string { return c.prefix + k }

// Get 泛型获取缓存值.
func Get[T any](ctx context.Context, c *Cache, key string) (T, error) {
	var zero T

	data, err := c.kvStore.Get(ctx, c.key(key))
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return zero, ErrMiss
		}

		return zero, err
	}

	var value T
	if err := sonic.Unmarshal(data, &value); err != nil {
		return zero, fmt.Errorf("failed to unmarshal cache value: %w", err)
	}

	return value, nil
}

// Set 泛型设置缓存值.
func Set[T any](ctx context.Context, c *Cache, key string, value T, ttl time.Duration) error {
	data, err := sonic.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}

	return c.kvStore.Set(ctx, c.key(key), data, ttl)
}

// Delete 删除缓存键.
func (c *Cache) Delete(ctx context.Context, key string) error {
	err := c.kvStore.Delete(ctx, c.key(key))
	if errors.Is(err, kv.ErrNotFound) {
		return nil
	}

	return err
}

// Exists 检查缓存键是否存在.
func (c *Cache) Exists(ctx context.Context, key string) (bool, error) {
	return c.kvStore.Exists(ctx, c.key(key))
}

// GetOrSet 获取缓存值，未命中时调用 getter 并写回. 同一键的并发调用合并为一次 getter.
func GetOrSet[T any](ctx context.Context, c *Cache, key string, getter func() (T, error), ttl time.Duration) (T, error) {
	if value, err := Get[T](ctx, c, key); err == nil {
		return value, nil
	} else if !IsMiss(err) {
		nlog.Logger().Debug().Err(err).Str("key", key).Msg("cache read failed, falling back")
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		value, err := getter()
		if err != nil {
			return value, err
		}

		if setErr := Set(ctx, c, key, value, ttl); setErr != nil {
			nlog.Logger().Debug().Err(setErr).Str("key", key).Msg("cache write failed")
		}

		return value, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}

	return v.(T), nil
}

// Clear 删除当前前缀下的所有键.
func (c *Cache) Clear(ctx context.Context) error {
	keys, err := c.kvStore.Keys(ctx, c.prefix+"*")
	if err != nil {
		return err
	}

	for _, key := range keys {
		if delErr := c.kvStore.Delete(ctx, key); delErr != nil && !errors.Is(delErr, kv.ErrNotFound) {
			return delErr
		}
	}

	return nil
}
