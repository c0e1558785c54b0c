package kv

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/golang/groupcache"

	"github.com/yeisme/blobdrive/pkg/configs"
)

// GroupcacheKV 基于 groupcache 的 KV 实现. groupcache 只适合不可变值：
// 已被读取并进入缓存的键，Delete 后在本节点的热缓存中仍可能命中，直到被淘汰.
// 分享记录创建后不再修改，因此可以使用.
type GroupcacheKV struct {
	cache *groupcache.Group
	data  map[string][]byte // 本节点持有的权威数据（带 TTL 包装）
	mu    sync.RWMutex
}

var (
	groupsMu sync.Mutex
	groups   = map[string]*GroupcacheKV{}

	poolOnce sync.Once
	pool     *groupcache.HTTPPool
)

// NewGroupcacheKV 创建 groupcache KV. 同名 group 在进程内只创建一次.
func NewGroupcacheKV(ctx context.Context, config any) (KVStore, error) {
	gcConfig, ok := config.(*configs.GroupcacheKVConfig)
	if !ok {
		return nil, fmt.Errorf("invalid Groupcache config")
	}

	groupsMu.Lock()
	defer groupsMu.Unlock()

	if existing, ok := groups[gcConfig.Name]; ok {
		return existing, nil
	}

	kv := &GroupcacheKV{data: make(map[string][]byte)}
	kv.cache = groupcache.NewGroup(gcConfig.Name, gcConfig.CacheBytes, groupcache.GetterFunc(kv.load))
	groups[gcConfig.Name] = kv

	if len(gcConfig.Peers) > 0 {
		poolOnce.Do(func() {
			pool = groupcache.NewHTTPPoolOpts(gcConfig.Self, &groupcache.HTTPPoolOptions{})
		})
		pool.Set(gcConfig.Peers...)
	}

	return kv, nil
}

// GroupcacheHandler 返回节点间通信的 HTTP handler，未配置 peers 时为 nil.
func GroupcacheHandler() http.Handler {
	if pool == nil {
		return nil
	}

	return pool
}

func (g *GroupcacheKV) load(_ context.Context, key string, dest groupcache.Sink) error {
	g.mu.RLock()
	value, exists := g.data[key]
	g.mu.RUnlock()

	if !exists {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}

	return dest.SetBytes(value)
}

func (g *GroupcacheKV) Get(ctx context.Context, key string) ([]byte, error) {
	var data []byte

	if err := g.cache.Get(ctx, key, groupcache.AllocatingByteSliceSink(&data)); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}

	val, expired, err := decodeWithTTL(data, time.Now())
	if err != nil {
		return nil, err
	}

	if expired {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}

	return val, nil
}

func (g *GroupcacheKV) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	encoded, err := encodeWithTTL(value, ttl)
	if err != nil {
		return err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.data[key] = append([]byte(nil), encoded...)

	return nil
}

func (g *GroupcacheKV) Delete(ctx context.Context, key string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	delete(g.data, key)

	return nil
}

func (g *GroupcacheKV) Exists(ctx context.Context, key string) (bool, error) {
	_, err := g.Get(ctx, key)
	return err == nil, nil
}

func (g *GroupcacheKV) Keys(ctx context.Context, pattern string) ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	keys := make([]string, 0, len(g.data))
	for key := range g.data {
		if matchPattern(pattern, key) {
			keys = append(keys, key)
		}
	}

	return keys, nil
}

// Close groupcache 没有显式的关闭方法.
func (g *GroupcacheKV) Close() error {
	return nil
}

func init() {
	RegisterKVFactory(KVTypeGroupcache, NewGroupcacheKV)
}
