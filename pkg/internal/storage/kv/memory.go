package kv

import (
	"context"
	"fmt"
	"sync"
	"time"
)

type memoryEntry struct {
	value    []byte
	expireAt time.Time // 零值表示不过期
}

// MemoryKV 基于 sync.Map 的内存 KV 实现，过期键在读取时惰性删除.
type MemoryKV struct {
	data sync.Map
	now  func() time.Time
}

// NewMemoryKV 创建内存 KV 实例.
func NewMemoryKV(ctx context.Context, config any) (KVStore, error) {
	return &MemoryKV{now: time.Now}, nil
}

func (m *MemoryKV) load(key string) (*memoryEntry, bool) {
	v, ok := m.data.Load(key)
	if !ok {
		return nil, false
	}

	e := v.(*memoryEntry)
	if !e.expireAt.IsZero() && !m.now().Before(e.expireAt) {
		m.data.CompareAndDelete(key, v)
		return nil, false
	}

	return e, true
}

// Get 获取键的值副本.
func (m *MemoryKV) Get(ctx context.Context, key string) ([]byte, error) {
	e, ok := m.load(key)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}

	result := make([]byte, len(e.value))
	copy(result, e.value)

	return result, nil
}

// Set 设置键的值.
func (m *MemoryKV) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	e := &memoryEntry{value: make([]byte, len(value))}
	copy(e.value, value)

	if ttl > 0 {
		e.expireAt = m.now().Add(ttl)
	}

	m.data.Store(key, e)

	return nil
}

func (m *MemoryKV) Delete(ctx context.Context, key string) error {
	m.data.Delete(key)
	return nil
}

func (m *MemoryKV) Exists(ctx context.Context, key string) (bool, error) {
	_, ok := m.load(key)
	return ok, nil
}

func (m *MemoryKV) Keys(ctx context.Context, pattern string) ([]string, error) {
	keys := make([]string, 0)

	m.data.Range(func(key, _ any) bool {
		k, ok := key.(string)
		if !ok || !matchPattern(pattern, k) {
			return true
		}

		if _, live := m.load(k); live {
			keys = append(keys, k)
		}

		return true
	})

	return keys, nil
}

// Close 内存实现无需操作.
func (m *MemoryKV) Close() error {
	return nil
}

func init() {
	RegisterKVFactory(KVTypeMemory, NewMemoryKV)
}
