package blob

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/yeisme/blobdrive/pkg/configs"
)

// Memory 进程内后端，用于开发与测试. 行为与 S3 兼容后端一致：
// 容器必须先创建，列举按键的字典序返回.
type Memory struct {
	mu         sync.RWMutex
	containers map[string]map[string]*Object
	now        func() time.Time
	// ensures 记录 EnsureContainer 调用次数，测试用于检查初始化去重.
	ensures int
}

// NewMemory 创建空的内存后端.
func NewMemory() *Memory {
	return &Memory{
		containers: make(map[string]map[string]*Object),
		now:        time.Now,
	}
}

// SetClock 替换时间源.
func (m *Memory) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.now = now
}

// Containers 返回已创建的容器名.
func (m *Memory) Containers() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.containers))
	for name := range m.containers {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// EnsureCalls 返回 EnsureContainer 被调用的次数.
func (m *Memory) EnsureCalls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.ensures
}

func (m *Memory) EnsureContainer(_ context.Context, container string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ensures++

	if _, ok := m.containers[container]; !ok {
		m.containers[container] = make(map[string]*Object)
	}

	return nil
}

func (m *Memory) bucket(container string) (map[string]*Object, error) {
	objs, ok := m.containers[container]
	if !ok {
		return nil, ErrContainerNotFound
	}

	return objs, nil
}

// sortedKeys 返回容器内以 prefix 开头的键.
func sortedKeys(objs map[string]*Object, prefix string) []string {
	keys := make([]string, 0, len(objs))
	for k := range objs {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}

	sort.Strings(keys)

	return keys
}

func (m *Memory) ListHierarchy(_ context.Context, container, prefix string) ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	objs, err := m.bucket(container)
	if err != nil {
		return nil, err
	}

	var (
		out  []Entry
		seen = make(map[string]bool)
	)

	for _, k := range sortedKeys(objs, prefix) {
		rest := k[len(prefix):]
		if i := strings.Index(rest, "/"); i >= 0 {
			p := prefix + rest[:i+1]
			if !seen[p] {
				seen[p] = true

				out = append(out, Entry{IsPrefix: true, Prefix: p})
			}

			continue
		}

		info := objs[k].ObjectInfo
		info.Metadata = info.Metadata.Clone()

		out = append(out, Entry{ObjectInfo: info})
	}

	return out, nil
}

func (m *Memory) ListFlat(_ context.Context, container, prefix string) ([]ObjectInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	objs, err := m.bucket(container)
	if err != nil {
		return nil, err
	}

	keys := sortedKeys(objs, prefix)
	out := make([]ObjectInfo, 0, len(keys))

	for _, k := range keys {
		info := objs[k].ObjectInfo
		info.Metadata = info.Metadata.Clone()

		out = append(out, info)
	}

	return out, nil
}

func (m *Memory) Put(_ context.Context, container, key string, body []byte, contentType string, meta Metadata) (ObjectInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	objs, err := m.bucket(container)
	if err != nil {
		return ObjectInfo{}, err
	}

	if contentType == "" {
		contentType = "application/octet-stream"
	}

	sum := md5.Sum(body)
	obj := &Object{
		ObjectInfo: ObjectInfo{
			Key:          key,
			Size:         int64(len(body)),
			ContentType:  contentType,
			LastModified: m.now().UTC(),
			ETag:         hex.EncodeToString(sum[:]),
			Metadata:     meta.Clone(),
		},
		Body: append([]byte(nil), body...),
	}
	objs[key] = obj

	info := obj.ObjectInfo
	info.Metadata = info.Metadata.Clone()

	return info, nil
}

func (m *Memory) Get(_ context.Context, container, key string) (*Object, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	objs, err := m.bucket(container)
	if err != nil {
		return nil, err
	}

	obj, ok := objs[key]
	if !ok {
		return nil, ErrObjectNotFound
	}

	out := &Object{ObjectInfo: obj.ObjectInfo, Body: append([]byte(nil), obj.Body...)}
	out.Metadata = obj.Metadata.Clone()

	return out, nil
}

func (m *Memory) Stat(_ context.Context, container, key string) (ObjectInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	objs, err := m.bucket(container)
	if err != nil {
		return ObjectInfo{}, err
	}

	obj, ok := objs[key]
	if !ok {
		return ObjectInfo{}, ErrObjectNotFound
	}

	info := obj.ObjectInfo
	info.Metadata = info.Metadata.Clone()

	return info, nil
}

func (m *Memory) SetMetadata(_ context.Context, container, key string, meta Metadata) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	objs, err := m.bucket(container)
	if err != nil {
		return err
	}

	obj, ok := objs[key]
	if !ok {
		return ErrObjectNotFound
	}

	obj.Metadata = meta.Clone()
	obj.LastModified = m.now().UTC()

	return nil
}

func (m *Memory) Delete(_ context.Context, container, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	objs, err := m.bucket(container)
	if err != nil {
		return err
	}

	delete(objs, key)

	return nil
}

func (m *Memory) ObjectURL(container, key string) string {
	return "memory://" + container + "/" + (&url.URL{Path: key}).EscapedPath()
}

func (m *Memory) PresignGet(context.Context, string, string, time.Duration) (string, error) {
	return "", ErrPresignUnsupported
}

func (m *Memory) HealthCheck(context.Context) error { return nil }

func (m *Memory) Close() error { return nil }

func init() {
	Register(configs.StorageMemory, func(context.Context, *configs.StorageConfig) (Backend, error) {
		return NewMemory(), nil
	})
}
