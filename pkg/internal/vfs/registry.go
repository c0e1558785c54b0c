// Package vfs 在扁平的对象存储之上投影出层级文件系统：每个身份对应一个容器（租户命名空间），
// 文件夹由键前缀推导或由占位对象显式表示，软删除与标签都记录在对象元数据上.
//
// 元数据是软删除与标签状态的唯一来源，所以每次列举、搜索与配额统计都重新读取元数据，
// 每次元数据写入都是"先读后合并再写"，不信任任何本地缓存. 重命名、移动与复制由多个步骤组成，
// 不是原子操作：中途失败可能留下两份对象，但不会丢失数据.
package vfs

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/yeisme/blobdrive/pkg/internal/signer"
	"github.com/yeisme/blobdrive/pkg/internal/storage/blob"
)

// Config 命名空间参数.
type Config struct {
	ContainerPrefix string
	CapabilityTTL   time.Duration // 列表与搜索附带的下载链接有效期
	QuotaLimit      int64         // 字节，0 表示不限制
	SharedIdentity  string        // 解析分享链接时使用的中立身份
}

// Registry 按身份管理命名空间. 命名空间在首次访问时创建，空闲后由 Sweep 移除.
type Registry struct {
	backend blob.Backend
	signer  *signer.Engine
	cfg     Config
	now     func() time.Time

	mu     sync.Mutex
	spaces map[string]*entry

	inits singleflight.Group
}

type entry struct {
	ns       *Namespace
	lastUsed time.Time
}

// RegistryOption 配置 Registry.
type RegistryOption func(*Registry)

// WithClock 替换时间源.
func WithClock(now func() time.Time) RegistryOption {
	return func(r *Registry) { r.now = now }
}

// NewRegistry 创建命名空间注册表.
func NewRegistry(backend blob.Backend, engine *signer.Engine, cfg Config, opts ...RegistryOption) *Registry {
	if cfg.SharedIdentity == "" {
		cfg.SharedIdentity = "shared-access"
	}

	r := &Registry{
		backend: backend,
		signer:  engine,
		cfg:     cfg,
		now:     time.Now,
		spaces:  make(map[string]*entry),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Namespace 返回身份对应的命名空间，不访问存储. 身份为空时返回 ErrUnauthorized.
func (r *Registry) Namespace(identity string) (*Namespace, error) {
	id := NormalizeIdentity(identity)
	if id == "" {
		return nil, &Error{Kind: ErrUnauthorized, Op: "namespace"}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.spaces[id]
	if !ok {
		e = &entry{ns: r.newNamespace(id)}
		r.spaces[id] = e
	}

	e.lastUsed = r.now()

	return e.ns, nil
}

// Open 返回已确保容器存在的命名空间.
func (r *Registry) Open(ctx context.Context, identity string) (*Namespace, error) {
	ns, err := r.Namespace(identity)
	if err != nil {
		return nil, err
	}

	if err := ns.Init(ctx); err != nil {
		return nil, err
	}

	return ns, nil
}

// Evict 从注册表移除命名空间，下次访问时重新创建并重新确保容器.
func (r *Registry) Evict(identity string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := NormalizeIdentity(identity)
	_, ok := r.spaces[id]
	delete(r.spaces, id)

	return ok
}

// Sweep 移除空闲超过 idle 的命名空间，返回移除数量.
func (r *Registry) Sweep(idle time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-idle)
	n := 0

	for id, e := range r.spaces {
		if e.lastUsed.Before(cutoff) {
			delete(r.spaces, id)
			n++
		}
	}

	return n
}

// Len 返回当前缓存的命名空间数量.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.spaces)
}

// Config 返回注册表参数.
func (r *Registry) Config() Config { return r.cfg }

// Shared 返回用于解析分享链接的中立访问者.
func (r *Registry) Shared() *SharedAccess {
	return &SharedAccess{identity: r.cfg.SharedIdentity, prefix: r.cfg.ContainerPrefix, signer: r.signer}
}

func (r *Registry) newNamespace(id string) *Namespace {
	return &Namespace{
		identity:  id,
		container: ContainerName(r.cfg.ContainerPrefix, id),
		folder:    TenantFolder(id),
		backend:   r.backend,
		signer:    r.signer,
		cfg:       r.cfg,
		inits:     &r.inits,
		now:       r.now,
	}
}
