// Package blob 定义扁平键值对象存储的抽象. 容器（bucket）内的对象以 "/" 分隔的键寻址，
// 每个对象携带一组字符串元数据. 层级、软删除与标签都由上层投影到键与元数据上.
package blob

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/yeisme/blobdrive/pkg/configs"
)

var (
	// ErrContainerNotFound 容器不存在.
	ErrContainerNotFound = errors.New("blob: container not found")
	// ErrObjectNotFound 对象不存在.
	ErrObjectNotFound = errors.New("blob: object not found")
	// ErrPresignUnsupported 后端不支持预签名.
	ErrPresignUnsupported = errors.New("blob: presign unsupported")
)

// ObjectInfo 对象的属性.
type ObjectInfo struct {
	Key          string
	Size         int64
	ContentType  string
	LastModified time.Time
	ETag         string
	Metadata     Metadata
}

// Object 对象内容与属性.
type Object struct {
	ObjectInfo
	Body []byte
}

// Entry 层级列举的一项：对象或公共前缀（虚拟目录）.
type Entry struct {
	ObjectInfo
	IsPrefix bool
	Prefix   string // 以 "/" 结尾
}

// Backend 对象存储后端.
type Backend interface {
	// EnsureContainer 确保容器存在，"已存在" 视为成功.
	EnsureContainer(ctx context.Context, container string) error
	// ListHierarchy 以 "/" 为分隔符列出 prefix 下一层，对象附带元数据.
	ListHierarchy(ctx context.Context, container, prefix string) ([]Entry, error)
	// ListFlat 递归列出 prefix 下所有对象，附带元数据.
	ListFlat(ctx context.Context, container, prefix string) ([]ObjectInfo, error)
	// Put 覆盖写入对象内容与元数据.
	Put(ctx context.Context, container, key string, body []byte, contentType string, meta Metadata) (ObjectInfo, error)
	Get(ctx context.Context, container, key string) (*Object, error)
	Stat(ctx context.Context, container, key string) (ObjectInfo, error)
	// SetMetadata 整体替换对象元数据，内容不变.
	SetMetadata(ctx context.Context, container, key string, meta Metadata) error
	Delete(ctx context.Context, container, key string) error
	// ObjectURL 返回对象的未签名地址.
	ObjectURL(container, key string) string
	// PresignGet 返回后端原生的限时下载地址.
	PresignGet(ctx context.Context, container, key string, ttl time.Duration) (string, error)
	HealthCheck(ctx context.Context) error
	Close() error
}

// Factory 根据配置创建 Backend.
type Factory func(ctx context.Context, cfg *configs.StorageConfig) (Backend, error)

var factories = make(map[configs.StorageDriver]Factory)

// Register 注册后端工厂，驱动包在 init 中调用.
func Register(driver configs.StorageDriver, f Factory) {
	factories[driver] = f
}

// Drivers 返回已注册的后端类型，按名称排序.
func Drivers() []string {
	names := make([]string, 0, len(factories))
	for d := range factories {
		names = append(names, string(d))
	}

	sort.Strings(names)

	return names
}

// Open 按配置创建后端；启用熔断时包装一层 gobreaker.
func Open(ctx context.Context, cfg *configs.StorageConfig, cb configs.CircuitBreakerConfig) (Backend, error) {
	f, ok := factories[cfg.Driver]
	if !ok {
		return nil, fmt.Errorf("unsupported storage driver: %s", cfg.Driver)
	}

	b, err := f(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if cb.Enabled {
		b = WithBreaker(b, string(cfg.Driver), cb)
	}

	return b, nil
}

// IsNotFound 报告 err 是否表示容器或对象不存在.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrObjectNotFound) || errors.Is(err, ErrContainerNotFound)
}
