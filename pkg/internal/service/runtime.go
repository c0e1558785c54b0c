// Package service 实现文件与分享链接的业务逻辑. 处理器、定时任务与 CLI 都通过 Runtime 取得依赖.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yeisme/blobdrive/pkg/cache"
	"github.com/yeisme/blobdrive/pkg/configs"
	"github.com/yeisme/blobdrive/pkg/internal/signer"
	"github.com/yeisme/blobdrive/pkg/internal/storage"
	"github.com/yeisme/blobdrive/pkg/internal/vfs"
	"github.com/yeisme/blobdrive/pkg/metrics"
)

// ErrNotInitialized 依赖未初始化.
var ErrNotInitialized = errors.New("service runtime not initialized")

// Runtime 进程级依赖：存储资源、命名空间注册表、签名引擎与分享记录缓存.
type Runtime struct {
	Config   *configs.AppConfig
	Storage  *storage.Manager
	Registry *vfs.Registry
	Signer   *signer.Engine
	Shares   *cache.Cache
	Now      func() time.Time
}

// NewRuntime 基于已打开的存储资源组装 Runtime.
func NewRuntime(cfg *configs.AppConfig, mgr *storage.Manager) (*Runtime, error) {
	if cfg == nil || mgr == nil || mgr.Blob == nil {
		return nil, ErrNotInitialized
	}

	engine, err := signer.New(cfg.Signing,
		signer.WithPresigner(mgr.Blob),
		signer.WithFallbackHook(func(reason string) {
			metrics.CapabilityFallbacks.WithLabelValues(reason).Inc()
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("init signer: %w", err)
	}

	registry := vfs.NewRegistry(mgr.Blob, engine, vfs.Config{
		ContainerPrefix: cfg.Storage.ContainerPrefix,
		CapabilityTTL:   cfg.Signing.CapabilityTTL,
		QuotaLimit:      cfg.Storage.GetQuotaLimitBytes(),
		SharedIdentity:  cfg.Share.SharedIdentity,
	})

	rt := &Runtime{
		Config:   cfg,
		Storage:  mgr,
		Registry: registry,
		Signer:   engine,
		Now:      time.Now,
	}

	if mgr.KV != nil {
		rt.Shares = cache.New(mgr.KV, "share")
	}

	return rt, nil
}

type runtimeKey struct{}

// WithRuntime 将 Runtime 存入 context.
func WithRuntime(ctx context.Context, rt *Runtime) context.Context {
	return context.WithValue(ctx, runtimeKey{}, rt)
}

// RuntimeFrom 从 context 取出 Runtime，不存在时返回 nil.
func RuntimeFrom(ctx context.Context) *Runtime {
	rt, _ := ctx.Value(runtimeKey{}).(*Runtime)
	return rt
}
