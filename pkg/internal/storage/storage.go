// Package storage 聚合服务依赖的存储资源：对象存储后端、元数据库、KV 缓存与事件总线.
//
// Example:
//
//	mgr, err := storage.Open(ctx, configs.GetConfig())
//	if err != nil {
//		// 处理错误
//	}
//	defer mgr.Close()
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/yeisme/blobdrive/pkg/configs"
	"github.com/yeisme/blobdrive/pkg/internal/model"
	"github.com/yeisme/blobdrive/pkg/internal/storage/blob"
	dbc "github.com/yeisme/blobdrive/pkg/internal/storage/db"
	"github.com/yeisme/blobdrive/pkg/internal/storage/kv"
	"github.com/yeisme/blobdrive/pkg/internal/storage/mq"
	nlog "github.com/yeisme/blobdrive/pkg/log"

	// 注册 S3 兼容后端
	_ "github.com/yeisme/blobdrive/pkg/internal/storage/s3"
)

// Manager 聚合所有存储资源.
type Manager struct {
	Blob blob.Backend
	DB   *dbc.Client
	KV   *kv.Client
	MQ   *mq.Client
}

// Open 按配置打开全部存储资源. 任一资源失败时关闭已打开的资源并返回错误.
func Open(ctx context.Context, cfg *configs.AppConfig) (*Manager, error) {
	m := &Manager{}

	backend, err := blob.Open(ctx, &cfg.Storage, cfg.CircuitBreaker)
	if err != nil {
		return nil, fmt.Errorf("open blob backend: %w", err)
	}

	m.Blob = backend

	if m.DB, err = dbc.New(ctx, &cfg.DB, dbc.Options{Metrics: cfg.Metrics.Enabled}); err != nil {
		_ = m.Close()
		return nil, fmt.Errorf("open database: %w", err)
	}

	if cfg.DB.AutoMigrate {
		if err := m.DB.Migrate(ctx, model.All()...); err != nil {
			_ = m.Close()
			return nil, err
		}
	}

	if m.KV, err = kv.NewKVClient(ctx, &cfg.KV); err != nil {
		_ = m.Close()
		return nil, fmt.Errorf("open kv: %w", err)
	}

	mqOpts := mq.Options{Namespace: cfg.Metrics.Namespace}
	if cfg.Metrics.Enabled {
		mqOpts.Registerer = prometheus.DefaultRegisterer
	}

	if m.MQ, err = mq.New(ctx, &cfg.MQ, mqOpts); err != nil {
		_ = m.Close()
		return nil, fmt.Errorf("open event bus: %w", err)
	}

	nlog.Logger().Info().
		Str("storage", string(cfg.Storage.Driver)).
		Str("db", cfg.DB.GetDBType()).
		Str("kv", cfg.KV.Type).
		Str("mq", string(m.MQ.Type())).
		Msg("storage manager initialized")

	return m, nil
}

// Health 各资源的健康状态，nil 表示正常.
type Health struct {
	Blob error
	DB   error
	KV   error
}

// OK 报告所有资源是否正常.
func (h Health) OK() bool {
	return h.Blob == nil && h.DB == nil && h.KV == nil
}

// HealthCheck 依次检查对象存储、数据库与 KV.
func (m *Manager) HealthCheck(ctx context.Context) Health {
	var h Health

	if m.Blob != nil {
		h.Blob = m.Blob.HealthCheck(ctx)
	}

	if m.DB != nil {
		h.DB = m.DB.HealthCheck(ctx)
	}

	if m.KV != nil {
		h.KV = m.KV.HealthCheck(ctx)
	}

	return h
}

// Close 关闭全部资源.
func (m *Manager) Close() error {
	var errs []error

	if m.MQ != nil {
		errs = append(errs, m.MQ.Close())
	}

	if m.KV != nil {
		errs = append(errs, m.KV.Close())
	}

	if m.DB != nil {
		errs = append(errs, m.DB.Close())
	}

	if m.Blob != nil {
		errs = append(errs, m.Blob.Close())
	}

	return errors.Join(errs...)
}
