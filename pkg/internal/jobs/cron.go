// Package jobs 负责注册与实现业务定时任务（基于 scheduler）.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yeisme/blobdrive/pkg/internal/service"
	"github.com/yeisme/blobdrive/pkg/log"
	"github.com/yeisme/blobdrive/pkg/metrics"
	"github.com/yeisme/blobdrive/pkg/scheduler"
)

type entry struct {
	name, cron string
	task       scheduler.Task
}

// RegisterCronJobs 按 jobs 配置注册定时任务，返回注册数量. cron 为空的任务不注册.
//   - 清理空闲命名空间
//   - 删除过期已久的分享记录（只是整理，解析从不依赖它）
//   - 删除对象已不存在的文件登记行
func RegisterCronJobs(sched *scheduler.Scheduler, rt *service.Runtime) (int, error) {
	if sched == nil {
		return 0, errors.New("scheduler is nil")
	}

	if rt == nil {
		return 0, service.ErrNotInitialized
	}

	cfg := rt.Config.Jobs
	if !cfg.Enabled {
		return 0, nil
	}

	tasks := []entry{
		{JobNamespaceSweep, cfg.NamespaceSweepCron, NamespaceSweep(rt)},
	}

	// 分享记录与登记表都在数据库里
	if rt.Storage.DB != nil {
		tasks = append(tasks,
			entry{JobSharePurge, cfg.SharePurgeCron, SharePurge(rt)},
			entry{JobRegistryReconcile, cfg.ReconcileCron, RegistryReconcile(rt)},
		)
	}

	n := 0

	for _, t := range tasks {
		if t.cron == "" {
			continue
		}

		if err := sched.AddCron(t.name, t.cron, t.task); err != nil {
			return n, fmt.Errorf("register job %s: %w", t.name, err)
		}

		n++
	}

	return n, nil
}

// NamespaceSweep 移除空闲超过 storage.namespace_idle_minutes 的命名空间，并更新命名空间数量指标.
func NamespaceSweep(rt *service.Runtime) scheduler.Task {
	return func(context.Context) error {
		idle := time.Duration(rt.Config.Storage.NamespaceIdleMinutes) * time.Minute

		evicted := rt.Registry.Sweep(idle)
		metrics.Namespaces.Set(float64(rt.Registry.Len()))

		if evicted > 0 {
			log.Logger().Debug().Str("job", JobNamespaceSweep).Int("evicted", evicted).Msg("idle namespaces evicted")
		}

		return nil
	}
}

// SharePurge 删除过期超过 jobs.share_purge_after_days 天的分享记录.
func SharePurge(rt *service.Runtime) scheduler.Task {
	return func(ctx context.Context) error {
		before := rt.Now().UTC().AddDate(0, 0, -rt.Config.Jobs.SharePurgeAfterDays)

		n, err := service.NewShareServiceWith(rt).PurgeExpired(ctx, before)
		if err != nil {
			return err
		}

		if n > 0 {
			log.Logger().Info().Str("job", JobSharePurge).Int64("deleted", n).Time("before", before).Msg("expired share links purged")
		}

		return nil
	}
}

// RegistryReconcile 删除对象已不存在的文件登记行.
func RegistryReconcile(rt *service.Runtime) scheduler.Task {
	return func(ctx context.Context) error {
		_, err := service.NewFileServiceWith(rt).Reconcile(ctx)
		return err
	}
}
