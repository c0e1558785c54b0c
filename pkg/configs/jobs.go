package configs

import "github.com/spf13/viper"

const (
	DefaultNamespaceSweepCron  = "*/5 * * * *" // 每 5 分钟清理空闲命名空间
	DefaultSharePurgeCron      = "30 3 * * *"  // 每天 03:30 清理过期分享记录
	DefaultRegistryReconcile   = "0 4 * * 0"   // 每周日 04:00 对账文件登记表
	DefaultSharePurgeAfterDays = 30            // 过期多少天后删除分享记录
)

// JobsConfig 定时任务配置，cron 为空表示不注册该任务.
type JobsConfig struct {
	Enabled             bool   `mapstructure:"enabled"`
	NamespaceSweepCron  string `mapstructure:"namespace_sweep_cron"`
	SharePurgeCron      string `mapstructure:"share_purge_cron"`
	SharePurgeAfterDays int    `mapstructure:"share_purge_after_days" rule:"min=1"`
	ReconcileCron       string `mapstructure:"reconcile_cron"`
}

func (c *JobsConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("jobs.enabled", true)
	v.SetDefault("jobs.namespace_sweep_cron", DefaultNamespaceSweepCron)
	v.SetDefault("jobs.share_purge_cron", DefaultSharePurgeCron)
	v.SetDefault("jobs.share_purge_after_days", DefaultSharePurgeAfterDays)
	v.SetDefault("jobs.reconcile_cron", DefaultRegistryReconcile)
}
