package configs

import (
	"github.com/spf13/viper"
)

// MetricsConfig Metrics相关配置.
type MetricsConfig struct {
	Enabled        bool   `mapstructure:"enabled"`         // 是否启用Metrics
	Path           string `mapstructure:"path"`            // 暴露路径
	RuntimeMetrics bool   `mapstructure:"runtime_metrics"` // 是否收集运行时指标
	Pprof          bool   `mapstructure:"pprof"`           // 是否挂载 pprof
	Namespace      string `mapstructure:"namespace"`       // 指标名前缀
}

func (c *MetricsConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("metrics.runtime_metrics", true)
	v.SetDefault("metrics.pprof", false)
	v.SetDefault("metrics.namespace", "blobdrive")
}
