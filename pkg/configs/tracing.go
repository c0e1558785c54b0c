package configs

import (
	"time"

	"github.com/spf13/viper"
)

// TracingConfig Tracing相关配置.
type TracingConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	ServiceName  string        `mapstructure:"service_name"`
	ExporterType string        `mapstructure:"exporter_type" rule:"oneof=otlp-http otlp-grpc zipkin"` // 导出器类型
	Endpoint     string        `mapstructure:"endpoint"`                                              // 导出器端点
	SampleRate   float64       `mapstructure:"sample_rate"   rule:"min=0,max=1"`                      // 采样率
	BatchTimeout time.Duration `mapstructure:"batch_timeout"`                                         // 批量导出超时
}

func (c *TracingConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.service_name", "blobdrive")
	v.SetDefault("tracing.exporter_type", "otlp-http")
	v.SetDefault("tracing.endpoint", "http://localhost:4318")
	v.SetDefault("tracing.sample_rate", 1.0)
	v.SetDefault("tracing.batch_timeout", "5s")
}
