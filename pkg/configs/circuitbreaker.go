package configs

import (
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultCBEnabled           = true
	DefaultCBFailureRate       = 0.5
	DefaultCBMinRequests       = 20
	DefaultCBIntervalSeconds   = 60
	DefaultCBTimeoutSeconds    = 30
	DefaultCBMaxRequestsInHalf = 5
)

// CircuitBreakerConfig 对象存储后端熔断配置. 打开状态下所有存储调用立即以 Unavailable 失败.
type CircuitBreakerConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	FailureRate       float64 `mapstructure:"failure_rate"         rule:"min=0,max=1"` // 统计窗口内失败比例阈值
	MinRequests       uint32  `mapstructure:"min_requests"`                            // 进入统计的最小请求数
	IntervalSeconds   int     `mapstructure:"interval_seconds"`                        // 统计窗口周期
	TimeoutSeconds    int     `mapstructure:"timeout_seconds"`                         // 打开状态持续时间（之后半开）
	MaxRequestsInHalf uint32  `mapstructure:"max_requests_in_half"`                    // 半开状态允许通过的请求数
}

// Interval 返回统计窗口.
func (c *CircuitBreakerConfig) Interval() time.Duration {
	return time.Duration(c.IntervalSeconds) * time.Second
}

// Timeout 返回打开状态持续时间.
func (c *CircuitBreakerConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func (c *CircuitBreakerConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("circuit_breaker.enabled", DefaultCBEnabled)
	v.SetDefault("circuit_breaker.failure_rate", DefaultCBFailureRate)
	v.SetDefault("circuit_breaker.min_requests", DefaultCBMinRequests)
	v.SetDefault("circuit_breaker.interval_seconds", DefaultCBIntervalSeconds)
	v.SetDefault("circuit_breaker.timeout_seconds", DefaultCBTimeoutSeconds)
	v.SetDefault("circuit_breaker.max_requests_in_half", DefaultCBMaxRequestsInHalf)
}
