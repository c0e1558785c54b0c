package configs

import "github.com/spf13/viper"

const (
	DefaultRateLimitEnabled = false
	DefaultRateLimitRPS     = 50.0
	DefaultRateLimitBurst   = 100
	DefaultRateLimitKey     = "ip"
	// 分享解析单独限流，降低枚举 shareId 的速度.
	DefaultShareResolveRPS   = 2.0
	DefaultShareResolveBurst = 10
)

// RateLimitConfig 速率限制配置.
type RateLimitConfig struct {
	Enabled bool    `mapstructure:"enabled"`
	RPS     float64 `mapstructure:"rps"`   // 每秒允许的请求数
	Burst   int     `mapstructure:"burst"` // 突发容量
	// Key 选择限流维度：global（全局）、ip（按客户端IP）、identity（按身份）、header:Header-Name（按请求头）
	Key string `mapstructure:"key"`

	ShareResolveRPS   float64 `mapstructure:"share_resolve_rps"`
	ShareResolveBurst int     `mapstructure:"share_resolve_burst"`
}

func (c *RateLimitConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("rate_limit.enabled", DefaultRateLimitEnabled)
	v.SetDefault("rate_limit.rps", DefaultRateLimitRPS)
	v.SetDefault("rate_limit.burst", DefaultRateLimitBurst)
	v.SetDefault("rate_limit.key", DefaultRateLimitKey)
	v.SetDefault("rate_limit.share_resolve_rps", DefaultShareResolveRPS)
	v.SetDefault("rate_limit.share_resolve_burst", DefaultShareResolveBurst)
}
