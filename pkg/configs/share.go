package configs

import "github.com/spf13/viper"

const (
	DefaultShareAppURL        = "http://localhost:3000" // 分享链接指向的前端地址
	DefaultShareExpiryDays    = 7                       // 未指定时的分享有效天数
	DefaultShareMaxExpiryDays = 365                     // 分享有效期上限
	DefaultShareIdentity      = "shared-access"         // 解析分享时使用的中立身份
	DefaultShareCacheTTL      = 600                     // 分享记录缓存上限（秒）
)

// ShareConfig 分享链接配置.
type ShareConfig struct {
	AppURL          string `mapstructure:"app_url"             rule:"url"`
	DefaultExpiry   int    `mapstructure:"default_expiry_days" rule:"min=1"`
	MaxExpiry       int    `mapstructure:"max_expiry_days"     rule:"min=1"`
	SharedIdentity  string `mapstructure:"shared_identity"     rule:"required"`
	CacheTTLSeconds int    `mapstructure:"cache_ttl_seconds"   rule:"min=0"`
}

func (c *ShareConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("share.app_url", DefaultShareAppURL)
	v.SetDefault("share.default_expiry_days", DefaultShareExpiryDays)
	v.SetDefault("share.max_expiry_days", DefaultShareMaxExpiryDays)
	v.SetDefault("share.shared_identity", DefaultShareIdentity)
	v.SetDefault("share.cache_ttl_seconds", DefaultShareCacheTTL)
}
