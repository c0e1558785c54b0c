package configs

import "github.com/spf13/viper"

// AuthConfig 控制身份识别. 身份由前置代理（如 oauth2-proxy）注入请求头，本服务不解析令牌.
type AuthConfig struct {
	Enabled       bool     `mapstructure:"enabled"`         // 开启身份校验
	Headers       []string `mapstructure:"headers"`         // 依次读取的身份请求头
	SkipPaths     []string `mapstructure:"skip_paths"`      // 跳过校验的路径前缀
	DevAllowQuery bool     `mapstructure:"dev_allow_query"` // 开发模式允许用 ?user= 调试
}

func (c *AuthConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("auth.enabled", true)
	v.SetDefault("auth.headers", []string{"X-Auth-Request-Email", "X-Forwarded-Email"})
	v.SetDefault("auth.dev_allow_query", false)
	v.SetDefault("auth.skip_paths", []string{
		"/metrics",
		"/debug/pprof",
		"/swagger/",
		"/api/v1/health",
		"/blob/",
	})
}
