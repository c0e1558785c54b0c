// Package configs 管理应用程序配置，包括数据库、对象存储、签名、分享链接、缓存与消息队列的配置信息.
// configs 包支持多种配置格式（YAML、JSON、TOML、dotenv）并启用热重载.
//
// Example:
//
//	if err := configs.InitConfig("./"); err != nil {
//		log.Fatal(err)
//	}
//
//	cfg := configs.GetConfig()
//	fmt.Println(cfg.Server.Port, cfg.Storage.Driver)
//
// 环境变量使用 BLOBDRIVE_ 前缀，层级以下划线分隔，例如 BLOBDRIVE_SIGNING_ACCOUNT_KEY.
package configs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// AppVersion 应用版本，构建时可通过 -ldflags 覆盖.
var AppVersion = "0.1.0"

// EnvPrefix 环境变量前缀.
const EnvPrefix = "BLOBDRIVE"

type (
	// AppConfig 全局应用程序配置.
	AppConfig struct {
		Server         ServerConfig         `mapstructure:"server"`          // 服务器端口、调试模式、超时
		Log            LogConfig            `mapstructure:"log"`             // 日志相关配置
		DB             DBConfig             `mapstructure:"db"`              // 元数据库（文件登记表、分享链接）
		Storage        StorageConfig        `mapstructure:"storage"`         // 对象存储后端
		Signing        SigningConfig        `mapstructure:"signing"`         // 签名引擎与只读凭证
		Share          ShareConfig          `mapstructure:"share"`           // 分享链接
		KV             KVConfig             `mapstructure:"kv"`              // 分享记录缓存
		MQ             MQConfig             `mapstructure:"mq"`              // 领域事件总线
		Events         EventsConfig         `mapstructure:"events"`          // 事件开关
		Auth           AuthConfig           `mapstructure:"auth"`            // 身份头部
		RateLimit      RateLimitConfig      `mapstructure:"rate_limit"`      // 限流
		CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"` // 存储后端熔断
		Tracing        TracingConfig        `mapstructure:"tracing"`         // 分布式追踪
		Metrics        MetricsConfig        `mapstructure:"metrics"`         // Prometheus 指标
		Jobs           JobsConfig           `mapstructure:"jobs"`            // 定时任务
	}
)

var (
	// globalConfig 全局配置实例.
	globalConfig AppConfig
	// appViper 全局 Viper 实例.
	appViper *viper.Viper
)

// InitConfig 加载应用程序配置. path 可以是文件也可以是目录；目录下找不到配置文件时仅使用默认值与环境变量.
func InitConfig(path string) error {
	appViper = viper.New()
	setAllDefaults(appViper)

	if info, err := os.Stat(path); err == nil && !info.IsDir() {
		appViper.SetConfigFile(path)
	} else {
		appViper.SetConfigName("config")
		appViper.AddConfigPath(path)
		appViper.AddConfigPath(filepath.Join(path, "configs"))

		for _, ext := range []string{"yaml", "yml", "json", "toml", "env", "dotenv"} {
			cfg := filepath.Join(path, "config."+ext)
			if _, err := os.Stat(cfg); err == nil {
				appViper.SetConfigFile(cfg)

				break
			}
		}
	}

	appViper.SetEnvPrefix(EnvPrefix)
	appViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	appViper.AutomaticEnv()

	if err := appViper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := appViper.Unmarshal(&globalConfig); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	reloadConfigs(appViper, globalConfig.Server.ReloadConfig)

	return nil
}

// setAllDefaults 设置所有配置的默认值.
func setAllDefaults(v *viper.Viper) {
	var c AppConfig

	c.Server.setDefaults(v)
	c.Log.setDefaults(v)
	c.DB.setDefaults(v)
	c.Storage.setDefaults(v)
	c.Signing.setDefaults(v)
	c.Share.setDefaults(v)
	c.KV.setDefaults(v)
	c.MQ.setDefaults(v)
	c.Events.setDefaults(v)
	c.Auth.setDefaults(v)
	c.RateLimit.setDefaults(v)
	c.CircuitBreaker.setDefaults(v)
	c.Tracing.setDefaults(v)
	c.Metrics.setDefaults(v)
	c.Jobs.setDefaults(v)
}

func reloadConfigs(v *viper.Viper, isHotReload bool) {
	if !isHotReload || v.ConfigFileUsed() == "" {
		return
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		fmt.Println("Config file changed:", e.Name)

		if err := v.Unmarshal(&globalConfig); err != nil {
			fmt.Printf("Error reloading config: %v\n", err)
		}
	})
	v.WatchConfig()
}

// Defaults 返回只包含默认值的配置，CLI 工具与测试使用.
func Defaults() AppConfig {
	v := viper.New()
	setAllDefaults(v)

	var c AppConfig
	_ = v.Unmarshal(&c)

	return c
}

const redactedValue = "******"

// Redacted 返回凭据打码后的副本，供 CLI 与诊断输出使用. 空值保持为空.
func (c AppConfig) Redacted() AppConfig {
	for _, s := range []*string{
		&c.DB.Password,
		&c.Storage.SecretAccessKey,
		&c.Signing.AccountKey,
		&c.KV.Redis.Password,
		&c.KV.NATS.Password,
		&c.MQ.Password,
		&c.MQ.JWT,
		&c.MQ.NKey,
	} {
		if *s != "" {
			*s = redactedValue
		}
	}

	return c
}

// GetConfig 返回全局配置实例.
func GetConfig() *AppConfig {
	return &globalConfig
}

// GetViper 返回全局 Viper 实例，未初始化时为 nil.
func GetViper() *viper.Viper {
	return appViper
}
