package configs

import "github.com/spf13/viper"

// EventsConfig 控制领域事件的发布与消费.
type EventsConfig struct {
	Enabled  bool `mapstructure:"enabled"`  // 总开关，关闭后不发布任何事件
	Activity bool `mapstructure:"activity"` // 是否启动操作日志消费者，将事件写入 activity_log
	Access   bool `mapstructure:"access"`   // 是否发布下载与分享访问事件，量大时可关闭
}

func (c *EventsConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("events.enabled", true)
	v.SetDefault("events.activity", true)
	v.SetDefault("events.access", true)
}
