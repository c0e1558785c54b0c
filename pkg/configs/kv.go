package configs

import (
	"github.com/spf13/viper"
)

// KVConfig 键值存储配置，分享记录缓存使用.
type KVConfig struct {
	Type       string             `mapstructure:"type"       rule:"oneof=memory redis nats groupcache"`
	Redis      RedisKVConfig      `mapstructure:"redis"`
	NATS       NATSKVConfig       `mapstructure:"nats"`
	Groupcache GroupcacheKVConfig `mapstructure:"groupcache"`
}

// RedisKVConfig Redis KV 配置.
type RedisKVConfig struct {
	Addr     string `mapstructure:"addr"     rule:"hostname_port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"       rule:"min=0,max=15"`
}

// NATSKVConfig NATS KV 配置.
type NATSKVConfig struct {
	URL      string `mapstructure:"url"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Bucket   string `mapstructure:"bucket"   rule:"required"`
}

// GroupcacheKVConfig Groupcache KV 配置.
type GroupcacheKVConfig struct {
	Name       string   `mapstructure:"name"        rule:"required"`
	CacheBytes int64    `mapstructure:"cache_bytes" rule:"min=1048576"` // 最小1MB
	Peers      []string `mapstructure:"peers"`
	Self       string   `mapstructure:"self"`
}

// StoreConfig 返回当前 KV 类型对应的驱动配置，供 kv 工厂使用.
func (c *KVConfig) StoreConfig() any {
	switch c.Type {
	case "redis":
		return &c.Redis
	case "nats":
		return &c.NATS
	case "groupcache":
		return &c.Groupcache
	default:
		return nil
	}
}

func (c *KVConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("kv.type", "memory")

	v.SetDefault("kv.redis.addr", "localhost:6379")
	v.SetDefault("kv.redis.password", "")
	v.SetDefault("kv.redis.db", 0)

	v.SetDefault("kv.nats.url", "nats://localhost:4222")
	v.SetDefault("kv.nats.user", "")
	v.SetDefault("kv.nats.password", "")
	v.SetDefault("kv.nats.bucket", "blobdrive-shares")

	const defaultGroupcacheBytes = 64 * 1024 * 1024 // 64MB
	v.SetDefault("kv.groupcache.name", "blobdrive-shares")
	v.SetDefault("kv.groupcache.cache_bytes", defaultGroupcacheBytes)
	v.SetDefault("kv.groupcache.peers", []string{})
	v.SetDefault("kv.groupcache.self", "http://localhost:8080")
}
