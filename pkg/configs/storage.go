package configs

import (
	"fmt"

	"github.com/spf13/viper"
)

// StorageDriver 对象存储后端类型.
type StorageDriver string

const (
	StorageMinio  StorageDriver = "minio"  // S3 兼容存储（MinIO、AWS S3 等）
	StorageMemory StorageDriver = "memory" // 进程内存储，仅用于开发与测试
)

const (
	DefaultStorageDriver        = StorageMinio     // 默认后端
	DefaultS3Endpoint           = "localhost:9000" // 默认S3端点
	DefaultS3AccessKeyID        = "minioadmin"     // 默认访问密钥ID
	DefaultS3SecretAccessKey    = "minioadmin"     // 默认秘密访问密钥
	DefaultS3UseSSL             = false            // 默认是否使用SSL
	DefaultS3Region             = "us-east-1"      // 默认区域
	DefaultContainerPrefix      = ""               // 租户容器名前缀
	DefaultStatConcurrency      = 16               // 平铺列举时并发读取元数据的上限
	DefaultNamespaceIdleMinutes = 30               // 命名空间空闲多久后从注册表移除
	DefaultQuotaLimitMB         = 0                // 每个租户的配额上限，0 表示不限制
)

// StorageConfig 对象存储配置. 每个用户对应一个独立的容器（bucket）.
type StorageConfig struct {
	Driver               StorageDriver `mapstructure:"driver"                 rule:"oneof=minio memory"`
	Endpoint             string        `mapstructure:"endpoint"`
	AccessKeyID          string        `mapstructure:"access_key_id"`
	SecretAccessKey      string        `mapstructure:"secret_access_key"`
	UseSSL               bool          `mapstructure:"use_ssl"`
	Region               string        `mapstructure:"region"`
	ContainerPrefix      string        `mapstructure:"container_prefix"       rule:"max=20"`
	StatConcurrency      int           `mapstructure:"stat_concurrency"       rule:"min=1,max=256"`
	NamespaceIdleMinutes int           `mapstructure:"namespace_idle_minutes" rule:"min=1"`
	QuotaLimitMB         int64         `mapstructure:"quota_limit_mb"         rule:"min=0"`
}

// GetEndpointURL 获取完整的端点URL.
func (c *StorageConfig) GetEndpointURL() string {
	scheme := "http"
	if c.UseSSL {
		scheme = "https"
	}

	return fmt.Sprintf("%s://%s", scheme, c.Endpoint)
}

// GetQuotaLimitBytes 返回配额上限（字节），0 表示不限制.
func (c *StorageConfig) GetQuotaLimitBytes() int64 {
	return c.QuotaLimitMB << 20
}

func (c *StorageConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("storage.driver", DefaultStorageDriver)
	v.SetDefault("storage.endpoint", DefaultS3Endpoint)
	v.SetDefault("storage.access_key_id", DefaultS3AccessKeyID)
	v.SetDefault("storage.secret_access_key", DefaultS3SecretAccessKey)
	v.SetDefault("storage.use_ssl", DefaultS3UseSSL)
	v.SetDefault("storage.region", DefaultS3Region)
	v.SetDefault("storage.container_prefix", DefaultContainerPrefix)
	v.SetDefault("storage.stat_concurrency", DefaultStatConcurrency)
	v.SetDefault("storage.namespace_idle_minutes", DefaultNamespaceIdleMinutes)
	v.SetDefault("storage.quota_limit_mb", DefaultQuotaLimitMB)
}
