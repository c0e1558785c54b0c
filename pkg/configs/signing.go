package configs

import (
	"time"

	"github.com/spf13/viper"
)

// CapabilityMode 只读凭证的签发方式.
type CapabilityMode string

const (
	// CapabilityGateway 由本服务签发 HMAC 令牌，经 /blob 网关读取对象.
	CapabilityGateway CapabilityMode = "gateway"
	// CapabilityStorage 直接使用对象存储原生的预签名 URL.
	CapabilityStorage CapabilityMode = "storage"
)

const (
	DefaultSigningAccount   = "blobdrive"             // 规范化资源路径中的账户名
	DefaultSigningKey       = ""                      // base64 编码的 HMAC 密钥，为空时签名不可用
	DefaultCapabilityMode   = CapabilityGateway       // 默认通过网关读取
	DefaultCapabilityTTL    = 15 * time.Minute        // 列表与搜索附带的下载链接有效期
	DefaultPublicBaseURL    = "http://localhost:8080" // 网关对外地址
	DefaultSignedIdentifier = "blobdrive"             // 默认写入凭证的签发身份
)

// SigningConfig 签名引擎配置.
type SigningConfig struct {
	Account        string         `mapstructure:"account"         rule:"required"`
	AccountKey     string         `mapstructure:"account_key"     rule:"omitempty,base64"`
	Mode           CapabilityMode `mapstructure:"mode"            rule:"oneof=gateway storage"`
	CapabilityTTL  time.Duration  `mapstructure:"capability_ttl"`
	PublicBaseURL  string         `mapstructure:"public_base_url" rule:"url"`
	SignIdentifier string         `mapstructure:"sign_identifier"`
}

func (c *SigningConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("signing.account", DefaultSigningAccount)
	v.SetDefault("signing.account_key", DefaultSigningKey)
	v.SetDefault("signing.mode", DefaultCapabilityMode)
	v.SetDefault("signing.capability_ttl", DefaultCapabilityTTL)
	v.SetDefault("signing.public_base_url", DefaultPublicBaseURL)
	v.SetDefault("signing.sign_identifier", DefaultSignedIdentifier)
}
