package configs

import (
	"github.com/spf13/viper"
)

// MQType 消息队列类型.
type MQType string

const (
	MQTypeMemory MQType = "memory" // 进程内 gochannel，单实例部署与测试
	MQTypeNATS   MQType = "nats"

	DefaultMQType        = MQTypeMemory
	DefaultMQURL         = "nats://localhost:4222"
	DefaultMaxReconnects = 5                   // 默认最大重连次数
	DefaultReconnectWait = 5                   // 默认重连等待时间（秒）
	DefaultPingInterval  = 20                  // 默认ping间隔（秒）
	DefaultBufferSize    = 32768               // 默认重连缓冲区大小（32KB）
	DefaultMQClientID    = "blobdrive"         // 默认客户端名
	DefaultChannelBuffer = 256                 // gochannel 输出缓冲
	DefaultStreamName    = "blobdrive"         // 默认 JetStream 流名
	DefaultSubjectPrefix = "blobdrive."        // 默认主题前缀
	DefaultDurablePrefix = "blobdrive-durable" // 默认持久化消费者前缀
)

// MQConfig 消息队列配置.
type MQConfig struct {
	Type          MQType   `mapstructure:"type"           rule:"oneof=memory nats"`
	URL           string   `mapstructure:"url"`
	ClusterURLs   []string `mapstructure:"cluster_urls"`
	User          string   `mapstructure:"user"`
	Password      string   `mapstructure:"password"`
	JWT           string   `mapstructure:"jwt"`
	NKey          string   `mapstructure:"nkey"`
	ClientID      string   `mapstructure:"client_id"`
	MaxReconnects int      `mapstructure:"max_reconnects" rule:"min=0,max=100"`
	ReconnectWait int      `mapstructure:"reconnect_wait" rule:"min=1,max=300"`
	PingInterval  int      `mapstructure:"ping_interval"  rule:"min=1,max=300"`
	BufferSize    int      `mapstructure:"buffer_size"    rule:"min=1024,max=1048576"`
	ChannelBuffer int64    `mapstructure:"channel_buffer" rule:"min=0"`
	QueueGroup    string   `mapstructure:"queue_group"`

	JetStream MQJetStreamConfig `mapstructure:"jetstream"`
}

// MQJetStreamConfig NATS JetStream 配置.
type MQJetStreamConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	AutoProvision bool   `mapstructure:"auto_provision"`
	TrackMsgID    bool   `mapstructure:"track_msg_id"`
	AckAsync      bool   `mapstructure:"ack_async"`
	DurablePrefix string `mapstructure:"durable_prefix"`
	StreamName    string `mapstructure:"stream_name"`
	SubjectPrefix string `mapstructure:"subject_prefix"`
}

func (c *MQConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("mq.type", DefaultMQType)
	v.SetDefault("mq.url", DefaultMQURL)
	v.SetDefault("mq.cluster_urls", []string{})
	v.SetDefault("mq.client_id", DefaultMQClientID)
	v.SetDefault("mq.max_reconnects", DefaultMaxReconnects)
	v.SetDefault("mq.reconnect_wait", DefaultReconnectWait)
	v.SetDefault("mq.ping_interval", DefaultPingInterval)
	v.SetDefault("mq.buffer_size", DefaultBufferSize)
	v.SetDefault("mq.channel_buffer", DefaultChannelBuffer)
	v.SetDefault("mq.queue_group", "blobdrive")

	v.SetDefault("mq.jetstream.enabled", true)
	v.SetDefault("mq.jetstream.auto_provision", true)
	v.SetDefault("mq.jetstream.track_msg_id", true)
	v.SetDefault("mq.jetstream.ack_async", false)
	v.SetDefault("mq.jetstream.durable_prefix", DefaultDurablePrefix)
	v.SetDefault("mq.jetstream.stream_name", DefaultStreamName)
	v.SetDefault("mq.jetstream.subject_prefix", DefaultSubjectPrefix)
}
