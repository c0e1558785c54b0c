package queue

import "time"

// EventHeader 定义所有事件的通用头部元数据.
type EventHeader struct {
	// Topic 冗余记录消息主题，便于离线处理或转储后定位来源主题.
	Topic string `json:"topic"`
	// TraceID 分布式追踪 ID，来自请求上下文.
	TraceID string `json:"trace_id,omitempty"`
	// Producer 生产者服务名或节点标识.
	Producer string `json:"producer,omitempty"`
	// OccurredAt 事件发生时间（UTC，RFC3339）.
	OccurredAt time.Time `json:"occurred_at"`
	// Version 事件负载版本，便于向后兼容演进.
	Version string `json:"version,omitempty"`
}

// Message 是统一的消息封装，Header + Payload.
type Message[T any] struct {
	Header  EventHeader `json:"header"`
	Payload T           `json:"payload"`
}

// ObjectRef 标识租户命名空间中的一个对象.
type ObjectRef struct {
	Container   string   `json:"container"`
	ObjectKey   string   `json:"object_key"`
	Name        string   `json:"name,omitempty"`
	Size        int64    `json:"size,omitempty"`
	ContentType string   `json:"content_type,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// ObjectEventPayload 对象与文件夹事件的负载.
type ObjectEventPayload struct {
	Identity string    `json:"identity"`
	Object   ObjectRef `json:"object"`
	// From 重命名、移动、复制的源对象键.
	From string `json:"from,omitempty"`
	// Count 文件夹删除时处理的对象数量.
	Count int `json:"count,omitempty"`
	// Source 上传来源：upload 或 create（空文件）.
	Source string `json:"source,omitempty"`
}

// ShareEventPayload 分享链接事件的负载.
type ShareEventPayload struct {
	Identity string    `json:"identity"` // 创建者或解析者
	ShareID  string    `json:"share_id"`
	FileID   string    `json:"file_id"`
	Owner    string    `json:"owner"`
	Expiry   time.Time `json:"expiry"`
}
