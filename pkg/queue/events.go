package queue

import "github.com/ThreeDotsLabs/watermill/message"

// PublishObjectEvent 发布对象或文件夹事件.
func PublishObjectEvent(pub message.Publisher, topic string, payload ObjectEventPayload, opts ...func(*EventHeader)) error {
	msg, err := NewWatermillMessage(topic, payload, opts...)
	if err != nil {
		return err
	}

	return pub.Publish(topic, msg)
}

// ParseObjectEvent 将 Watermill 消息解析为对象事件.
func ParseObjectEvent(msg *message.Message) (Message[ObjectEventPayload], error) {
	return ParseWatermillMessage[ObjectEventPayload](msg)
}

// PublishShareEvent 发布分享链接事件.
func PublishShareEvent(pub message.Publisher, topic string, payload ShareEventPayload, opts ...func(*EventHeader)) error {
	msg, err := NewWatermillMessage(topic, payload, opts...)
	if err != nil {
		return err
	}

	return pub.Publish(topic, msg)
}

// ParseShareEvent 将 Watermill 消息解析为分享事件.
func ParseShareEvent(msg *message.Message) (Message[ShareEventPayload], error) {
	return ParseWatermillMessage[ShareEventPayload](msg)
}
