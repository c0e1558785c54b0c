package service

import (
	"strings"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/bytedance/sonic"
	"github.com/rs/zerolog"

	"github.com/yeisme/blobdrive/pkg/internal/model"
	nlog "github.com/yeisme/blobdrive/pkg/log"
	"github.com/yeisme/blobdrive/pkg/queue"
)

// 事件主题到操作类型的映射. 上传来源为 create 时记为创建空文件.
var topicActions = map[string]string{
	queue.TopicObjectUploaded:   model.ActionUpload,
	queue.TopicObjectDownloaded: model.ActionDownload,
	queue.TopicObjectRenamed:    model.ActionRename,
	queue.TopicObjectMoved:      model.ActionMove,
	queue.TopicObjectCopied:     model.ActionCopy,
	queue.TopicObjectDeleted:    model.ActionDelete,
	queue.TopicObjectRestored:   model.ActionRestore,
	queue.TopicObjectPurged:     model.ActionPermanentDelete,
	queue.TopicObjectTagged:     model.ActionTag,
	queue.TopicFolderCreated:    model.ActionCreateFolder,
	queue.TopicFolderDeleted:    model.ActionDeleteFolder,
	queue.TopicShareCreated:     model.ActionShareCreate,
	queue.TopicShareAccessed:    model.ActionShareAccess,
}

// ActivityRecorder 消费领域事件并写入操作日志.
type ActivityRecorder struct {
	rt     *Runtime
	logger zerolog.Logger
}

// NewActivityRecorder 创建操作日志消费者.
func NewActivityRecorder(rt *Runtime) *ActivityRecorder {
	return &ActivityRecorder{rt: rt, logger: nlog.Component("activity")}
}

// Register 为每个主题挂载消费者，返回主题数量. 关闭操作日志或未配置消息总线、数据库时不做任何事.
func (a *ActivityRecorder) Register() int {
	events := a.rt.Config.Events
	if !events.Enabled || !events.Activity || a.rt.Storage.MQ == nil || a.rt.Storage.DB == nil {
		return 0
	}

	topics := queue.AllTopics()
	for _, topic := range topics {
		a.rt.Storage.MQ.AddConsumer("activity."+topic, topic, a.Handle)
	}

	return len(topics)
}

// Handle 处理一条事件. 无法解析的消息被确认并丢弃，数据库写入失败时返回错误以便重投.
func (a *ActivityRecorder) Handle(msg *message.Message) error {
	row, ok := a.activity(msg)
	if !ok {
		return nil
	}

	if err := a.rt.db(msg.Context()).Create(row).Error; err != nil {
		a.logger.Error().Err(err).Str("action", row.Action).Msg("write activity failed")
		return err
	}

	return nil
}

func (a *ActivityRecorder) activity(msg *message.Message) (*model.Activity, bool) {
	var (
		topic, identity, fileID string
		occurred                time.Time
		payload                 any
		created                 bool
	)

	if strings.HasPrefix(msg.Metadata.Get("topic"), "bd.share.") {
		ev, err := queue.ParseShareEvent(msg)
		if err != nil {
			a.logger.Warn().Err(err).Str("uuid", msg.UUID).Msg("drop undecodable share event")
			return nil, false
		}

		topic, identity, fileID, occurred, payload = ev.Header.Topic, ev.Payload.Identity, ev.Payload.FileID, ev.Header.OccurredAt, ev.Payload
	} else {
		ev, err := queue.ParseObjectEvent(msg)
		if err != nil {
			a.logger.Warn().Err(err).Str("uuid", msg.UUID).Msg("drop undecodable object event")
			return nil, false
		}

		topic, identity, fileID, occurred, payload = ev.Header.Topic, ev.Payload.Identity, ev.Payload.Object.ObjectKey, ev.Header.OccurredAt, ev.Payload

		created = topic == queue.TopicObjectUploaded && ev.Payload.Source == "create"
	}

	action, ok := topicActions[topic]
	if created {
		action = model.ActionCreate
	}

	if !ok {
		a.logger.Debug().Str("topic", topic).Msg("ignore event without activity mapping")
		return nil, false
	}

	details, err := sonic.MarshalString(payload)
	if err != nil {
		details = "{}"
	}

	if occurred.IsZero() {
		occurred = a.rt.Now()
	}

	return &model.Activity{
		ID:        newULID(occurred),
		UserEmail: identity,
		FileID:    fileID,
		Action:    action,
		Details:   details,
		CreatedAt: occurred.UTC(),
	}, true
}
