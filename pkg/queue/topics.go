package queue

// 主题命名规范：bd.<域>.<动作>，尽量稳定且向后兼容.
// 域：object（对象生命周期）、folder（文件夹）、share（分享链接）.

const (
	// 对象生命周期. uploaded 也用于创建空文件，downloaded 受 events.access 控制.
	TopicObjectUploaded   = "bd.object.uploaded"
	TopicObjectDownloaded = "bd.object.downloaded"
	TopicObjectRenamed    = "bd.object.renamed"
	TopicObjectMoved      = "bd.object.moved"
	TopicObjectCopied     = "bd.object.copied"
	TopicObjectDeleted    = "bd.object.deleted"
	TopicObjectRestored   = "bd.object.restored"
	TopicObjectPurged     = "bd.object.purged"
	TopicObjectTagged     = "bd.object.tagged"

	// 文件夹.
	TopicFolderCreated = "bd.folder.created"
	TopicFolderDeleted = "bd.folder.deleted"

	// 分享链接. accessed 受 events.access 控制.
	TopicShareCreated  = "bd.share.created"
	TopicShareAccessed = "bd.share.accessed"
)

// ObjectTopics 对象与文件夹相关的全部主题.
var ObjectTopics = []string{
	TopicObjectUploaded,
	TopicObjectDownloaded,
	TopicObjectRenamed,
	TopicObjectMoved,
	TopicObjectCopied,
	TopicObjectDeleted,
	TopicObjectRestored,
	TopicObjectPurged,
	TopicObjectTagged,
	TopicFolderCreated,
	TopicFolderDeleted,
}

// ShareTopics 分享相关的全部主题.
var ShareTopics = []string{TopicShareCreated, TopicShareAccessed}

// AllTopics 返回所有主题.
func AllTopics() []string {
	out := make([]string, 0, len(ObjectTopics)+len(ShareTopics))
	out = append(out, ObjectTopics...)

	return append(out, ShareTopics...)
}
