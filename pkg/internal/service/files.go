package service

import (
	"context"
	"strings"

	"github.com/yeisme/blobdrive/pkg/internal/types"
	"github.com/yeisme/blobdrive/pkg/internal/vfs"
	nlog "github.com/yeisme/blobdrive/pkg/log"
	"github.com/yeisme/blobdrive/pkg/metrics"
	"github.com/yeisme/blobdrive/pkg/queue"
)

// FileService 租户文件操作. 每个操作先打开调用方的命名空间，再同步文件登记表并发布事件.
type FileService struct {
	rt *Runtime
}

// NewFileService 从 context 中的 Runtime 创建 FileService.
func NewFileService(ctx context.Context) *FileService {
	return &FileService{rt: RuntimeFrom(ctx)}
}

// NewFileServiceWith 使用给定 Runtime 创建 FileService.
func NewFileServiceWith(rt *Runtime) *FileService {
	return &FileService{rt: rt}
}

func (s *FileService) open(ctx context.Context, identity string) (*vfs.Namespace, error) {
	if s.rt == nil {
		return nil, vfs.Errorf(vfs.ErrConfiguration, "open", "", "%v", ErrNotInitialized)
	}

	ns, err := s.rt.Registry.Open(ctx, identity)
	if err != nil {
		return nil, err
	}

	metrics.Namespaces.Set(float64(s.rt.Registry.Len()))

	return ns, nil
}

// Init 确保调用方的容器存在.
func (s *FileService) Init(ctx context.Context, identity string) (ns *vfs.Namespace, err error) {
	ctx, done := track(ctx, "init", identity)
	defer done(&err)

	return s.open(ctx, identity)
}

// List 列出一层目录.
func (s *FileService) List(ctx context.Context, identity, path string) (resp *types.ListFilesResponse, err error) {
	ctx, done := track(ctx, "list", identity)
	defer done(&err)

	ns, err := s.open(ctx, identity)
	if err != nil {
		return nil, err
	}

	items, err := ns.ListLevel(ctx, path)
	if err != nil {
		return nil, err
	}

	return &types.ListFilesResponse{Path: strings.Trim(path, "/"), Items: items, Total: len(items)}, nil
}

// Upload 上传文件到 dir 目录.
func (s *FileService) Upload(ctx context.Context, identity, dir, name string, body []byte, contentType string) (it vfs.Item, err error) {
	ctx, done := track(ctx, "upload", identity)
	defer done(&err)

	return s.write(ctx, identity, dir, name, body, contentType, "upload")
}

// CreateFile 创建空文件.
func (s *FileService) CreateFile(ctx context.Context, identity string, req *types.CreateFileRequest) (it vfs.Item, err error) {
	ctx, done := track(ctx, "create", identity)
	defer done(&err)

	ct := req.ContentType
	if ct == "" {
		ct = "text/plain"
	}

	return s.write(ctx, identity, req.Path, req.Name, nil, ct, "create")
}

func (s *FileService) write(ctx context.Context, identity, dir, name string, body []byte, ct, source string) (vfs.Item, error) {
	ns, err := s.open(ctx, identity)
	if err != nil {
		return vfs.Item{}, err
	}

	it, err := ns.Upload(ctx, dir, name, body, ct)
	if err != nil {
		return vfs.Item{}, err
	}

	s.rt.upsertFile(ctx, ns, it)
	s.rt.publishObject(ctx, queue.TopicObjectUploaded, queue.ObjectEventPayload{
		Identity: ns.Identity(),
		Object:   objectRef(ns, it),
		Source:   source,
	})

	nlog.Ctx(ctx).Debug().Str("key", it.ID).Int64("size", it.Size).Str("source", source).Msg("object written")

	return it, nil
}

// Download 读取文件内容.
func (s *FileService) Download(ctx context.Context, identity, path string) (f *vfs.File, err error) {
	ctx, done := track(ctx, "download", identity)
	defer done(&err)

	ns, err := s.open(ctx, identity)
	if err != nil {
		return nil, err
	}

	f, err = ns.Get(ctx, path)
	if err != nil {
		return nil, err
	}

	if s.rt.Config.Events.Access {
		s.rt.publishObject(ctx, queue.TopicObjectDownloaded, queue.ObjectEventPayload{
			Identity: ns.Identity(),
			Object:   objectRef(ns, f.Item),
		})
	}

	return f, nil
}

// CreateFolder 创建文件夹占位对象.
func (s *FileService) CreateFolder(ctx context.Context, identity, path string) (it vfs.Item, err error) {
	ctx, done := track(ctx, "create_folder", identity)
	defer done(&err)

	ns, err := s.open(ctx, identity)
	if err != nil {
		return vfs.Item{}, err
	}

	it, err = ns.CreateFolder(ctx, path)
	if err != nil {
		return vfs.Item{}, err
	}

	s.rt.upsertFile(ctx, ns, it)
	s.rt.publishObject(ctx, queue.TopicFolderCreated, queue.ObjectEventPayload{
		Identity: ns.Identity(),
		Object:   objectRef(ns, it),
	})

	return it, nil
}

// DeleteFolder 软删除文件夹下所有对象.
func (s *FileService) DeleteFolder(ctx context.Context, identity, path string) (resp *types.DeleteFolderResponse, err error) {
	ctx, done := track(ctx, "delete_folder", identity)
	defer done(&err)

	ns, err := s.open(ctx, identity)
	if err != nil {
		return nil, err
	}

	n, err := ns.DeleteFolder(ctx, path)
	if err != nil {
		return nil, err
	}

	path = strings.Trim(path, "/")

	if key, kerr := ns.Key(path); kerr == nil {
		s.rt.markPrefixDeleted(ctx, ns.Identity(), key+"/")
		s.rt.publishObject(ctx, queue.TopicFolderDeleted, queue.ObjectEventPayload{
			Identity: ns.Identity(),
			Object:   queue.ObjectRef{Container: ns.Container(), ObjectKey: key},
			Count:    n,
		})
	}

	return &types.DeleteFolderResponse{Path: path, Deleted: n}, nil
}

// SoftDelete 把文件移入回收站.
func (s *FileService) SoftDelete(ctx context.Context, identity, path string) (it vfs.Item, err error) {
	ctx, done := track(ctx, "delete", identity)
	defer done(&err)

	ns, err := s.open(ctx, identity)
	if err != nil {
		return vfs.Item{}, err
	}

	it, err = ns.SoftDelete(ctx, path)
	if err != nil {
		return vfs.Item{}, err
	}

	s.rt.markDeleted(ctx, it.ID, true)
	s.rt.publishObject(ctx, queue.TopicObjectDeleted, queue.ObjectEventPayload{
		Identity: ns.Identity(),
		Object:   objectRef(ns, it),
	})

	return it, nil
}

// Restore 从回收站恢复文件.
func (s *FileService) Restore(ctx context.Context, identity, path string) (it vfs.Item, err error) {
	ctx, done := track(ctx, "restore", identity)
	defer done(&err)

	ns, err := s.open(ctx, identity)
	if err != nil {
		return vfs.Item{}, err
	}

	it, err = ns.Restore(ctx, path)
	if err != nil {
		return vfs.Item{}, err
	}

	s.rt.markDeleted(ctx, it.ID, false)
	s.rt.publishObject(ctx, queue.TopicObjectRestored, queue.ObjectEventPayload{
		Identity: ns.Identity(),
		Object:   objectRef(ns, it),
	})

	return it, nil
}

// PermanentDelete 立即删除对象.
func (s *FileService) PermanentDelete(ctx context.Context, identity, path string) (err error) {
	ctx, done := track(ctx, "permanent_delete", identity)
	defer done(&err)

	ns, err := s.open(ctx, identity)
	if err != nil {
		return err
	}

	key, err := ns.Key(path)
	if err != nil {
		return err
	}

	if err := ns.Remove(ctx, path); err != nil {
		return err
	}

	s.rt.deleteRow(ctx, key)
	s.rt.publishObject(ctx, queue.TopicObjectPurged, queue.ObjectEventPayload{
		Identity: ns.Identity(),
		Object:   queue.ObjectRef{Container: ns.Container(), ObjectKey: key},
	})

	return nil
}

// Rename 同目录改名.
func (s *FileService) Rename(ctx context.Context, identity, path, newName string) (it vfs.Item, err error) {
	ctx, done := track(ctx, "rename", identity)
	defer done(&err)

	ns, err := s.open(ctx, identity)
	if err != nil {
		return vfs.Item{}, err
	}

	from, err := ns.Key(path)
	if err != nil {
		return vfs.Item{}, err
	}

	it, err = ns.Rename(ctx, path, newName)
	if err != nil {
		return vfs.Item{}, err
	}

	s.transferred(ctx, ns, queue.TopicObjectRenamed, from, it, true)

	return it, nil
}

// Copy 复制到目标文件夹.
func (s *FileService) Copy(ctx context.Context, identity, id, destID string) (it vfs.Item, err error) {
	ctx, done := track(ctx, "copy", identity)
	defer done(&err)

	ns, err := s.open(ctx, identity)
	if err != nil {
		return vfs.Item{}, err
	}

	from, err := ns.Key(id)
	if err != nil {
		return vfs.Item{}, err
	}

	it, err = ns.Copy(ctx, id, destID)
	if err != nil {
		return vfs.Item{}, err
	}

	s.transferred(ctx, ns, queue.TopicObjectCopied, from, it, false)

	return it, nil
}

// Move 移动到目标文件夹.
func (s *FileService) Move(ctx context.Context, identity, id, destID string) (it vfs.Item, err error) {
	ctx, done := track(ctx, "move", identity)
	defer done(&err)

	ns, err := s.open(ctx, identity)
	if err != nil {
		return vfs.Item{}, err
	}

	from, err := ns.Key(id)
	if err != nil {
		return vfs.Item{}, err
	}

	it, err = ns.Move(ctx, id, destID)
	if err != nil {
		return vfs.Item{}, err
	}

	s.transferred(ctx, ns, queue.TopicObjectMoved, from, it, true)

	return it, nil
}

// transferred 同步登记表并发布事件. 源与目标相同时什么都不做.
func (s *FileService) transferred(ctx context.Context, ns *vfs.Namespace, topic, from string, it vfs.Item, removeSource bool) {
	if from == it.ID {
		return
	}

	if removeSource {
		s.rt.rekey(ctx, ns, from, it)
	} else {
		s.rt.upsertFile(ctx, ns, it)
	}

	s.rt.publishObject(ctx, topic, queue.ObjectEventPayload{
		Identity: ns.Identity(),
		Object:   objectRef(ns, it),
		From:     from,
	})
}

// SetTags 覆盖文件标签.
func (s *FileService) SetTags(ctx context.Context, identity, path string, tags []string) (it vfs.Item, err error) {
	ctx, done := track(ctx, "tag", identity)
	defer done(&err)

	ns, err := s.open(ctx, identity)
	if err != nil {
		return vfs.Item{}, err
	}

	it, err = ns.SetTags(ctx, path, tags)
	if err != nil {
		return vfs.Item{}, err
	}

	s.rt.publishObject(ctx, queue.TopicObjectTagged, queue.ObjectEventPayload{
		Identity: ns.Identity(),
		Object:   objectRef(ns, it),
	})

	return it, nil
}

// Search 按名称搜索.
func (s *FileService) Search(ctx context.Context, identity, query string) (resp *types.SearchResponse, err error) {
	ctx, done := track(ctx, "search", identity)
	defer done(&err)

	ns, err := s.open(ctx, identity)
	if err != nil {
		return nil, err
	}

	items, err := ns.Search(ctx, query)
	if err != nil {
		return nil, err
	}

	return &types.SearchResponse{Query: query, Items: items, Total: len(items)}, nil
}

// RecycleBin 列出回收站.
func (s *FileService) RecycleBin(ctx context.Context, identity string) (resp *types.TrashResponse, err error) {
	ctx, done := track(ctx, "recycle_bin", identity)
	defer done(&err)

	ns, err := s.open(ctx, identity)
	if err != nil {
		return nil, err
	}

	items, err := ns.RecycleBin(ctx)
	if err != nil {
		return nil, err
	}

	return &types.TrashResponse{Items: items, Total: len(items)}, nil
}

// Quota 统计用量.
func (s *FileService) Quota(ctx context.Context, identity string) (resp *types.QuotaResponse, err error) {
	ctx, done := track(ctx, "quota", identity)
	defer done(&err)

	ns, err := s.open(ctx, identity)
	if err != nil {
		return nil, err
	}

	usage, err := ns.Quota(ctx)
	if err != nil {
		return nil, err
	}

	return &types.QuotaResponse{
		Usage:     usage,
		Identity:  ns.Identity(),
		Container: ns.Container(),
		CheckedAt: s.rt.Now().UTC(),
	}, nil
}
