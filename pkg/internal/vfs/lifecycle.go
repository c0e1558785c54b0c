package vfs

import (
	"context"
	"strings"

	"github.com/yeisme/blobdrive/pkg/internal/storage/blob"
)

// Put 覆盖写入对象内容与元数据.
func (n *Namespace) Put(ctx context.Context, rel string, body []byte, contentType string, meta blob.Metadata) (Item, error) {
	key, err := n.fileKey("put", rel)
	if err != nil {
		return Item{}, err
	}

	info, err := n.backend.Put(ctx, n.container, key, body, contentType, meta)
	if err != nil {
		return Item{}, classify("put", key, err)
	}

	return n.fileItem(ctx, info, true), nil
}

// Upload 写入 dir 目录下名为 name 的文件，附带 originalName、uploadDate 与 userFolder.
func (n *Namespace) Upload(ctx context.Context, dir, name string, body []byte, contentType string) (Item, error) {
	if !validName(name) {
		return Item{}, &Error{Kind: ErrInvalidArgument, Op: "upload", Path: name}
	}

	return n.Put(ctx, joinRel(n.relative(n.mustKey(dir)), name), body, contentType, blob.Metadata{
		blob.MetaOriginalName: name,
		blob.MetaUploadDate:   n.timestamp(),
		blob.MetaUserFolder:   n.folder,
	})
}

// mustKey 解析目录路径，非法路径原样返回交由后续校验.
func (n *Namespace) mustKey(dir string) string {
	key, err := n.key("upload", dir)
	if err != nil {
		return dir
	}

	return key
}

// Get 读取对象内容、类型与元数据.
func (n *Namespace) Get(ctx context.Context, rel string) (*File, error) {
	key, err := n.fileKey("get", rel)
	if err != nil {
		return nil, err
	}

	obj, err := n.backend.Get(ctx, n.container, key)
	if err != nil {
		return nil, classify("get", key, err)
	}

	return &File{
		Item:     n.fileItem(ctx, obj.ObjectInfo, false),
		Body:     obj.Body,
		Metadata: obj.Metadata,
	}, nil
}

// Stat 读取对象属性.
func (n *Namespace) Stat(ctx context.Context, rel string) (blob.ObjectInfo, error) {
	key, err := n.fileKey("stat", rel)
	if err != nil {
		return blob.ObjectInfo{}, err
	}

	info, err := n.backend.Stat(ctx, n.container, key)

	return info, classify("stat", key, err)
}

// Remove 永久删除对象. 对象不存在时返回 ErrNotFound.
func (n *Namespace) Remove(ctx context.Context, rel string) error {
	key, err := n.fileKey("remove", rel)
	if err != nil {
		return err
	}

	if _, err := n.backend.Stat(ctx, n.container, key); err != nil {
		return classify("remove", key, err)
	}

	return classify("remove", key, n.backend.Delete(ctx, n.container, key))
}

// updateMetadata 读取最新元数据，交给 fn 修改后整体写回.
func (n *Namespace) updateMetadata(ctx context.Context, op, key string, fn func(blob.Metadata) blob.Metadata) (blob.ObjectInfo, error) {
	info, err := n.backend.Stat(ctx, n.container, key)
	if err != nil {
		return blob.ObjectInfo{}, classify(op, key, err)
	}

	info.Metadata = fn(info.Metadata)

	if err := n.backend.SetMetadata(ctx, n.container, key, info.Metadata); err != nil {
		return blob.ObjectInfo{}, classify(op, key, err)
	}

	return info, nil
}

// SoftDelete 在元数据上标记删除，保留内容.
func (n *Namespace) SoftDelete(ctx context.Context, rel string) (Item, error) {
	key, err := n.fileKey("soft-delete", rel)
	if err != nil {
		return Item{}, err
	}

	return n.softDeleteKey(ctx, key)
}

func (n *Namespace) softDeleteKey(ctx context.Context, key string) (Item, error) {
	info, err := n.updateMetadata(ctx, "soft-delete", key, func(m blob.Metadata) blob.Metadata {
		return m.Merge(blob.Metadata{
			blob.MetaDeleted:      "true",
			blob.MetaDeletedDate:  n.timestamp(),
			blob.MetaOriginalPath: n.relative(key),
		})
	})
	if err != nil {
		return Item{}, err
	}

	it := n.fileItem(ctx, info, false)
	it.DeletedDate = parseTime(info.Metadata[blob.MetaDeletedDate])
	it.OriginalPath = info.Metadata[blob.MetaOriginalPath]

	return it, nil
}

// Restore 去掉三个删除标记，其余元数据不变.
func (n *Namespace) Restore(ctx context.Context, rel string) (Item, error) {
	key, err := n.fileKey("restore", rel)
	if err != nil {
		return Item{}, err
	}

	info, err := n.updateMetadata(ctx, "restore", key, func(m blob.Metadata) blob.Metadata {
		return m.Without(blob.MetaDeleted, blob.MetaDeletedDate, blob.MetaOriginalPath)
	})
	if err != nil {
		return Item{}, err
	}

	return n.fileItem(ctx, info, true), nil
}

// Rename 在同一目录下改名：读取，写入新键，删除旧键. 非原子，中途失败可能留下两份.
// 新旧名称相同时不做任何操作. 回收站中的对象需先恢复.
func (n *Namespace) Rename(ctx context.Context, rel, newName string) (Item, error) {
	key, err := n.fileKey("rename", rel)
	if err != nil {
		return Item{}, err
	}

	if !validName(newName) {
		return Item{}, &Error{Kind: ErrInvalidArgument, Op: "rename", Path: newName}
	}

	newKey := joinRel(parentDir(key), newName)

	src, err := n.backend.Get(ctx, n.container, key)
	if err != nil {
		return Item{}, classify("rename", key, err)
	}

	if src.Metadata.Flag(blob.MetaDeleted) {
		return Item{}, &Error{Kind: ErrNotFound, Op: "rename", Path: key, Err: errInTrash}
	}

	if newKey == key {
		return n.fileItem(ctx, src.ObjectInfo, true), nil
	}

	meta := src.Metadata.Merge(blob.Metadata{
		blob.MetaOriginalName: newName,
		blob.MetaRenamedDate:  n.timestamp(),
	})

	info, err := n.backend.Put(ctx, n.container, newKey, src.Body, src.ContentType, meta)
	if err != nil {
		return Item{}, classify("rename", newKey, err)
	}

	if err := n.backend.Delete(ctx, n.container, key); err != nil {
		return Item{}, classify("rename", key, err)
	}

	return n.itemFor(ctx, info), nil
}

// DestFolder 把目标文件夹标识转换为相对路径：空串或 "root" 表示根目录，
// 去掉租户根目录前缀、末尾的占位对象名与 "/".
func (n *Namespace) DestFolder(destID string) string {
	if destID == "" || destID == "root" {
		return ""
	}

	p := strings.TrimPrefix(destID, n.folder+"/")
	if p == n.folder {
		return ""
	}

	if p == FolderMarker {
		return ""
	}

	p = strings.TrimSuffix(p, "/"+FolderMarker)

	return strings.Trim(p, "/")
}

func (n *Namespace) copyTarget(op, rel, destID string) (string, string, error) {
	key, err := n.fileKey(op, rel)
	if err != nil {
		return "", "", err
	}

	dest := n.DestFolder(destID)
	if !validRel(dest) {
		return "", "", &Error{Kind: ErrInvalidArgument, Op: op, Path: destID}
	}

	return key, n.folder + "/" + joinRel(dest, baseName(key)), nil
}

// Copy 把对象复制到目标文件夹，源对象不变. 目标与源相同时不做任何操作.
func (n *Namespace) Copy(ctx context.Context, rel, destID string) (Item, error) {
	key, dstKey, err := n.copyTarget("copy", rel, destID)
	if err != nil {
		return Item{}, err
	}

	return n.copyKey(ctx, "copy", key, dstKey)
}

func (n *Namespace) copyKey(ctx context.Context, op, key, dstKey string) (Item, error) {
	src, err := n.backend.Get(ctx, n.container, key)
	if err != nil {
		return Item{}, classify(op, key, err)
	}

	if src.Metadata.Flag(blob.MetaDeleted) {
		return Item{}, &Error{Kind: ErrNotFound, Op: op, Path: key, Err: errInTrash}
	}

	if dstKey == key {
		return n.itemFor(ctx, src.ObjectInfo), nil
	}

	info, err := n.backend.Put(ctx, n.container, dstKey, src.Body, src.ContentType, src.Metadata)
	if err != nil {
		return Item{}, classify(op, dstKey, err)
	}

	return n.itemFor(ctx, info), nil
}

// Move 复制后删除源对象. 非原子，中途失败可能留下两份. 目标与源相同时不做任何操作.
func (n *Namespace) Move(ctx context.Context, rel, destID string) (Item, error) {
	key, dstKey, err := n.copyTarget("move", rel, destID)
	if err != nil {
		return Item{}, err
	}

	it, err := n.copyKey(ctx, "move", key, dstKey)
	if err != nil || dstKey == key {
		return it, err
	}

	if err := n.backend.Delete(ctx, n.container, key); err != nil {
		return Item{}, classify("move", key, err)
	}

	return it, nil
}

// itemFor 占位对象投影为文件夹，其余为文件.
func (n *Namespace) itemFor(ctx context.Context, info blob.ObjectInfo) Item {
	if isMarker(info.Key) {
		rel := parentDir(n.relative(info.Key))
		return folderItem(info.Key, rel, info.LastModified)
	}

	return n.fileItem(ctx, info, true)
}

// CreateFolder 写入零字节占位对象 <rel>/.folder.
func (n *Namespace) CreateFolder(ctx context.Context, rel string) (Item, error) {
	rel = strings.Trim(rel, "/")

	key, err := n.key("create-folder", rel)
	if err != nil {
		return Item{}, err
	}

	if key == n.folder {
		return Item{}, &Error{Kind: ErrInvalidArgument, Op: "create-folder", Path: rel, Err: errNotAFile}
	}

	info, err := n.backend.Put(ctx, n.container, key+"/"+FolderMarker, nil, "application/x-directory", blob.Metadata{
		blob.MetaIsFolder:    "true",
		blob.MetaCreatedDate: n.timestamp(),
		blob.MetaUserFolder:  n.folder,
	})
	if err != nil {
		return Item{}, classify("create-folder", key, err)
	}

	return folderItem(info.Key, n.relative(key), info.LastModified), nil
}

// DeleteFolder 软删除文件夹下（递归）所有未删除的对象，返回处理数量.
func (n *Namespace) DeleteFolder(ctx context.Context, rel string) (int, error) {
	key, err := n.key("delete-folder", strings.Trim(rel, "/"))
	if err != nil {
		return 0, err
	}

	if key == n.folder {
		return 0, &Error{Kind: ErrInvalidArgument, Op: "delete-folder", Path: rel, Err: errNotAFile}
	}

	objs, err := n.backend.ListFlat(ctx, n.container, key+"/")
	if err != nil {
		return 0, classify("delete-folder", key, err)
	}

	if len(objs) == 0 {
		return 0, &Error{Kind: ErrNotFound, Op: "delete-folder", Path: key}
	}

	count := 0

	for _, o := range objs {
		if o.Metadata.Flag(blob.MetaDeleted) {
			continue
		}

		if _, err := n.softDeleteKey(ctx, o.Key); err != nil {
			return count, err
		}

		count++
	}

	return count, nil
}
