package service

import (
	"context"
	"errors"
	"time"
	"unicode/utf8"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yeisme/blobdrive/pkg/internal/model"
	"github.com/yeisme/blobdrive/pkg/internal/vfs"
	nlog "github.com/yeisme/blobdrive/pkg/log"
)

// 文件登记表是对象存储的最终一致镜像：写入失败只记录日志，对象存储始终是事实来源.

func (rt *Runtime) db(ctx context.Context) *gorm.DB {
	if rt.Storage.DB == nil || rt.Storage.DB.DB == nil {
		return nil
	}

	return rt.Storage.DB.WithContext(ctx)
}

// fileRow 由列表项构造登记行.
func fileRow(ns *vfs.Namespace, it vfs.Item, now time.Time) *model.File {
	parent := ns.Folder()
	if it.Path != "" {
		parent += "/" + it.Path
	}

	typ := model.FileTypeFile
	if it.Type == vfs.TypeFolder {
		typ = model.FileTypeFolder
	}

	modified := it.LastModified
	if modified.IsZero() {
		modified = now
	}

	return &model.File{
		ID:              it.ID,
		Name:            it.Name,
		Type:            typ,
		MimeType:        it.ContentType,
		Size:            it.Size,
		ParentID:        parent,
		OwnerEmail:      ns.Identity(),
		StorageProvider: model.StorageProviderBlob,
		StoragePath:     ns.Container() + "/" + it.ID,
		CreatedAt:       now,
		ModifiedAt:      modified,
	}
}

// upsertFile 插入或覆盖登记行，创建时间保持不变.
func (rt *Runtime) upsertFile(ctx context.Context, ns *vfs.Namespace, it vfs.Item) {
	tx := rt.db(ctx)
	if tx == nil {
		return
	}

	row := fileRow(ns, it, rt.Now().UTC())

	err := tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name", "type", "mime_type", "size", "parent_id", "owner_email",
			"storage_provider", "storage_path", "is_deleted", "deleted_at", "modified_at",
		}),
	}).Create(row).Error
	if err != nil {
		nlog.Ctx(ctx).Warn().Err(err).Str("file_id", it.ID).Msg("registry upsert failed")
	}
}

// markDeleted 切换软删除标记.
func (rt *Runtime) markDeleted(ctx context.Context, id string, deleted bool) {
	tx := rt.db(ctx)
	if tx == nil {
		return
	}

	var at *time.Time
	if deleted {
		now := rt.Now().UTC()
		at = &now
	}

	err := tx.Model(&model.File{}).Where("id = ?", id).
		Updates(map[string]any{"is_deleted": deleted, "deleted_at": at}).Error
	if err != nil {
		nlog.Ctx(ctx).Warn().Err(err).Str("file_id", id).Msg("registry soft delete failed")
	}
}

// markPrefixDeleted 软删除 prefix 下仍存活的登记行.
func (rt *Runtime) markPrefixDeleted(ctx context.Context, owner, prefix string) {
	tx := rt.db(ctx)
	if tx == nil {
		return
	}

	now := rt.Now().UTC()

	err := tx.Model(&model.File{}).
		Where("owner_email = ? AND SUBSTR(id, 1, ?) = ? AND is_deleted = ?",
			owner, utf8.RuneCountInString(prefix), prefix, false).
		Updates(map[string]any{"is_deleted": true, "deleted_at": &now}).Error
	if err != nil {
		nlog.Ctx(ctx).Warn().Err(err).Str("prefix", prefix).Msg("registry folder delete failed")
	}
}

func (rt *Runtime) deleteRow(ctx context.Context, id string) {
	tx := rt.db(ctx)
	if tx == nil {
		return
	}

	if err := tx.Delete(&model.File{}, "id = ?", id).Error; err != nil {
		nlog.Ctx(ctx).Warn().Err(err).Str("file_id", id).Msg("registry delete failed")
	}
}

// rekey 重命名或移动后把登记行迁移到新键.
func (rt *Runtime) rekey(ctx context.Context, ns *vfs.Namespace, oldID string, it vfs.Item) {
	if oldID == it.ID {
		return
	}

	rt.deleteRow(ctx, oldID)
	rt.upsertFile(ctx, ns, it)
}

// ownedFile 查找 owner 名下未删除的登记行.
func (rt *Runtime) ownedFile(ctx context.Context, owner, id string) (*model.File, error) {
	tx := rt.db(ctx)
	if tx == nil {
		return nil, vfs.Errorf(vfs.ErrConfiguration, "share", id, "metadata database not configured")
	}

	var f model.File

	err := tx.Where("id = ? AND owner_email = ? AND is_deleted = ?", id, owner, false).First(&f).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, vfs.Errorf(vfs.ErrNotFound, "share", id, "file not found")
	}

	if err != nil {
		return nil, vfs.Errorf(vfs.ErrUnavailable, "share", id, "query registry: %v", err)
	}

	return &f, nil
}
