package vfs

import (
	"context"
	"strings"

	"github.com/yeisme/blobdrive/pkg/internal/storage/blob"
)

// SetTags 合并 tags 与 tagsUpdated，不影响其他元数据. 空列表清空标签.
func (n *Namespace) SetTags(ctx context.Context, rel string, tags []string) (Item, error) {
	key, err := n.fileKey("set-tags", rel)
	if err != nil {
		return Item{}, err
	}

	tags = NormalizeTags(tags)

	info, err := n.updateMetadata(ctx, "set-tags", key, func(m blob.Metadata) blob.Metadata {
		return m.Merge(blob.Metadata{
			blob.MetaTags:        strings.Join(tags, ","),
			blob.MetaTagsUpdated: n.timestamp(),
		})
	})
	if err != nil {
		return Item{}, err
	}

	return n.itemFor(ctx, info), nil
}

// Metadata 从后端读取对象当前的元数据.
func (n *Namespace) Metadata(ctx context.Context, rel string) (blob.Metadata, error) {
	info, err := n.Stat(ctx, rel)
	if err != nil {
		return nil, err
	}

	return info.Metadata.Clone(), nil
}
