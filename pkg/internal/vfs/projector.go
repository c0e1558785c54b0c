package vfs

import (
	"context"
	"slices"
	"sort"
	"strings"

	"github.com/yeisme/blobdrive/pkg/internal/storage/blob"
)

// ListLevel 列出 prefix 的直接子项：先文件夹后文件，各自按名称排序. 已软删除的对象与占位对象不会出现，
// 只含已软删除对象的文件夹也不会出现.
func (n *Namespace) ListLevel(ctx context.Context, prefix string) ([]Item, error) {
	key, err := n.key("list", strings.Trim(prefix, "/"))
	if err != nil {
		return nil, err
	}

	entries, err := n.backend.ListHierarchy(ctx, n.container, key+"/")
	if err != nil {
		return nil, classify("list", key, err)
	}

	want := depth(n.relative(key)) + 1
	seen := make(map[string]bool)

	var folders, files []Item

	for _, e := range entries {
		if e.IsPrefix {
			rel := strings.TrimSuffix(n.relative(e.Prefix), "/")
			if rel == "" || seen[rel] {
				continue
			}

			seen[rel] = true
			folders = append(folders, folderItem(e.Prefix, rel, e.LastModified))

			continue
		}

		rel := n.relative(e.Key)
		if isMarker(e.Key) || e.Metadata.Flag(blob.MetaDeleted) || depth(rel) != want {
			continue
		}

		files = append(files, n.fileItem(ctx, e.ObjectInfo, true))
	}

	if len(folders) > 0 {
		live, err := n.livePrefixes(ctx, key+"/")
		if err != nil {
			return nil, err
		}

		folders = slices.DeleteFunc(folders, func(it Item) bool { return !live[it.ID] })
	}

	sortByName(folders)
	sortByName(files)

	return append(folders, files...), nil
}

// livePrefixes 返回 base 下仍含未删除对象（包括占位对象）的直接子目录前缀.
func (n *Namespace) livePrefixes(ctx context.Context, base string) (map[string]bool, error) {
	objs, err := n.backend.ListFlat(ctx, n.container, base)
	if err != nil {
		return nil, classify("list", base, err)
	}

	live := make(map[string]bool)

	for _, o := range objs {
		if o.Metadata.Flag(blob.MetaDeleted) {
			continue
		}

		rest := strings.TrimPrefix(o.Key, base)
		if i := strings.Index(rest, "/"); i >= 0 {
			live[base+rest[:i+1]] = true
		}
	}

	return live, nil
}

// scan 递归列出整个租户根目录.
func (n *Namespace) scan(ctx context.Context, op string) ([]blob.ObjectInfo, error) {
	objs, err := n.backend.ListFlat(ctx, n.container, n.folder+"/")
	if err != nil {
		return nil, classify(op, n.folder, err)
	}

	return objs, nil
}

// Search 在整个命名空间中按最后一段名称做大小写不敏感的子串匹配. 代价与对象总数成正比.
func (n *Namespace) Search(ctx context.Context, query string) ([]Item, error) {
	objs, err := n.scan(ctx, "search")
	if err != nil {
		return nil, err
	}

	q := strings.ToLower(strings.TrimSpace(query))

	var out []Item

	for _, o := range objs {
		if o.Metadata.Flag(blob.MetaDeleted) {
			continue
		}

		name := baseName(n.relative(o.Key))
		if isMarker(o.Key) {
			name = baseName(parentDir(n.relative(o.Key)))
		}

		if name == "" || !strings.Contains(strings.ToLower(name), q) {
			continue
		}

		out = append(out, n.itemFor(ctx, o))
	}

	sortByName(out)

	return out, nil
}

// RecycleBin 列出所有已软删除的对象，最近删除的在前.
func (n *Namespace) RecycleBin(ctx context.Context) ([]Item, error) {
	objs, err := n.scan(ctx, "recycle-bin")
	if err != nil {
		return nil, err
	}

	var out []Item

	for _, o := range objs {
		if !o.Metadata.Flag(blob.MetaDeleted) {
			continue
		}

		var it Item
		if isMarker(o.Key) {
			it = folderItem(o.Key, parentDir(n.relative(o.Key)), o.LastModified)
		} else {
			it = n.fileItem(ctx, o, false)
		}

		it.DeletedDate = parseTime(o.Metadata[blob.MetaDeletedDate])

		it.OriginalPath = o.Metadata[blob.MetaOriginalPath]
		if it.OriginalPath == "" {
			it.OriginalPath = parentDir(n.relative(o.Key))
		}

		out = append(out, it)
	}

	sort.SliceStable(out, func(i, j int) bool {
		di, dj := out[i].DeletedDate, out[j].DeletedDate
		switch {
		case di == nil && dj == nil:
			return out[i].ID < out[j].ID
		case di == nil:
			return false
		case dj == nil:
			return true
		case di.Equal(*dj):
			return out[i].ID < out[j].ID
		default:
			return di.After(*dj)
		}
	})

	return out, nil
}

// Quota 每次重新统计未删除对象的总大小与文件数量.
func (n *Namespace) Quota(ctx context.Context) (Usage, error) {
	objs, err := n.scan(ctx, "quota")
	if err != nil {
		return Usage{}, err
	}

	u := Usage{Limit: n.cfg.QuotaLimit}

	for _, o := range objs {
		if o.Metadata.Flag(blob.MetaDeleted) {
			continue
		}

		u.Used += o.Size

		if !isMarker(o.Key) {
			u.Files++
		}
	}

	return u, nil
}

func sortByName(items []Item) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := strings.ToLower(items[i].Name), strings.ToLower(items[j].Name)
		if a == b {
			return items[i].ID < items[j].ID
		}

		return a < b
	})
}
