package blob

import "sort"

// Metadata 对象元数据. 键为 camelCase，值均为字符串.
type Metadata map[string]string

// 已知元数据键.
const (
	MetaDeleted      = "deleted"
	MetaDeletedDate  = "deletedDate"
	MetaOriginalPath = "originalPath"
	MetaTags         = "tags"
	MetaTagsUpdated  = "tagsUpdated"
	MetaOriginalName = "originalName"
	MetaUploadDate   = "uploadDate"
	MetaRenamedDate  = "renamedDate"
	MetaIsFolder     = "isFolder"
	MetaCreatedDate  = "createdDate"
	MetaUserFolder   = "userFolder"
)

// Clone 返回副本，nil 得到空 map.
func (m Metadata) Clone() Metadata {
	out := make(Metadata, len(m))
	for k, v := range m {
		out[k] = v
	}

	return out
}

// Merge 返回合并后的副本，patch 覆盖同名键.
func (m Metadata) Merge(patch Metadata) Metadata {
	out := m.Clone()
	for k, v := range patch {
		out[k] = v
	}

	return out
}

// Without 返回去掉指定键后的副本.
func (m Metadata) Without(keys ...string) Metadata {
	out := m.Clone()
	for _, k := range keys {
		delete(out, k)
	}

	return out
}

// Flag 报告布尔型元数据是否为 "true".
func (m Metadata) Flag(key string) bool {
	return m[key] == "true"
}

// Keys 返回排序后的键.
func (m Metadata) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}
