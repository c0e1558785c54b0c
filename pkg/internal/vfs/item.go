package vfs

import (
	"strings"
	"time"

	"github.com/yeisme/blobdrive/pkg/internal/storage/blob"
)

// ItemType 列表项类型.
type ItemType string

const (
	TypeFile   ItemType = "file"
	TypeFolder ItemType = "folder"
)

// timeLayout 写入元数据的时间格式（UTC，毫秒精度）.
const timeLayout = "2006-01-02T15:04:05.000Z07:00"

// Item 文件或文件夹的投影. 每次列举时从对象键与元数据推导，不持久化.
type Item struct {
	ID           string     `json:"id"` // 完整对象键
	Name         string     `json:"name"`
	Type         ItemType   `json:"type"`
	Size         int64      `json:"size"`
	LastModified time.Time  `json:"lastModified"`
	Path         string     `json:"path"` // 所在目录，相对租户根目录
	Tags         []string   `json:"tags,omitempty"`
	ContentType  string     `json:"contentType,omitempty"`
	DownloadURL  string     `json:"downloadUrl,omitempty"`
	DeletedDate  *time.Time `json:"deletedDate,omitempty"`
	OriginalPath string     `json:"originalPath,omitempty"`
}

// File 对象内容与属性.
type File struct {
	Item
	Body     []byte
	Metadata blob.Metadata
}

// Usage 配额用量.
type Usage struct {
	Used  int64 `json:"used"`
	Files int   `json:"files"`
	Limit int64 `json:"limit"` // 0 表示不限制
}

// splitTags 解析逗号连接的标签.
func splitTags(s string) []string {
	if s == "" {
		return nil
	}

	var out []string

	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}

	return out
}

// NormalizeTags 去除首尾空白、丢弃空项并按首次出现顺序去重.
func NormalizeTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))

	for _, t := range tags {
		t = strings.TrimSpace(strings.ReplaceAll(t, ",", " "))
		if t == "" || seen[t] {
			continue
		}

		seen[t] = true
		out = append(out, t)
	}

	return out
}

func parseTime(s string) *time.Time {
	if s == "" {
		return nil
	}

	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return nil
	}

	return &t
}
