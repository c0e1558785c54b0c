package s3

import (
	"strings"
	"unicode"

	"github.com/yeisme/blobdrive/pkg/internal/storage/blob"
)

// S3 用户元数据经由 HTTP 头传输，键会被规范化为首字母大写，camelCase 信息丢失.
// 写入时把 camelCase 转为 kebab-case，读取时再转回.

// EncodeMetadata 把元数据键转为 kebab-case.
func EncodeMetadata(meta blob.Metadata) map[string]string {
	out := make(map[string]string, len(meta))
	for k, v := range meta {
		out[camelToKebab(k)] = v
	}

	return out
}

// DecodeMetadata 把头部形式的键（如 Deleted-Date）还原为 camelCase.
func DecodeMetadata(user map[string]string) blob.Metadata {
	out := make(blob.Metadata, len(user))
	for k, v := range user {
		k = strings.TrimPrefix(strings.ToLower(k), "x-amz-meta-")
		out[kebabToCamel(k)] = v
	}

	return out
}

func camelToKebab(s string) string {
	var b strings.Builder

	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('-')
			}

			b.WriteRune(unicode.ToLower(r))

			continue
		}

		b.WriteRune(r)
	}

	return b.String()
}

func kebabToCamel(s string) string {
	parts := strings.Split(strings.ToLower(s), "-")
	for i := 1; i < len(parts); i++ {
		if parts[i] == "" {
			continue
		}

		parts[i] = strings.ToUpper(parts[i][:1]) + parts[i][1:]
	}

	return strings.Join(parts, "")
}
