package s3_test

import (
	"testing"

	"github.com/yeisme/blobdrive/pkg/internal/storage/blob"
	"github.com/yeisme/blobdrive/pkg/internal/storage/s3"
)

func TestEncodeMetadata(t *testing.T) {
	got := s3.EncodeMetadata(blob.Metadata{
		"deletedDate":  "2024-01-01T00:00:00Z",
		"isFolder":     "true",
		"tags":         "a,b",
		"originalPath": "docs/",
	})

	want := map[string]string{
		"deleted-date":  "2024-01-01T00:00:00Z",
		"is-folder":     "true",
		"tags":          "a,b",
		"original-path": "docs/",
	}

	for k, v := range want {
		if got[k] != v {
			t.Errorf("key %q = %q, want %q (got %v)", k, got[k], v, got)
		}
	}
}

func TestDecodeMetadata(t *testing.T) {
	// minio 读取时去掉 X-Amz-Meta- 前缀，键保持 HTTP 规范化大小写
	got := s3.DecodeMetadata(map[string]string{
		"Deleted-Date":           "d",
		"Is-Folder":              "true",
		"Tags":                   "x",
		"X-Amz-Meta-User-Folder": "alice_x_com",
	})

	want := blob.Metadata{
		"deletedDate": "d",
		"isFolder":    "true",
		"tags":        "x",
		"userFolder":  "alice_x_com",
	}

	for k, v := range want {
		if got[k] != v {
			t.Errorf("key %q = %q, want %q (got %v)", k, got[k], v, got)
		}
	}
}

func TestMetadataRoundTripKnownKeys(t *testing.T) {
	keys := []string{
		blob.MetaDeleted, blob.MetaDeletedDate, blob.MetaOriginalPath, blob.MetaTags,
		blob.MetaTagsUpdated, blob.MetaOriginalName, blob.MetaUploadDate, blob.MetaRenamedDate,
		blob.MetaIsFolder, blob.MetaCreatedDate, blob.MetaUserFolder,
	}

	meta := blob.Metadata{}
	for _, k := range keys {
		meta[k] = k
	}

	// 模拟 HTTP 头规范化：每段首字母大写
	headers := map[string]string{}
	for k, v := range s3.EncodeMetadata(meta) {
		headers[canonical(k)] = v
	}

	back := s3.DecodeMetadata(headers)
	for _, k := range keys {
		if back[k] != k {
			t.Errorf("key %q lost in round trip: %v", k, back)
		}
	}
}

func canonical(k string) string {
	b := []byte(k)
	upper := true

	for i, c := range b {
		if upper && c >= 'a' && c <= 'z' {
			b[i] = c - 'a' + 'A'
		}

		upper = c == '-'
	}

	return string(b)
}
