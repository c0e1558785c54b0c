package vfs

import (
	"crypto/sha256"
	"encoding/hex"
	"path"
	"strings"
)

const (
	// FolderMarker 显式文件夹的占位对象名.
	FolderMarker = ".folder"

	maxContainerName = 63
	hashLen          = 16
)

// NormalizeIdentity 统一身份字符串：去除首尾空白并转小写. 邮箱按大小写不敏感处理.
func NormalizeIdentity(identity string) string {
	return strings.ToLower(strings.TrimSpace(identity))
}

// ContainerName 由身份确定性地生成容器名：<prefix><slug>-<sha256 前 16 位>.
// slug 只保留小写字母与数字，便于人工辨认；哈希后缀保证不同身份不会映射到同一容器.
// 结果满足 S3 bucket 命名规则（3 到 63 个字符，小写字母、数字与连字符）.
func ContainerName(prefix, identity string) string {
	id := NormalizeIdentity(identity)
	sum := sha256.Sum256([]byte(id))
	hash := hex.EncodeToString(sum[:])[:hashLen]

	prefix = sanitize(prefix)
	if prefix != "" && !strings.HasSuffix(prefix, "-") {
		prefix += "-"
	}

	slug := sanitize(id)
	if room := maxContainerName - len(prefix) - hashLen - 1; len(slug) > room {
		slug = strings.TrimRight(slug[:max(room, 0)], "-")
	}

	if slug == "" {
		if prefix == "" {
			return hash
		}

		return prefix + hash
	}

	return prefix + slug + "-" + hash
}

// sanitize 把非 [a-z0-9] 字符替换为连字符并合并连续连字符，去掉首尾连字符.
func sanitize(s string) string {
	var b strings.Builder

	dash := false

	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)

			dash = false

			continue
		}

		if !dash && b.Len() > 0 {
			b.WriteByte('-')

			dash = true
		}
	}

	return strings.TrimRight(b.String(), "-")
}

// TenantFolder 租户在容器内的根目录：身份中的 "@"、"." 与 "/" 替换为 "_".
func TenantFolder(identity string) string {
	return strings.NewReplacer("@", "_", ".", "_", "/", "_").Replace(NormalizeIdentity(identity))
}

// baseName 返回路径最后一段.
func baseName(p string) string {
	p = strings.TrimSuffix(p, "/")
	if i := strings.LastIndex(p, "/"); i >= 0 {
		return p[i+1:]
	}

	return p
}

// parentDir 返回去掉最后一段后的路径，无父目录时为空串.
func parentDir(p string) string {
	p = strings.TrimSuffix(p, "/")
	if i := strings.LastIndex(p, "/"); i >= 0 {
		return p[:i]
	}

	return ""
}

// depth 返回非空段数.
func depth(p string) int {
	n := 0

	for _, seg := range strings.Split(p, "/") {
		if seg != "" {
			n++
		}
	}

	return n
}

// joinRel 拼接相对路径，忽略空段.
func joinRel(parts ...string) string {
	nonEmpty := parts[:0:0]
	for _, p := range parts {
		if p = strings.Trim(p, "/"); p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}

	return path.Join(nonEmpty...)
}

// isMarker 报告键是否为文件夹占位对象.
func isMarker(key string) bool {
	return baseName(key) == FolderMarker
}

// validRel 拒绝包含 ".." 段、反斜杠或控制字符的路径.
func validRel(rel string) bool {
	for _, seg := range strings.Split(rel, "/") {
		if seg == ".." {
			return false
		}
	}

	for _, r := range rel {
		if r == '\\' || r < 0x20 || r == 0x7f {
			return false
		}
	}

	return true
}

// validName 单段文件名.
func validName(name string) bool {
	return name != "" && name != "." && name != ".." && !strings.ContainsAny(name, "/\\") && validRel(name)
}
