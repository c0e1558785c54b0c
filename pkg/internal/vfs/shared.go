package vfs

import (
	"context"
	"strings"
	"time"

	"github.com/yeisme/blobdrive/pkg/internal/signer"
)

// SharedAccess 解析分享链接时使用的中立身份. 它不拥有任何容器，只为链接所指的对象签发只读链接.
type SharedAccess struct {
	identity string
	prefix   string
	signer   *signer.Engine
}

// Identity 返回中立身份.
func (s *SharedAccess) Identity() string { return s.identity }

// IssueReadCapability 为 owner 命名空间中的 fileID 签发有效期为 ttl 的只读链接.
// fileID 必须位于 owner 的租户根目录下.
func (s *SharedAccess) IssueReadCapability(ctx context.Context, owner, fileID string, ttl time.Duration) (string, error) {
	if NormalizeIdentity(owner) == "" {
		return "", &Error{Kind: ErrNotFound, Op: "share-capability", Path: fileID}
	}

	folder := TenantFolder(owner)
	if !strings.HasPrefix(fileID, folder+"/") || !validRel(fileID) {
		return "", &Error{Kind: ErrForbidden, Op: "share-capability", Path: fileID}
	}

	if s.signer == nil {
		return "", &Error{Kind: ErrConfiguration, Op: "share-capability", Path: fileID, Err: signer.ErrMissingCredentials}
	}

	container := ContainerName(s.prefix, owner)

	return s.signer.IssueReadCapability(ctx, container, fileID, ttl, signer.WithIdentifier(s.identity)), nil
}
