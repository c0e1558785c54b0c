package vfs

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/yeisme/blobdrive/pkg/internal/signer"
	"github.com/yeisme/blobdrive/pkg/internal/storage/blob"
)

const initTimeout = 30 * time.Second

// Namespace 一个租户的文件系统视图. 所有路径参数都是相对租户根目录的路径；
// 已经以租户根目录开头的路径原样使用，不会重复加前缀.
type Namespace struct {
	identity  string
	container string
	folder    string
	backend   blob.Backend
	signer    *signer.Engine
	cfg       Config
	inits     *singleflight.Group
	ready     atomic.Bool
	now       func() time.Time
}

// Identity 返回规范化后的身份.
func (n *Namespace) Identity() string { return n.identity }

// Container 返回容器名.
func (n *Namespace) Container() string { return n.container }

// Folder 返回租户根目录.
func (n *Namespace) Folder() string { return n.folder }

// Init 确保容器存在. 幂等，并发调用合并为一次后端请求；共享的请求不随任何一个调用方取消，
// 调用方自己的 ctx 结束时只有该调用方返回.
func (n *Namespace) Init(ctx context.Context) error {
	if n.ready.Load() {
		return nil
	}

	ch := n.inits.DoChan(n.container, func() (any, error) {
		ictx, cancel := context.WithTimeout(context.WithoutCancel(ctx), initTimeout)
		defer cancel()

		if err := n.backend.EnsureContainer(ictx, n.container); err != nil {
			return nil, err
		}

		n.ready.Store(true)

		return nil, nil
	})

	select {
	case res := <-ch:
		return classify("init", n.container, res.Err)
	case <-ctx.Done():
		return classify("init", n.container, ctx.Err())
	}
}

// key 把相对路径解析为完整对象键.
func (n *Namespace) key(op, rel string) (string, error) {
	rel = strings.TrimPrefix(rel, "/")
	if !validRel(rel) {
		return "", &Error{Kind: ErrInvalidArgument, Op: op, Path: rel}
	}

	switch {
	case rel == "" || rel == n.folder:
		return n.folder, nil
	case strings.HasPrefix(rel, n.folder+"/"):
		return rel, nil
	default:
		return n.folder + "/" + rel, nil
	}
}

// fileKey 解析指向对象（而非租户根目录）的路径.
func (n *Namespace) fileKey(op, rel string) (string, error) {
	key, err := n.key(op, rel)
	if err != nil {
		return "", err
	}

	if key == n.folder || strings.HasSuffix(key, "/") {
		return "", &Error{Kind: ErrInvalidArgument, Op: op, Path: rel, Err: errNotAFile}
	}

	return key, nil
}

// Key 返回相对路径对应的完整对象键，不访问存储.
func (n *Namespace) Key(rel string) (string, error) {
	return n.fileKey("resolve", rel)
}

// relative 去掉租户根目录前缀.
func (n *Namespace) relative(key string) string {
	if key == n.folder {
		return ""
	}

	return strings.TrimPrefix(key, n.folder+"/")
}

func (n *Namespace) timestamp() string {
	return n.now().UTC().Format(timeLayout)
}

// capability 为对象签发只读链接.
func (n *Namespace) capability(ctx context.Context, key string) string {
	if n.signer == nil {
		return n.backend.ObjectURL(n.container, key)
	}

	return n.signer.IssueReadCapability(ctx, n.container, key, n.cfg.CapabilityTTL)
}

// fileItem 由对象属性构造文件项.
func (n *Namespace) fileItem(ctx context.Context, info blob.ObjectInfo, withURL bool) Item {
	rel := n.relative(info.Key)
	it := Item{
		ID:           info.Key,
		Name:         baseName(rel),
		Type:         TypeFile,
		Size:         info.Size,
		LastModified: info.LastModified,
		Path:         parentDir(rel),
		Tags:         splitTags(info.Metadata[blob.MetaTags]),
		ContentType:  info.ContentType,
	}

	if withURL {
		it.DownloadURL = n.capability(ctx, info.Key)
	}

	return it
}

// folderItem 由文件夹相对路径构造文件夹项.
func folderItem(id, rel string, modified time.Time) Item {
	return Item{
		ID:           id,
		Name:         baseName(rel),
		Type:         TypeFolder,
		LastModified: modified,
		Path:         parentDir(rel),
	}
}
