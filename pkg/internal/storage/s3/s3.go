// Package s3 基于 minio-go 实现 S3 兼容的对象存储后端. 每个租户对应一个 bucket.
package s3

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	minio "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"golang.org/x/sync/errgroup"

	"github.com/yeisme/blobdrive/pkg/configs"
	"github.com/yeisme/blobdrive/pkg/internal/storage/blob"
	nlog "github.com/yeisme/blobdrive/pkg/log"
)

// maxPresignExpiry SigV4 预签名的最长有效期.
const maxPresignExpiry = 7 * 24 * time.Hour

// Client 包装 MinIO 客户端，实现 blob.Backend.
type Client struct {
	*minio.Client

	region          string
	statConcurrency int
}

// New 初始化 MinIO 客户端. bucket 在租户首次访问时按需创建.
func New(ctx context.Context, cfg *configs.StorageConfig) (*Client, error) {
	endpoint := cfg.Endpoint
	useSSL := cfg.UseSSL
	// 允许用户传完整 schema endpoint（http:// 或 https://）
	if u, err := url.Parse(endpoint); err == nil && u.Host != "" {
		endpoint = u.Host
		if u.Scheme == "https" {
			useSSL = true
		}
	}

	cli, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: useSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	cli.SetAppInfo("blobdrive", configs.AppVersion)

	conc := cfg.StatConcurrency
	if conc <= 0 {
		conc = configs.DefaultStatConcurrency
	}

	nlog.Logger().Info().Str("endpoint", cfg.Endpoint).Bool("ssl", useSSL).Msg("s3 client created")

	return &Client{Client: cli, region: cfg.Region, statConcurrency: conc}, nil
}

// EnsureContainer 创建 bucket，已存在（无论归属）视为成功.
func (c *Client) EnsureContainer(ctx context.Context, container string) error {
	exists, err := c.BucketExists(ctx, container)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", container, err)
	}

	if exists {
		return nil
	}

	if err := c.MakeBucket(ctx, container, minio.MakeBucketOptions{Region: c.region}); err != nil {
		switch minio.ToErrorResponse(err).Code {
		case "BucketAlreadyOwnedByYou", "BucketAlreadyExists":
			return nil
		}

		return fmt.Errorf("create bucket %s: %w", container, err)
	}

	nlog.Logger().Info().Str("bucket", container).Msg("bucket created")

	return nil
}

// ListHierarchy 列出一层；公共前缀直接返回，对象再 Stat 补齐元数据.
func (c *Client) ListHierarchy(ctx context.Context, container, prefix string) ([]blob.Entry, error) {
	var (
		out  []blob.Entry
		keys []string
		idx  []int
	)

	for obj := range c.ListObjects(ctx, container, minio.ListObjectsOptions{Prefix: prefix}) {
		if obj.Err != nil {
			return nil, mapErr(obj.Err)
		}

		if strings.HasSuffix(obj.Key, "/") && obj.Size == 0 && obj.ETag == "" {
			out = append(out, blob.Entry{IsPrefix: true, Prefix: obj.Key})

			continue
		}

		idx = append(idx, len(out))
		keys = append(keys, obj.Key)
		out = append(out, blob.Entry{ObjectInfo: toInfo(obj)})
	}

	infos, err := c.statAll(ctx, container, keys)
	if err != nil {
		return nil, err
	}

	for i, info := range infos {
		out[idx[i]].ObjectInfo = info
	}

	live := out[:0]
	for _, e := range out {
		if e.IsPrefix || e.Key != "" {
			live = append(live, e)
		}
	}

	return live, nil
}

// ListFlat 递归列举后并发 Stat 每个对象补齐元数据.
func (c *Client) ListFlat(ctx context.Context, container, prefix string) ([]blob.ObjectInfo, error) {
	var keys []string

	for obj := range c.ListObjects(ctx, container, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, mapErr(obj.Err)
		}

		keys = append(keys, obj.Key)
	}

	infos, err := c.statAll(ctx, container, keys)
	if err != nil {
		return nil, err
	}

	live := infos[:0]
	for _, info := range infos {
		if info.Key != "" {
			live = append(live, info)
		}
	}

	return live, nil
}

// statAll 并发 Stat，并发度受 stat_concurrency 限制，结果与 keys 顺序一致，已消失的对象 Key 为空.
func (c *Client) statAll(ctx context.Context, container string, keys []string) ([]blob.ObjectInfo, error) {
	out := make([]blob.ObjectInfo, len(keys))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.statConcurrency)

	for i, key := range keys {
		g.Go(func() error {
			info, err := c.Stat(gctx, container, key)
			if blob.IsNotFound(err) {
				// 列举与 Stat 之间被删除，留空由调用方过滤
				return nil
			}

			if err != nil {
				return err
			}

			out[i] = info

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return out, nil
}

func (c *Client) Put(ctx context.Context, container, key string, body []byte, contentType string, meta blob.Metadata) (blob.ObjectInfo, error) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	up, err := c.PutObject(ctx, container, key, bytes.NewReader(body), int64(len(body)), minio.PutObjectOptions{
		ContentType:  contentType,
		UserMetadata: EncodeMetadata(meta),
	})
	if err != nil {
		return blob.ObjectInfo{}, mapErr(err)
	}

	modified := up.LastModified
	if modified.IsZero() {
		modified = time.Now().UTC()
	}

	return blob.ObjectInfo{
		Key:          key,
		Size:         up.Size,
		ContentType:  contentType,
		LastModified: modified,
		ETag:         up.ETag,
		Metadata:     meta.Clone(),
	}, nil
}

func (c *Client) Get(ctx context.Context, container, key string) (*blob.Object, error) {
	obj, err := c.GetObject(ctx, container, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, mapErr(err)
	}
	defer obj.Close()

	st, err := obj.Stat()
	if err != nil {
		return nil, mapErr(err)
	}

	body, err := io.ReadAll(obj)
	if err != nil {
		return nil, mapErr(err)
	}

	return &blob.Object{ObjectInfo: toInfo(st), Body: body}, nil
}

func (c *Client) Stat(ctx context.Context, container, key string) (blob.ObjectInfo, error) {
	st, err := c.StatObject(ctx, container, key, minio.StatObjectOptions{})
	if err != nil {
		return blob.ObjectInfo{}, mapErr(err)
	}

	return toInfo(st), nil
}

// SetMetadata 通过自拷贝并替换元数据实现，保留 Content-Type.
func (c *Client) SetMetadata(ctx context.Context, container, key string, meta blob.Metadata) error {
	st, err := c.StatObject(ctx, container, key, minio.StatObjectOptions{})
	if err != nil {
		return mapErr(err)
	}

	userMeta := EncodeMetadata(meta)
	if st.ContentType != "" {
		userMeta["Content-Type"] = st.ContentType
	}

	_, err = c.CopyObject(ctx,
		minio.CopyDestOptions{Bucket: container, Object: key, ReplaceMetadata: true, UserMetadata: userMeta},
		minio.CopySrcOptions{Bucket: container, Object: key},
	)

	return mapErr(err)
}

func (c *Client) Delete(ctx context.Context, container, key string) error {
	return mapErr(c.RemoveObject(ctx, container, key, minio.RemoveObjectOptions{}))
}

func (c *Client) ObjectURL(container, key string) string {
	u := *c.EndpointURL()
	u.Path = "/" + container + "/" + strings.TrimPrefix(key, "/")

	return u.String()
}

// PresignGet 签发 SigV4 下载地址，有效期最长 7 天.
func (c *Client) PresignGet(ctx context.Context, container, key string, ttl time.Duration) (string, error) {
	if ttl > maxPresignExpiry {
		ttl = maxPresignExpiry
	}

	u, err := c.PresignedGetObject(ctx, container, key, ttl, url.Values{})
	if err != nil {
		return "", mapErr(err)
	}

	return u.String(), nil
}

// HealthCheck 通过列出桶来验证连接.
func (c *Client) HealthCheck(ctx context.Context) error {
	_, err := c.ListBuckets(ctx)
	return err
}

// Close 无实际操作.
func (c *Client) Close() error {
	return nil
}

func toInfo(obj minio.ObjectInfo) blob.ObjectInfo {
	return blob.ObjectInfo{
		Key:          obj.Key,
		Size:         obj.Size,
		ContentType:  obj.ContentType,
		LastModified: obj.LastModified,
		ETag:         obj.ETag,
		Metadata:     DecodeMetadata(obj.UserMetadata),
	}
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}

	switch minio.ToErrorResponse(err).Code {
	case "NoSuchBucket":
		return fmt.Errorf("%w: %v", blob.ErrContainerNotFound, err)
	case "NoSuchKey", "NoSuchObject":
		return fmt.Errorf("%w: %v", blob.ErrObjectNotFound, err)
	}

	return err
}

func init() {
	blob.Register(configs.StorageMinio, func(ctx context.Context, cfg *configs.StorageConfig) (blob.Backend, error) {
		return New(ctx, cfg)
	})
}
