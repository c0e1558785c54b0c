package service

import (
	"context"
	crand "crypto/rand"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid"
	"gorm.io/gorm"

	"github.com/yeisme/blobdrive/pkg/cache"
	"github.com/yeisme/blobdrive/pkg/internal/model"
	"github.com/yeisme/blobdrive/pkg/internal/types"
	"github.com/yeisme/blobdrive/pkg/internal/vfs"
	nlog "github.com/yeisme/blobdrive/pkg/log"
	"github.com/yeisme/blobdrive/pkg/metrics"
	"github.com/yeisme/blobdrive/pkg/queue"
)

// 全局 ULID 熵源，单调递增保证同一毫秒内的排序稳定. Monotonic 不是并发安全的.
var (
	ulidMu      sync.Mutex
	ulidEntropy = ulid.Monotonic(crand.Reader, 0)
)

func newULID(t time.Time) string {
	ulidMu.Lock()
	defer ulidMu.Unlock()

	return ulid.MustNew(ulid.Timestamp(t), ulidEntropy).String()
}

const day = 24 * time.Hour

// ShareService 分享链接：创建、解析与列举. 记录创建后除访问计数外不可变，不支持撤销.
type ShareService struct {
	rt *Runtime
}

// NewShareService 从 context 中的 Runtime 创建 ShareService.
func NewShareService(ctx context.Context) *ShareService {
	return &ShareService{rt: RuntimeFrom(ctx)}
}

// NewShareServiceWith 使用给定 Runtime 创建 ShareService.
func NewShareServiceWith(rt *Runtime) *ShareService {
	return &ShareService{rt: rt}
}

func (s *ShareService) ready(op string) error {
	if s.rt == nil {
		return vfs.Errorf(vfs.ErrConfiguration, op, "", "%v", ErrNotInitialized)
	}

	if s.rt.db(context.Background()) == nil {
		return vfs.Errorf(vfs.ErrConfiguration, op, "", "metadata database not configured")
	}

	return nil
}

// fileKey 把 fileID 解析为 owner 租户根目录下的完整对象键.
func fileKey(owner, fileID string) string {
	folder := vfs.TenantFolder(owner)
	fileID = strings.TrimPrefix(fileID, "/")

	if strings.HasPrefix(fileID, folder+"/") {
		return fileID
	}

	return folder + "/" + fileID
}

// shareURL 拼接分享页面地址，地址中只包含 shareId.
func (s *ShareService) shareURL(shareID string) string {
	return strings.TrimRight(s.rt.Config.Share.AppURL, "/") + "/share/" + shareID
}

// expiryDays 应用默认值并校验上限.
func (s *ShareService) expiryDays(ttlDays int) (int, error) {
	cfg := s.rt.Config.Share

	switch {
	case ttlDays < 0:
		return 0, vfs.Errorf(vfs.ErrInvalidArgument, "share", "", "expiry days must be positive")
	case ttlDays == 0:
		ttlDays = cfg.DefaultExpiry
	}

	if cfg.MaxExpiry > 0 && ttlDays > cfg.MaxExpiry {
		return 0, vfs.Errorf(vfs.ErrInvalidArgument, "share", "", "expiry days must not exceed %d", cfg.MaxExpiry)
	}

	return ttlDays, nil
}

// cacheTTL 缓存时长不超过配置上限，也不超过链接剩余有效期. 配置为 0 时不缓存.
func (s *ShareService) cacheTTL(rec *model.ShareLink, now time.Time) time.Duration {
	ttl := time.Duration(s.rt.Config.Share.CacheTTLSeconds) * time.Second
	if left := rec.Expiry.Sub(now); left < ttl {
		ttl = left
	}

	return ttl
}

// CreateLink 为 owner 名下的文件创建分享链接.
func (s *ShareService) CreateLink(ctx context.Context, owner, fileID string, ttlDays int) (resp *types.CreateShareResponse, err error) {
	ctx, done := track(ctx, "share_create", owner)
	defer done(&err)

	if err := s.ready("share"); err != nil {
		return nil, err
	}

	owner = vfs.NormalizeIdentity(owner)
	if owner == "" {
		return nil, &vfs.Error{Kind: vfs.ErrUnauthorized, Op: "share"}
	}

	days, err := s.expiryDays(ttlDays)
	if err != nil {
		return nil, err
	}

	key := fileKey(owner, fileID)

	if _, err := s.rt.ownedFile(ctx, owner, key); err != nil {
		return nil, err
	}

	now := s.rt.Now().UTC()
	rec := &model.ShareLink{
		ID:           newULID(now),
		ShareID:      uuid.NewString(),
		FileID:       key,
		CreatedBy:    owner,
		AccessType:   model.AccessTypeView,
		RequiresAuth: true,
		Expiry:       now.Add(time.Duration(days) * day),
		CreatedAt:    now,
	}

	if err := s.rt.db(ctx).Create(rec).Error; err != nil {
		return nil, vfs.Errorf(vfs.ErrUnavailable, "share", key, "create share link: %v", err)
	}

	if ttl := s.cacheTTL(rec, now); s.rt.Shares != nil && ttl > 0 {
		if err := cache.Set(ctx, s.rt.Shares, rec.ShareID, *rec, ttl); err != nil {
			nlog.Ctx(ctx).Debug().Err(err).Msg("cache share link failed")
		}
	}

	s.rt.publishShare(ctx, queue.TopicShareCreated, queue.ShareEventPayload{
		Identity: owner,
		ShareID:  rec.ShareID,
		FileID:   rec.FileID,
		Owner:    owner,
		Expiry:   rec.Expiry,
	})

	nlog.Ctx(ctx).Info().Str("share_id", rec.ShareID).Str("file_id", key).Time("expiry", rec.Expiry).Msg("share link created")

	return &types.CreateShareResponse{ShareID: rec.ShareID, URL: s.shareURL(rec.ShareID), Expiry: rec.Expiry}, nil
}

// lookup 先查缓存再查数据库.
func (s *ShareService) lookup(ctx context.Context, shareID string) (*model.ShareLink, error) {
	load := func() (model.ShareLink, error) {
		var rec model.ShareLink

		err := s.rt.db(ctx).Where("share_id = ?", shareID).First(&rec).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return rec, vfs.Errorf(vfs.ErrNotFound, "resolve", shareID, "share link not found")
		}

		if err != nil {
			return rec, vfs.Errorf(vfs.ErrUnavailable, "resolve", shareID, "query share link: %v", err)
		}

		return rec, nil
	}

	ttl := time.Duration(s.rt.Config.Share.CacheTTLSeconds) * time.Second

	if s.rt.Shares == nil || ttl <= 0 {
		rec, err := load()
		if err != nil {
			return nil, err
		}

		return &rec, nil
	}

	rec, err := cache.GetOrSet(ctx, s.rt.Shares, shareID, load, ttl)
	if err != nil {
		return nil, err
	}

	return &rec, nil
}

// ResolveLink 解析分享链接，返回限时只读链接. 任何已认证的调用方都可以解析，不再校验归属.
func (s *ShareService) ResolveLink(ctx context.Context, resolver, shareID string) (resp *types.ResolveShareResponse, err error) {
	ctx, done := track(ctx, "share_resolve", resolver)
	defer func() {
		metrics.ShareResolutions.WithLabelValues(Outcome(err)).Inc()
		done(&err)
	}()

	if err := s.ready("resolve"); err != nil {
		return nil, err
	}

	resolver = vfs.NormalizeIdentity(resolver)
	if resolver == "" {
		return nil, &vfs.Error{Kind: vfs.ErrUnauthorized, Op: "resolve", Path: shareID}
	}

	if _, perr := uuid.Parse(shareID); perr != nil {
		return nil, vfs.Errorf(vfs.ErrNotFound, "resolve", shareID, "share link not found")
	}

	rec, err := s.lookup(ctx, shareID)
	if err != nil {
		return nil, err
	}

	now := s.rt.Now().UTC()
	if rec.Expired(now) {
		return nil, vfs.Errorf(vfs.ErrForbidden, "resolve", shareID, "share link expired at %s", rec.Expiry.Format(time.RFC3339))
	}

	url, err := s.rt.Registry.Shared().IssueReadCapability(ctx, rec.CreatedBy, rec.FileID, rec.Expiry.Sub(now))
	if err != nil {
		return nil, err
	}

	s.touch(ctx, rec.ID, now)

	if s.rt.Config.Events.Access {
		s.rt.publishShare(ctx, queue.TopicShareAccessed, queue.ShareEventPayload{
			Identity: resolver,
			ShareID:  rec.ShareID,
			FileID:   rec.FileID,
			Owner:    rec.CreatedBy,
			Expiry:   rec.Expiry,
		})
	}

	return &types.ResolveShareResponse{
		FileID: rec.FileID,
		Name:   rec.FileID[strings.LastIndex(rec.FileID, "/")+1:],
		URL:    url,
		Expiry: rec.Expiry,
	}, nil
}

// touch 更新访问计数. 失败只记录日志.
func (s *ShareService) touch(ctx context.Context, id string, now time.Time) {
	err := s.rt.db(ctx).Model(&model.ShareLink{}).Where("id = ?", id).Updates(map[string]any{
		"access_count":     gorm.Expr("access_count + ?", 1),
		"last_accessed_at": now,
	}).Error
	if err != nil {
		nlog.Ctx(ctx).Warn().Err(err).Str("id", id).Msg("update share access count failed")
	}
}

// ListLinks 列出 owner 仍然有效的分享链接，最新的在前.
func (s *ShareService) ListLinks(ctx context.Context, owner string) (resp *types.ListSharesResponse, err error) {
	ctx, done := track(ctx, "share_list", owner)
	defer done(&err)

	if err := s.ready("list-shares"); err != nil {
		return nil, err
	}

	owner = vfs.NormalizeIdentity(owner)
	if owner == "" {
		return nil, &vfs.Error{Kind: vfs.ErrUnauthorized, Op: "list-shares"}
	}

	var recs []model.ShareLink

	err = s.rt.db(ctx).
		Where("created_by = ? AND expiry >= ?", owner, s.rt.Now().UTC()).
		Order("created_at DESC").
		Find(&recs).Error
	if err != nil {
		return nil, vfs.Errorf(vfs.ErrUnavailable, "list-shares", owner, "query share links: %v", err)
	}

	out := make([]types.ShareLinkInfo, 0, len(recs))
	for _, r := range recs {
		out = append(out, types.ShareLinkInfo{
			ShareID:        r.ShareID,
			FileID:         r.FileID,
			URL:            s.shareURL(r.ShareID),
			AccessType:     r.AccessType,
			Expiry:         r.Expiry,
			CreatedAt:      r.CreatedAt,
			AccessCount:    r.AccessCount,
			LastAccessedAt: r.LastAccessedAt,
		})
	}

	return &types.ListSharesResponse{Shares: out, Total: len(out)}, nil
}

// PurgeExpired 删除在 before 之前过期的分享记录，返回删除数量.
func (s *ShareService) PurgeExpired(ctx context.Context, before time.Time) (int64, error) {
	if err := s.ready("purge-shares"); err != nil {
		return 0, err
	}

	res := s.rt.db(ctx).Where("expiry < ?", before).Delete(&model.ShareLink{})
	if res.Error != nil {
		return 0, res.Error
	}

	return res.RowsAffected, nil
}
