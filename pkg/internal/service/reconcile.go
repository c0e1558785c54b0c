package service

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/yeisme/blobdrive/pkg/internal/model"
	"github.com/yeisme/blobdrive/pkg/internal/vfs"
	nlog "github.com/yeisme/blobdrive/pkg/log"
)

const reconcileBatch = 200

// Reconcile 删除对象已不存在的登记行，返回删除数量. 不会为此创建容器.
func (s *FileService) Reconcile(ctx context.Context) (removed int, err error) {
	ctx, done := track(ctx, "reconcile", "")
	defer done(&err)

	if s.rt == nil {
		return 0, ErrNotInitialized
	}

	tx := s.rt.db(ctx)
	if tx == nil {
		return 0, nil
	}

	var (
		rows  []model.File
		stale []string
	)

	err = tx.FindInBatches(&rows, reconcileBatch, func(_ *gorm.DB, _ int) error {
		for _, r := range rows {
			ns, err := s.rt.Registry.Namespace(r.OwnerEmail)
			if err != nil {
				stale = append(stale, r.ID)
				continue
			}

			_, err = ns.Stat(ctx, r.ID)

			switch {
			case errors.Is(err, vfs.ErrNotFound), errors.Is(err, vfs.ErrInvalidArgument):
				stale = append(stale, r.ID)
			case err != nil:
				return err
			}
		}

		return nil
	}).Error
	if err != nil {
		return 0, err
	}

	for start := 0; start < len(stale); start += reconcileBatch {
		end := min(start+reconcileBatch, len(stale))
		if err := tx.Delete(&model.File{}, "id IN ?", stale[start:end]).Error; err != nil {
			return removed, err
		}

		removed = end
	}

	if removed > 0 {
		nlog.Ctx(ctx).Info().Int("removed", removed).Msg("registry reconciled")
	}

	return removed, nil
}
