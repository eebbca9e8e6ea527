package repo

import (
	"context"
	"time"

	"github.com/Skotchmaster/iam/internal/models"
)

func (r *GormRepo) RevokedTokenExistsByHash(ctx context.Context, jtiHash string) (bool, error) {
	var count int64
	if err := r.DB.WithContext(ctx).Model(&models.RevokedToken{}).
		Where("jti_hash = ?", jtiHash).
		Count(&count).Error; err != nil {
		return false, translate(err)
	}
	return count > 0, nil
}

func (r *GormRepo) SaveRevokedToken(ctx context.Context, t *models.RevokedToken) error {
	return translate(r.DB.WithContext(ctx).Create(t).Error)
}

// DeleteRevokedTokensExpiredBefore hard deletes markers that can no longer matter.
func (r *GormRepo) DeleteRevokedTokensExpiredBefore(ctx context.Context, before time.Time) (int64, error) {
	res := r.DB.WithContext(ctx).
		Where("expires_at < ?", before.UTC()).
		Delete(&models.RevokedToken{})
	if res.Error != nil {
		return 0, translate(res.Error)
	}
	return res.RowsAffected, nil
}
