package repo

import (
	"context"

	"github.com/Skotchmaster/iam/internal/models"
)

func (r *GormRepo) UserExistsByUsername(ctx context.Context, username string) (bool, error) {
	var count int64
	if err := r.DB.WithContext(ctx).Model(&models.User{}).
		Where("username = ?", username).
		Count(&count).Error; err != nil {
		return false, translate(err)
	}
	return count > 0, nil
}

func (r *GormRepo) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := r.DB.WithContext(ctx).Preload("Roles").
		Where("username = ?", username).
		First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (r *GormRepo) FindUserByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.DB.WithContext(ctx).Preload("Roles").
		First(&user, id).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// SaveUser inserts u and links its roles. Roles must already exist; they are
// referenced, never upserted. A taken username yields ErrDuplicate.
func (r *GormRepo) SaveUser(ctx context.Context, u *models.User) error {
	if err := r.DB.WithContext(ctx).Omit("Roles.*").Create(u).Error; err != nil {
		return translate(err)
	}
	return nil
}

// ListUsers returns one page of users ordered by id, and the total count.
func (r *GormRepo) ListUsers(ctx context.Context, offset, limit int) ([]models.User, int64, error) {
	var total int64
	if err := r.DB.WithContext(ctx).Model(&models.User{}).Count(&total).Error; err != nil {
		return nil, 0, translate(err)
	}
	var users []models.User
	if err := r.DB.WithContext(ctx).Preload("Roles").
		Order("id ASC").Offset(offset).Limit(limit).
		Find(&users).Error; err != nil {
		return nil, 0, translate(err)
	}
	return users, total, nil
}
