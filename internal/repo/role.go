package repo

import (
	"context"

	"github.com/Skotchmaster/iam/internal/domain"
	"github.com/Skotchmaster/iam/internal/models"
)

func (r *GormRepo) FindRoleByName(ctx context.Context, name domain.RoleName) (*models.Role, error) {
	var role models.Role
	if err := r.DB.WithContext(ctx).Where("name = ?", name).First(&role).Error; err != nil {
		return nil, translate(err)
	}
	return &role, nil
}

func (r *GormRepo) RoleExistsByName(ctx context.Context, name domain.RoleName) (bool, error) {
	var count int64
	if err := r.DB.WithContext(ctx).Model(&models.Role{}).
		Where("name = ?", name).
		Count(&count).Error; err != nil {
		return false, translate(err)
	}
	return count > 0, nil
}

func (r *GormRepo) SaveRole(ctx context.Context, role *models.Role) error {
	return translate(r.DB.WithContext(ctx).Create(role).Error)
}

func (r *GormRepo) ListRoles(ctx context.Context) ([]models.Role, error) {
	var roles []models.Role
	if err := r.DB.WithContext(ctx).Order("id ASC").Find(&roles).Error; err != nil {
		return nil, translate(err)
	}
	return roles, nil
}
