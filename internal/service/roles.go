package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/Skotchmaster/iam/internal/domain"
	"github.com/Skotchmaster/iam/internal/logging"
	"github.com/Skotchmaster/iam/internal/models"
	"github.com/Skotchmaster/iam/internal/repo"
)

type RoleStore interface {
	FindRoleByName(ctx context.Context, name domain.RoleName) (*models.Role, error)
	RoleExistsByName(ctx context.Context, name domain.RoleName) (bool, error)
	SaveRole(ctx context.Context, role *models.Role) error
	ListRoles(ctx context.Context) ([]models.Role, error)
}

// SeedRoles inserts every catalog role missing from the store and returns how
// many were created. Concurrent seeders are resolved by the unique index.
func SeedRoles(ctx context.Context, store RoleStore) (int, error) {
	l := logging.FromContext(ctx).With("svc", "roles.seed")

	created := 0
	for _, name := range domain.AllRoles() {
		exists, err := store.RoleExistsByName(ctx, name)
		if err != nil {
			return created, fmt.Errorf("%w: check role %s: %w", domain.ErrInternal, name, err)
		}
		if exists {
			continue
		}
		err = store.SaveRole(ctx, &models.Role{Name: name})
		switch {
		case err == nil:
			created++
			l.Info("role_created", "role", name)
		case errors.Is(err, repo.ErrDuplicate):
			l.Debug("role_created_concurrently", "role", name)
		default:
			return created, fmt.Errorf("%w: save role %s: %w", domain.ErrInternal, name, err)
		}
	}
	return created, nil
}
