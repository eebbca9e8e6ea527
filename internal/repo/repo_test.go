package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/iam/internal/db"
	"github.com/Skotchmaster/iam/internal/domain"
	"github.com/Skotchmaster/iam/internal/models"
)

func newTestRepo(t *testing.T) *GormRepo {
	t.Helper()
	ctx := context.Background()
	gdb, err := db.Open(ctx, db.DriverSQLite, ":memory:")
	require.NoError(t, err)
	require.NoError(t, db.Migrate(ctx, gdb))
	t.Cleanup(func() { _ = db.Close(gdb) })
	return New(gdb)
}

func seedRole(t *testing.T, r *GormRepo, name domain.RoleName) models.Role {
	t.Helper()
	role := models.Role{Name: name}
	require.NoError(t, r.SaveRole(context.Background(), &role))
	return role
}

func TestGormRepo_UserLifecycle(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo(t)
	buyer := seedRole(t, r, domain.RoleBuyer)
	seller := seedRole(t, r, domain.RoleSeller)

	exists, err := r.UserExistsByUsername(ctx, "alice")
	require.NoError(t, err)
	require.False(t, exists)

	u := models.User{Username: "alice", PasswordHash: "hash", Roles: []models.Role{buyer, seller}}
	require.NoError(t, r.SaveUser(ctx, &u))
	require.NotZero(t, u.ID)

	exists, err = r.UserExistsByUsername(ctx, "alice")
	require.NoError(t, err)
	require.True(t, exists)

	found, err := r.FindUserByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, u.ID, found.ID)
	assert.ElementsMatch(t, []string{"BUYER", "SELLER"}, found.RoleNames())

	byID, err := r.FindUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", byID.Username)

	roles, err := r.ListRoles(ctx)
	require.NoError(t, err)
	require.Len(t, roles, 2, "saving a user must not duplicate roles")
}

func TestGormRepo_DuplicateUsername(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo(t)
	buyer := seedRole(t, r, domain.RoleBuyer)

	require.NoError(t, r.SaveUser(ctx, &models.User{Username: "alice", PasswordHash: "h", Roles: []models.Role{buyer}}))
	err := r.SaveUser(ctx, &models.User{Username: "alice", PasswordHash: "h", Roles: []models.Role{buyer}})
	require.True(t, errors.Is(err, ErrDuplicate), "got %v", err)

	var count int64
	require.NoError(t, r.DB.Model(&models.User{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestGormRepo_NotFound(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo(t)

	_, err := r.FindUserByUsername(ctx, "ghost")
	require.True(t, errors.Is(err, ErrNotFound))

	_, err = r.FindUserByID(ctx, 99)
	require.True(t, errors.Is(err, ErrNotFound))

	_, err = r.FindRoleByName(ctx, domain.RoleAdmin)
	require.True(t, errors.Is(err, ErrNotFound))
}

func TestGormRepo_RoleUniqueness(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo(t)
	seedRole(t, r, domain.RoleAdmin)

	ok, err := r.RoleExistsByName(ctx, domain.RoleAdmin)
	require.NoError(t, err)
	require.True(t, ok)

	err = r.SaveRole(ctx, &models.Role{Name: domain.RoleAdmin})
	require.True(t, errors.Is(err, ErrDuplicate), "got %v", err)
}

func TestGormRepo_RevokedTokens(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo(t)
	now := time.Now().UTC()

	live := models.RevokedToken{JTIHash: "aa", ExpiresAt: now.Add(time.Hour)}
	dead := models.RevokedToken{JTIHash: "bb", ExpiresAt: now.Add(-time.Hour)}
	require.NoError(t, r.SaveRevokedToken(ctx, &live))
	require.NoError(t, r.SaveRevokedToken(ctx, &dead))

	err := r.SaveRevokedToken(ctx, &models.RevokedToken{JTIHash: "aa", ExpiresAt: now})
	require.True(t, errors.Is(err, ErrDuplicate), "got %v", err)

	ok, err := r.RevokedTokenExistsByHash(ctx, "aa")
	require.NoError(t, err)
	require.True(t, ok)

	n, err := r.DeleteRevokedTokensExpiredBefore(ctx, now)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	ok, err = r.RevokedTokenExistsByHash(ctx, "bb")
	require.NoError(t, err)
	require.False(t, ok)
}
