package integration

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Skotchmaster/iam/internal/db"
	"github.com/Skotchmaster/iam/internal/domain"
	"github.com/Skotchmaster/iam/internal/events"
	"github.com/Skotchmaster/iam/internal/hash"
	"github.com/Skotchmaster/iam/internal/models"
	"github.com/Skotchmaster/iam/internal/repo"
	"github.com/Skotchmaster/iam/internal/revocation"
	"github.com/Skotchmaster/iam/internal/service"
	"github.com/Skotchmaster/iam/internal/tokens"
)

type integrationEnv struct {
	db       *gorm.DB
	store    *repo.GormRepo
	registry *revocation.Registry
	svc      *service.AuthService
}

func newIntegrationEnv(t *testing.T) *integrationEnv {
	t.Helper()

	dsn := os.Getenv("IAM_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("IAM_TEST_DATABASE_URL is required for tests")
	}

	ctx := context.Background()
	gdb, err := db.Open(ctx, db.DriverPostgres, dsn)
	require.NoError(t, err)
	require.NoError(t, db.Migrate(ctx, gdb))

	store := repo.New(gdb)
	_, err = service.SeedRoles(ctx, store)
	require.NoError(t, err)

	codec, err := tokens.NewCodec([]byte("integration-secret-0123456789-abcdefghijklmnopqrstuvwxyz"), 1)
	require.NoError(t, err)
	registry := revocation.NewRegistry(store, codec)

	env := &integrationEnv{
		db:       gdb,
		store:    store,
		registry: registry,
		svc: &service.AuthService{
			Users:       store,
			Roles:       store,
			Hasher:      hash.NewBcrypt(4),
			Tokens:      codec,
			Registry:    registry,
			Events:      events.Nop{},
			DefaultRole: domain.RoleBuyer,
		},
	}

	t.Cleanup(func() {
		truncateTables(gdb)
		_ = db.Close(gdb)
	})
	return env
}

func truncateTables(gdb *gorm.DB) {
	gdb.Exec("TRUNCATE TABLE revoked_tokens, user_roles, users RESTART IDENTITY CASCADE")
}

func uniqueUsername() string {
	return "u_" + uuid.NewString()[:8]
}

func TestSignUp_SuccessAndConflict(t *testing.T) {
	env := newIntegrationEnv(t)
	ctx := context.Background()
	username := uniqueUsername()

	u, err := env.svc.SignUp(ctx, username, "Secret123", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"BUYER"}, u.RoleNames())

	_, err = env.svc.SignUp(ctx, username, "Secret123", nil)
	require.ErrorIs(t, err, domain.ErrConflict)
}

func TestLogout_RevokesOnlyThatToken(t *testing.T) {
	env := newIntegrationEnv(t)
	ctx := context.Background()
	username := uniqueUsername()

	_, err := env.svc.SignUp(ctx, username, "Secret123", []string{"SELLER"})
	require.NoError(t, err)

	first, err := env.svc.SignIn(ctx, username, "Secret123")
	require.NoError(t, err)
	second, err := env.svc.RefreshToken(ctx, first.Token)
	require.NoError(t, err)

	require.NoError(t, env.svc.Logout(ctx, first.Token))
	require.NoError(t, env.svc.Logout(ctx, first.Token))

	var n int64
	require.NoError(t, env.db.Model(&models.RevokedToken{}).Count(&n).Error)
	assert.EqualValues(t, 1, n)

	_, err = env.svc.RefreshToken(ctx, second.Token)
	require.NoError(t, err)
}

func TestRevokedToken_DuplicateInsertIsSuccess(t *testing.T) {
	env := newIntegrationEnv(t)
	ctx := context.Background()

	row := &models.RevokedToken{JTIHash: revocation.HashJTI(uuid.NewString())}
	require.NoError(t, env.store.SaveRevokedToken(ctx, row))

	dup := &models.RevokedToken{JTIHash: row.JTIHash, ExpiresAt: row.ExpiresAt}
	require.ErrorIs(t, env.store.SaveRevokedToken(ctx, dup), repo.ErrDuplicate)
}
