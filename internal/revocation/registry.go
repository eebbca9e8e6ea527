// Package revocation keeps the deny-list of logged-out tokens. Entries are
// keyed by the sha256 hex digest of the token id, never by the raw id.
package revocation

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Skotchmaster/iam/internal/domain"
	"github.com/Skotchmaster/iam/internal/logging"
	"github.com/Skotchmaster/iam/internal/models"
	"github.com/Skotchmaster/iam/internal/repo"
	"github.com/Skotchmaster/iam/internal/tokens"
)

type Store interface {
	RevokedTokenExistsByHash(ctx context.Context, jtiHash string) (bool, error)
	SaveRevokedToken(ctx context.Context, t *models.RevokedToken) error
	DeleteRevokedTokensExpiredBefore(ctx context.Context, before time.Time) (int64, error)
}

type Codec interface {
	Parse(token string) (*tokens.Claims, error)
}

type Registry struct {
	Store Store
	Codec Codec
}

func NewRegistry(store Store, codec Codec) *Registry {
	return &Registry{Store: store, Codec: codec}
}

// HashJTI returns the 64 character lowercase hex sha256 of jti.
func HashJTI(jti string) string {
	sum := sha256.Sum256([]byte(jti))
	return hex.EncodeToString(sum[:])
}

// Revoke marks token as revoked until it expires. Revoking twice is a no-op,
// and so is revoking a token without an id.
func (r *Registry) Revoke(ctx context.Context, token string) error {
	l := logging.FromContext(ctx).With("svc", "revocation.revoke")

	claims, err := r.Codec.Parse(token)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrAuthentication, err)
	}
	if strings.TrimSpace(claims.ID) == "" {
		l.Warn("revoke_skipped_blank_jti", "sub", claims.Subject)
		return nil
	}

	digest := HashJTI(claims.ID)
	exists, err := r.Store.RevokedTokenExistsByHash(ctx, digest)
	if err != nil {
		return fmt.Errorf("%w: lookup revoked token: %w", domain.ErrInternal, err)
	}
	if exists {
		return nil
	}

	var expiresAt time.Time
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time.UTC()
	}
	err = r.Store.SaveRevokedToken(ctx, &models.RevokedToken{JTIHash: digest, ExpiresAt: expiresAt})
	switch {
	case err == nil:
		l.Info("token_revoked", "sub", claims.Subject)
		return nil
	case errors.Is(err, repo.ErrDuplicate):
		// lost the race to a concurrent logout of the same token
		return nil
	default:
		return fmt.Errorf("%w: save revoked token: %w", domain.ErrInternal, err)
	}
}

// IsRevoked reports whether jti has been revoked. It never writes.
func (r *Registry) IsRevoked(ctx context.Context, jti string) (bool, error) {
	revoked, err := r.Store.RevokedTokenExistsByHash(ctx, HashJTI(jti))
	if err != nil {
		return false, fmt.Errorf("%w: lookup revoked token: %w", domain.ErrInternal, err)
	}
	return revoked, nil
}

// PurgeExpired drops markers of tokens that expired before now; such tokens
// already fail signature verification on their own.
func (r *Registry) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	n, err := r.Store.DeleteRevokedTokensExpiredBefore(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("%w: purge revoked tokens: %w", domain.ErrInternal, err)
	}
	return n, nil
}
