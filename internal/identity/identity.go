// Package identity carries the authenticated caller through a request.
package identity

import (
	"context"

	"github.com/Skotchmaster/iam/internal/domain"
)

// Identity is the caller bound by the authentication gate.
type Identity struct {
	UserID   uint
	Username string
	Roles    []domain.RoleName
}

// Authorities returns the roles in ROLE_<NAME> form.
func (id Identity) Authorities() []string {
	out := make([]string, 0, len(id.Roles))
	for _, r := range id.Roles {
		out = append(out, r.Authority())
	}
	return out
}

func (id Identity) HasRole(role domain.RoleName) bool {
	for _, r := range id.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// HasAnyRole reports whether id holds at least one of roles.
func (id Identity) HasAnyRole(roles ...domain.RoleName) bool {
	for _, want := range roles {
		if id.HasRole(want) {
			return true
		}
	}
	return false
}

type ctxKey struct{}

// WithIdentity binds id into ctx. An identity that is already bound wins; the
// second value is ignored.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	if _, ok := FromContext(ctx); ok {
		return ctx
	}
	return context.WithValue(ctx, ctxKey{}, id)
}

func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	return id, ok
}
