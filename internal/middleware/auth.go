package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/iam/internal/domain"
	"github.com/Skotchmaster/iam/internal/identity"
	"github.com/Skotchmaster/iam/internal/logging"
	"github.com/Skotchmaster/iam/internal/models"
	"github.com/Skotchmaster/iam/internal/tokens"
)

const bearerPrefix = "Bearer "

// echo.Context keys mirrored from the bound identity.
const (
	CtxUserID   = "user_id"
	CtxUsername = "username"
	CtxRoles    = "roles"
)

type TokenParser interface {
	Parse(token string) (*tokens.Claims, error)
}

type RevocationChecker interface {
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

type UserLookup interface {
	FindUserByUsername(ctx context.Context, username string) (*models.User, error)
}

// ErrorBody is the JSON shape of gate rejections.
type ErrorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type gateState int

const (
	stateAlreadyAuthenticated gateState = iota
	stateNoCredential
	stateInvalidCredential
	stateRevokedCredential
	stateLiveCredential
)

func (s gateState) String() string {
	switch s {
	case stateAlreadyAuthenticated:
		return "already_authenticated"
	case stateNoCredential:
		return "no_credential"
	case stateInvalidCredential:
		return "invalid_credential"
	case stateRevokedCredential:
		return "revoked_credential"
	default:
		return "live_credential"
	}
}

// Gate resolves the bearer token of each request into an identity. It never
// rejects a request except when the token has been revoked.
type Gate struct {
	Codec    TokenParser
	Registry RevocationChecker
	Users    UserLookup
}

func NewGate(codec TokenParser, registry RevocationChecker, users UserLookup) *Gate {
	return &Gate{Codec: codec, Registry: registry, Users: users}
}

func (g *Gate) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		l := logging.FromContext(ctx).With("svc", "auth.gate")

		state, id, err := g.resolve(ctx, c.Request().Header.Get(echo.HeaderAuthorization))
		if err != nil {
			l.Error("identity_resolution_failed", "state", state.String(), "err", err)
			return next(c)
		}

		switch state {
		case stateRevokedCredential:
			l.Warn("revoked_token_rejected")
			return c.JSON(http.StatusUnauthorized, ErrorBody{Error: "unauthorized", Message: "token revoked"})
		case stateLiveCredential:
			bindIdentity(c, *id)
		case stateInvalidCredential:
			l.Debug("invalid_token_ignored")
		}
		return next(c)
	}
}

// resolve is the only place the gate can fail. Returned errors and panics
// both end up as "no identity bound".
func (g *Gate) resolve(ctx context.Context, header string) (state gateState, id *identity.Identity, err error) {
	defer func() {
		if r := recover(); r != nil {
			id = nil
			err = fmt.Errorf("%w: panic: %v", domain.ErrInternal, r)
		}
	}()

	if _, ok := identity.FromContext(ctx); ok {
		return stateAlreadyAuthenticated, nil, nil
	}

	raw, ok := BearerToken(header)
	if !ok {
		return stateNoCredential, nil, nil
	}

	claims, perr := g.Codec.Parse(raw)
	if perr != nil {
		return stateInvalidCredential, nil, nil
	}

	state = stateLiveCredential
	revoked, err := g.Registry.IsRevoked(ctx, claims.ID)
	if err != nil {
		return state, nil, err
	}
	if revoked {
		return stateRevokedCredential, nil, nil
	}

	user, err := g.Users.FindUserByUsername(ctx, claims.Subject)
	if err != nil {
		return state, nil, fmt.Errorf("lookup subject: %w", err)
	}

	roles := make([]domain.RoleName, 0, len(user.Roles))
	for _, r := range user.Roles {
		roles = append(roles, r.Name)
	}
	return state, &identity.Identity{UserID: user.ID, Username: user.Username, Roles: roles}, nil
}

// BearerToken extracts the token from an Authorization header value. The
// "Bearer " prefix is matched case-sensitively.
func BearerToken(header string) (string, bool) {
	if !strings.HasPrefix(header, bearerPrefix) {
		return "", false
	}
	return header[len(bearerPrefix):], true
}

func bindIdentity(c echo.Context, id identity.Identity) {
	ctx := identity.WithIdentity(c.Request().Context(), id)
	c.SetRequest(c.Request().WithContext(ctx))

	c.Set(CtxUserID, id.UserID)
	c.Set(CtxUsername, id.Username)
	c.Set(CtxRoles, id.Authorities())
}

// CurrentIdentity returns the identity bound to the request, if any.
func CurrentIdentity(c echo.Context) (identity.Identity, bool) {
	return identity.FromContext(c.Request().Context())
}

// RequireAuth rejects requests that reached it without a bound identity.
func RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, ok := CurrentIdentity(c); !ok {
			logging.FromContext(c.Request().Context()).Warn("unauthenticated_access",
				"path", c.Request().URL.Path)
			return c.JSON(http.StatusUnauthorized, ErrorBody{Error: "unauthorized", Message: "Authentication required"})
		}
		return next(c)
	}
}

// RequireRole admits callers holding at least one of roles. Anonymous callers
// get the RequireAuth response.
func RequireRole(roles ...domain.RoleName) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return RequireAuth(func(c echo.Context) error {
			id, _ := CurrentIdentity(c)
			if !id.HasAnyRole(roles...) {
				logging.FromContext(c.Request().Context()).Warn("access_denied",
					"user_id", id.UserID, "path", c.Request().URL.Path)
				return c.JSON(http.StatusForbidden, ErrorBody{Error: "forbidden", Message: "Access is denied"})
			}
			return next(c)
		})
	}
}
