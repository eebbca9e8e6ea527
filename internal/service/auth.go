package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/Skotchmaster/iam/internal/domain"
	"github.com/Skotchmaster/iam/internal/events"
	"github.com/Skotchmaster/iam/internal/hash"
	"github.com/Skotchmaster/iam/internal/logging"
	"github.com/Skotchmaster/iam/internal/models"
	"github.com/Skotchmaster/iam/internal/paging"
	"github.com/Skotchmaster/iam/internal/repo"
)

type UserStore interface {
	UserExistsByUsername(ctx context.Context, username string) (bool, error)
	FindUserByUsername(ctx context.Context, username string) (*models.User, error)
	FindUserByID(ctx context.Context, id uint) (*models.User, error)
	SaveUser(ctx context.Context, u *models.User) error
	ListUsers(ctx context.Context, offset, limit int) ([]models.User, int64, error)
}

type PasswordHasher interface {
	HashPassword(password string) (string, error)
	CheckPassword(hash, password string) error
}

type TokenIssuer interface {
	Issue(subject string, userID *uint, roles []string) (string, error)
	ExtractSubject(token string) (string, error)
}

type Revoker interface {
	Revoke(ctx context.Context, token string) error
}

type AuthService struct {
	Users    UserStore
	Roles    RoleStore
	Hasher   PasswordHasher
	Tokens   TokenIssuer
	Registry Revoker
	Events   events.Publisher

	DefaultRole domain.RoleName
	// RevokeOnRefresh also revokes the token handed to RefreshToken.
	RevokeOnRefresh bool
}

// AuthResult is a user together with a freshly issued token.
type AuthResult struct {
	User  *models.User
	Token string
}

// SignUp registers username with the requested roles, or the default role when
// none are requested, and returns the stored user.
func (s *AuthService) SignUp(ctx context.Context, username, password string, requested []string) (*models.User, error) {
	l := logging.FromContext(ctx).With("svc", "auth.sign_up", "username", username)

	exists, err := s.Users.UserExistsByUsername(ctx, username)
	if err != nil {
		l.Error("sign_up_failed", "reason", "db_error", "err", err)
		return nil, storeErr(err)
	}
	if exists {
		l.Warn("sign_up_failed", "reason", "user_exists")
		return nil, fmt.Errorf("%w: username %q is taken", domain.ErrConflict, username)
	}

	roles, err := s.resolveRoles(ctx, requested)
	if err != nil {
		l.Warn("sign_up_failed", "reason", "role_unresolved", "err", err)
		return nil, err
	}

	pwHash, err := s.Hasher.HashPassword(password)
	if err != nil {
		l.Error("sign_up_failed", "reason", "hash_error", "err", err)
		return nil, fmt.Errorf("%w: hash password: %w", domain.ErrInternal, err)
	}

	user := models.User{Username: username, PasswordHash: pwHash, Roles: roles}
	if err := s.Users.SaveUser(ctx, &user); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			l.Warn("sign_up_failed", "reason", "user_exists_race")
			return nil, fmt.Errorf("%w: username %q is taken", domain.ErrConflict, username)
		}
		l.Error("sign_up_failed", "reason", "db_error", "err", err)
		return nil, storeErr(err)
	}

	saved, err := s.Users.FindUserByID(ctx, user.ID)
	if err != nil {
		l.Error("sign_up_failed", "reason", "reread_failed", "err", err)
		return nil, storeErr(err)
	}

	s.publishRegistered(ctx, saved)
	l.Info("sign_up_succeeded", "user_id", saved.ID)
	return saved, nil
}

func (s *AuthService) resolveRoles(ctx context.Context, requested []string) ([]models.Role, error) {
	names := make([]domain.RoleName, 0, len(requested))
	if len(requested) == 0 {
		names = append(names, s.DefaultRole)
	}
	for _, raw := range requested {
		name, err := domain.ParseRoleName(raw)
		if err != nil {
			return nil, err
		}
		names = append(names, name)
	}

	roles := make([]models.Role, 0, len(names))
	seen := make(map[domain.RoleName]bool, len(names))
	for _, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true
		role, err := s.Roles.FindRoleByName(ctx, name)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return nil, fmt.Errorf("%w: role %s", domain.ErrNotFound, name)
			}
			return nil, storeErr(err)
		}
		roles = append(roles, *role)
	}
	return roles, nil
}

func (s *AuthService) publishRegistered(ctx context.Context, u *models.User) {
	if s.Events == nil {
		return
	}
	ev := events.UserRegistered{UserID: u.ID, Username: u.Username, Roles: u.RoleNames()}
	if err := s.Events.PublishUserRegistered(ctx, ev); err != nil {
		logging.FromContext(ctx).Error("publish_user_registered_failed", "user_id", u.ID, "err", err)
	}
}

// SignIn checks the password and issues a token carrying the user's current roles.
func (s *AuthService) SignIn(ctx context.Context, username, password string) (*AuthResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.sign_in", "username", username)

	user, err := s.Users.FindUserByUsername(ctx, username)
	if err != nil {
		l.Warn("sign_in_failed", "reason", "lookup", "err", err)
		return nil, storeErr(err)
	}

	if err := s.Hasher.CheckPassword(user.PasswordHash, password); err != nil {
		if errors.Is(err, hash.ErrMismatch) {
			l.Warn("sign_in_failed", "reason", "bad_password")
			return nil, domain.ErrAuthentication
		}
		l.Error("sign_in_failed", "reason", "hash_unusable", "err", err)
		return nil, fmt.Errorf("%w: check password: %w", domain.ErrInternal, err)
	}

	token, err := s.issue(user)
	if err != nil {
		l.Error("sign_in_failed", "reason", "issue_token", "err", err)
		return nil, err
	}
	l.Info("sign_in_succeeded", "user_id", user.ID)
	return &AuthResult{User: user, Token: token}, nil
}

// RefreshToken exchanges a still valid token for a new one. Roles are re-read
// so the new token reflects changes since the old one was issued.
func (s *AuthService) RefreshToken(ctx context.Context, oldToken string) (*AuthResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.refresh")

	subject, err := s.Tokens.ExtractSubject(oldToken)
	if err != nil {
		l.Warn("refresh_failed", "reason", "invalid_token", "err", err)
		return nil, fmt.Errorf("%w: %w", domain.ErrAuthentication, err)
	}

	user, err := s.Users.FindUserByUsername(ctx, subject)
	if err != nil {
		l.Warn("refresh_failed", "reason", "lookup", "err", err)
		return nil, storeErr(err)
	}

	token, err := s.issue(user)
	if err != nil {
		l.Error("refresh_failed", "reason", "issue_token", "err", err)
		return nil, err
	}

	if s.RevokeOnRefresh {
		if err := s.Registry.Revoke(ctx, oldToken); err != nil {
			l.Error("refresh_failed", "reason", "revoke_old", "err", err)
			return nil, err
		}
	}
	l.Info("refresh_succeeded", "user_id", user.ID)
	return &AuthResult{User: user, Token: token}, nil
}

// Logout revokes exactly the given token. Other tokens of the same user stay valid.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if err := s.Registry.Revoke(ctx, token); err != nil {
		logging.FromContext(ctx).Warn("logout_failed", "svc", "auth.logout", "err", err)
		return err
	}
	return nil
}

func (s *AuthService) GetUser(ctx context.Context, id uint) (*models.User, error) {
	user, err := s.Users.FindUserByID(ctx, id)
	if err != nil {
		return nil, storeErr(err)
	}
	return user, nil
}

func (s *AuthService) ListUsers(ctx context.Context, req paging.Request) (*paging.Page[models.User], error) {
	users, total, err := s.Users.ListUsers(ctx, req.Offset(), req.Limit())
	if err != nil {
		return nil, storeErr(err)
	}
	return &paging.Page[models.User]{Items: users, Page: req.Page, Size: req.Size, Total: total}, nil
}

func (s *AuthService) ListRoles(ctx context.Context) ([]models.Role, error) {
	roles, err := s.Roles.ListRoles(ctx)
	if err != nil {
		return nil, storeErr(err)
	}
	return roles, nil
}

func (s *AuthService) issue(u *models.User) (string, error) {
	id := u.ID
	token, err := s.Tokens.Issue(u.Username, &id, u.RoleNames())
	if err != nil {
		return "", fmt.Errorf("%w: issue token: %w", domain.ErrInternal, err)
	}
	return token, nil
}

// storeErr lifts repo errors into the domain taxonomy.
func storeErr(err error) error {
	switch {
	case errors.Is(err, repo.ErrNotFound):
		return fmt.Errorf("%w: %w", domain.ErrNotFound, err)
	case errors.Is(err, repo.ErrDuplicate):
		return fmt.Errorf("%w: %w", domain.ErrConflict, err)
	default:
		return fmt.Errorf("%w: %w", domain.ErrInternal, err)
	}
}
