package httpserver

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/iam/internal/domain"
	"github.com/Skotchmaster/iam/internal/logging"
	"github.com/Skotchmaster/iam/internal/middleware"
	"github.com/Skotchmaster/iam/internal/paging"
	"github.com/Skotchmaster/iam/internal/service"
	"github.com/Skotchmaster/iam/internal/transport"
)

type AuthHTTP struct {
	Svc *service.AuthService
}

func (h *AuthHTTP) SignUp(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_sign_up")

	var req transport.SignUpRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("sign_up_error", "status", 400, "error", err)
		return fmt.Errorf("%w: invalid body", domain.ErrValidation)
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}

	user, err := h.Svc.SignUp(ctx, req.Username, req.Password, req.Roles)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, transport.NewUserResource(user))
}

func (h *AuthHTTP) SignIn(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_sign_in")

	var req transport.SignInRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("sign_in_error", "status", 400, "error", err)
		return fmt.Errorf("%w: invalid body", domain.ErrValidation)
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}

	res, err := h.Svc.SignIn(ctx, req.Username, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, authResource(res))
}

// Refresh serves both /refresh and /verify-token.
func (h *AuthHTTP) Refresh(c echo.Context) error {
	token, err := requestToken(c)
	if err != nil {
		return err
	}
	res, err := h.Svc.RefreshToken(c.Request().Context(), token)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, authResource(res))
}

func (h *AuthHTTP) Logout(c echo.Context) error {
	token, err := requestToken(c)
	if err != nil {
		return err
	}
	if err := h.Svc.Logout(c.Request().Context(), token); err != nil {
		return err
	}
	logging.FromContext(c.Request().Context()).Info("successful_logout")
	return c.NoContent(http.StatusNoContent)
}

func (h *AuthHTTP) Me(c echo.Context) error {
	id, ok := middleware.CurrentIdentity(c)
	if !ok {
		return domain.ErrAuthentication
	}
	user, err := h.Svc.GetUser(c.Request().Context(), id.UserID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, transport.NewUserResource(user))
}

func (h *AuthHTTP) GetUser(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 0)
	if err != nil || id == 0 {
		return fmt.Errorf("%w: invalid user id %q", domain.ErrValidation, c.Param("id"))
	}
	user, err := h.Svc.GetUser(c.Request().Context(), uint(id))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, transport.NewUserResource(user))
}

func (h *AuthHTTP) ListUsers(c echo.Context) error {
	req := paging.Parse(c.QueryParam("page"), c.QueryParam("size"))
	page, err := h.Svc.ListUsers(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, transport.NewUserPage(page))
}

func (h *AuthHTTP) ListRoles(c echo.Context) error {
	roles, err := h.Svc.ListRoles(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, transport.NewRoleResources(roles))
}

func requestToken(c echo.Context) (string, error) {
	token, ok := middleware.BearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
	if !ok || token == "" {
		return "", fmt.Errorf("%w: missing bearer token", domain.ErrAuthentication)
	}
	return token, nil
}

func authResource(res *service.AuthResult) transport.AuthResource {
	return transport.AuthResource{UserResource: transport.NewUserResource(res.User), Token: res.Token}
}
