package httpserver

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/iam/internal/domain"
	"github.com/Skotchmaster/iam/internal/middleware"
)

type Deps struct {
	AuthHandler *AuthHTTP
	Gate        *middleware.Gate
	// Ready reports whether the store is reachable. Nil means always ready.
	Ready func(ctx context.Context) error
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error {
		if d.Ready != nil {
			if err := d.Ready(c.Request().Context()); err != nil {
				return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "unavailable"})
			}
		}
		return c.NoContent(http.StatusOK)
	})

	v1 := e.Group("/api/v1", d.Gate.Authenticate)

	authn := v1.Group("/authentication")
	authn.POST("/sign-up", d.AuthHandler.SignUp)
	authn.POST("/sign-in", d.AuthHandler.SignIn)
	authn.POST("/refresh", d.AuthHandler.Refresh)
	authn.POST("/verify-token", d.AuthHandler.Refresh)
	authn.POST("/logout", d.AuthHandler.Logout)

	adminOnly := middleware.RequireRole(domain.RoleAdmin)
	users := v1.Group("/users")
	users.GET("", d.AuthHandler.ListUsers, adminOnly)
	users.GET("/me", d.AuthHandler.Me, middleware.RequireAuth)
	users.GET("/:id", d.AuthHandler.GetUser, adminOnly)

	v1.GET("/roles", d.AuthHandler.ListRoles, middleware.RequireAuth)
}
