package httpserver

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	authmw "github.com/Skotchmaster/auth_service/internal/middleware/auth"
	loggingmw "github.com/Skotchmaster/auth_service/internal/middleware/logging"
	"github.com/Skotchmaster/auth_service/internal/models"
)

type Deps struct {
	Auth    *AuthHTTP
	Users   *UsersHTTP
	Tenants *TenantsHTTP

	Keys        KeyPublisher
	Access      authmw.AccessVerifier
	Refresh     authmw.RefreshVerifier
	Revocations authmw.RevocationStore
	Ready       func(ctx context.Context) error
}

// New builds an echo instance with the service-wide middleware chain.
func New(logger *slog.Logger, allowOrigins ...string) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = ErrorHandler
	e.Server.ReadTimeout = 10 * time.Second
	e.Server.WriteTimeout = 15 * time.Second
	e.Server.ReadHeaderTimeout = 3 * time.Second

	e.Pre(echomw.RemoveTrailingSlash())
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(loggingmw.RequestLogger(logger))
	if len(allowOrigins) > 0 {
		e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
			AllowOrigins:     allowOrigins,
			AllowCredentials: true,
			AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		}))
	}
	return e
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error {
		if d.Ready != nil {
			if err := d.Ready(c.Request().Context()); err != nil {
				return echo.NewHTTPError(http.StatusServiceUnavailable, "not ready")
			}
		}
		return c.NoContent(http.StatusOK)
	})
	e.GET("/.well-known/jwks.json", jwksHandler(d.Keys))

	authenticated := authmw.Authenticate(d.Access)
	withRefresh := authmw.AuthenticateRefresh(d.Refresh, d.Revocations)
	adminOnly := authmw.Authorize(models.RoleAdmin)

	a := e.Group("/auth")
	a.POST("/register", d.Auth.Register)
	a.POST("/login", d.Auth.Login)
	a.GET("/self", d.Auth.Self, authenticated)
	a.GET("/refresh", d.Auth.Refresh, withRefresh)
	a.POST("/logout", d.Auth.Logout, withRefresh)

	t := e.Group("/tenants", authenticated, adminOnly)
	t.POST("", d.Tenants.Create)
	t.GET("", d.Tenants.List)

	u := e.Group("/users", authenticated)
	u.POST("", d.Users.Create, adminOnly)
	u.GET("", d.Users.List, adminOnly)
	u.DELETE("/:id", d.Users.Delete)
}
