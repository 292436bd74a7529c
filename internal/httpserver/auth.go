package httpserver

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/auth_service/internal/logging"
	authmw "github.com/Skotchmaster/auth_service/internal/middleware/auth"
	"github.com/Skotchmaster/auth_service/internal/models"
	"github.com/Skotchmaster/auth_service/internal/service"
	"github.com/Skotchmaster/auth_service/internal/transport"
)

type AuthService interface {
	Register(ctx context.Context, in service.RegisterInput) (*service.Session, error)
	Login(ctx context.Context, email, password, ip string) (*service.Session, error)
	Refresh(ctx context.Context, info authmw.AuthInfo) (*service.Session, error)
	Logout(ctx context.Context, info authmw.AuthInfo) error
	Self(ctx context.Context, userID uint) (*models.User, error)
}

type AuthHTTP struct {
	Svc     AuthService
	Cookies CookieConfig
}

func (h *AuthHTTP) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_register")

	var req transport.RegisterRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("register_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	sess, err := h.Svc.Register(ctx, service.RegisterInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
	})
	if err != nil {
		return err
	}

	h.Cookies.setSession(c, sess)
	return c.JSON(http.StatusCreated, transport.IDResponse{ID: sess.User.ID})
}

func (h *AuthHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_login")

	var req transport.LoginRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("login_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	sess, err := h.Svc.Login(ctx, req.Email, req.Password, c.RealIP())
	if err != nil {
		return err
	}

	h.Cookies.setSession(c, sess)
	return c.JSON(http.StatusOK, transport.IDResponse{ID: sess.User.ID})
}

func (h *AuthHTTP) Self(c echo.Context) error {
	ctx := c.Request().Context()
	info, ok := authmw.FromContext(ctx)
	if !ok {
		return echo.ErrUnauthorized
	}
	user, err := h.Svc.Self(ctx, info.Subject)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

func (h *AuthHTTP) Refresh(c echo.Context) error {
	ctx := c.Request().Context()
	info, ok := authmw.FromContext(ctx)
	if !ok {
		return echo.ErrUnauthorized
	}
	sess, err := h.Svc.Refresh(ctx, info)
	if err != nil {
		return err
	}
	h.Cookies.setSession(c, sess)
	return c.JSON(http.StatusOK, transport.IDResponse{ID: sess.User.ID})
}

func (h *AuthHTTP) Logout(c echo.Context) error {
	ctx := c.Request().Context()
	info, ok := authmw.FromContext(ctx)
	if !ok {
		return echo.ErrUnauthorized
	}
	if err := h.Svc.Logout(ctx, info); err != nil {
		return err
	}
	h.Cookies.clearSession(c)
	return c.JSON(http.StatusOK, echo.Map{})
}
