package httpserver

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/auth_service/internal/logging"
	authmw "github.com/Skotchmaster/auth_service/internal/middleware/auth"
	"github.com/Skotchmaster/auth_service/internal/models"
	"github.com/Skotchmaster/auth_service/internal/service"
	"github.com/Skotchmaster/auth_service/internal/transport"
	"github.com/Skotchmaster/auth_service/internal/util"
)

type UserService interface {
	Create(ctx context.Context, in service.CreateUserInput) (uint, error)
	List(ctx context.Context, page util.Page) ([]models.User, error)
	Delete(ctx context.Context, actor authmw.AuthInfo, id uint) error
}

type UsersHTTP struct {
	Svc UserService
}

func (h *UsersHTTP) Create(c echo.Context) error {
	ctx := c.Request().Context()

	var req transport.CreateUserRequest
	if err := c.Bind(&req); err != nil {
		logging.FromContext(ctx).Warn("create_user_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	id, err := h.Svc.Create(ctx, service.CreateUserInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
		Role:      req.Role,
		TenantID:  req.TenantID,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, transport.IDResponse{ID: id})
}

func (h *UsersHTTP) List(c echo.Context) error {
	page, err := util.ParsePage(c.QueryParam("page"), c.QueryParam("size"))
	if err != nil {
		return &service.ValidationError{Fields: []service.FieldError{{Field: "page", Msg: err.Error()}}}
	}
	users, err := h.Svc.List(c.Request().Context(), page)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, users)
}

func (h *UsersHTTP) Delete(c echo.Context) error {
	ctx := c.Request().Context()
	info, ok := authmw.FromContext(ctx)
	if !ok {
		return echo.ErrUnauthorized
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return &service.ValidationError{Fields: []service.FieldError{{Field: "id", Msg: "id must be a positive integer"}}}
	}

	if err := h.Svc.Delete(ctx, info, uint(id)); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
