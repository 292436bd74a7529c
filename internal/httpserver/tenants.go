package httpserver

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/auth_service/internal/models"
	"github.com/Skotchmaster/auth_service/internal/transport"
)

type TenantService interface {
	Create(ctx context.Context, name, address string) (uint, error)
	List(ctx context.Context) ([]models.Tenant, error)
}

type TenantsHTTP struct {
	Svc TenantService
}

func (h *TenantsHTTP) Create(c echo.Context) error {
	var req transport.CreateTenantRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	id, err := h.Svc.Create(c.Request().Context(), req.Name, req.Address)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, transport.IDResponse{ID: id})
}

func (h *TenantsHTTP) List(c echo.Context) error {
	tenants, err := h.Svc.List(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, tenants)
}
