package service

import (
	"context"
	"strings"

	"github.com/Skotchmaster/auth_service/internal/logging"
	"github.com/Skotchmaster/auth_service/internal/models"
)

type TenantStore interface {
	CreateTenant(ctx context.Context, t *models.Tenant) error
	ListTenants(ctx context.Context) ([]models.Tenant, error)
}

type TenantService struct {
	Tenants TenantStore
}

func (s *TenantService) Create(ctx context.Context, name, address string) (uint, error) {
	name, address = strings.TrimSpace(name), strings.TrimSpace(address)

	var v validator
	v.required("name", name, "Tenant name is required")
	v.maxLen("name", name, maxTenantName, "Tenant name must be at most 100 characters")
	v.required("address", address, "Tenant address is required")
	v.maxLen("address", address, maxAddress, "Tenant address must be at most 255 characters")
	if err := v.err(); err != nil {
		return 0, err
	}

	tenant := &models.Tenant{Name: name, Address: address}
	if err := s.Tenants.CreateTenant(ctx, tenant); err != nil {
		logging.FromContext(ctx).Error("create_tenant_failed", "status", 500, "error", err)
		return 0, err
	}
	logging.FromContext(ctx).Info("tenant_created", "tenant_id", tenant.ID)
	return tenant.ID, nil
}

func (s *TenantService) List(ctx context.Context) ([]models.Tenant, error) {
	return s.Tenants.ListTenants(ctx)
}
