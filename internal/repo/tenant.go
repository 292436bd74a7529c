package repo

import (
	"context"

	"github.com/Skotchmaster/auth_service/internal/models"
)

func (r *GormRepo) CreateTenant(ctx context.Context, t *models.Tenant) error {
	return r.DB.WithContext(ctx).Create(t).Error
}

func (r *GormRepo) FindTenantByID(ctx context.Context, id uint) (*models.Tenant, error) {
	var tenant models.Tenant
	if err := r.DB.WithContext(ctx).First(&tenant, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &tenant, nil
}

func (r *GormRepo) ListTenants(ctx context.Context) ([]models.Tenant, error) {
	var tenants []models.Tenant
	if err := r.DB.WithContext(ctx).Order("id").Find(&tenants).Error; err != nil {
		return nil, err
	}
	return tenants, nil
}
