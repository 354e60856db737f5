package repository

import (
	"context"

	"github.com/proteus100/acme-training/internal/models"
	"gorm.io/gorm"
)

type TenantRepository interface {
	FindByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Tenant, error)
	Save(ctx context.Context, tx *gorm.DB, tenant *models.Tenant) error
}

type tenantRepository struct {
	db *gorm.DB
}

func NewTenantRepository(db *gorm.DB) TenantRepository {
	return &tenantRepository{db: db}
}

func (r *tenantRepository) FindByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Tenant, error) {
	var tenant models.Tenant
	if err := tx.WithContext(ctx).First(&tenant, id).Error; err != nil {
		return nil, err
	}
	return &tenant, nil
}

func (r *tenantRepository) Save(ctx context.Context, tx *gorm.DB, tenant *models.Tenant) error {
	return tx.WithContext(ctx).Save(tenant).Error
}
