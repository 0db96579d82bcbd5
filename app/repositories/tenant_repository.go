package repositories

import (
	"context"

	"gorm.io/gorm"

	"homerent/app/models/tenant"
)

// TenantRepository 租客仓库
type TenantRepository struct {
	db *gorm.DB
}

// NewTenantRepository 创建仓库实例
func NewTenantRepository(db *gorm.DB) *TenantRepository {
	return &TenantRepository{
		db: db,
	}
}

// Create 创建租客
func (r *TenantRepository) Create(ctx context.Context, t *tenant.Tenant) error {
	return r.db.WithContext(ctx).Create(t).Error
}

// GetByID 根据 ID 获取租客
func (r *TenantRepository) GetByID(ctx context.Context, id string) (*tenant.Tenant, error) {
	var t tenant.Tenant
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&t).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

// GetByUserID 根据用户账号获取租客档案
func (r *TenantRepository) GetByUserID(ctx context.Context, userID string) (*tenant.Tenant, error) {
	var t tenant.Tenant
	if err := r.db.WithContext(ctx).Where("user_id = ? AND active = ?", userID, true).First(&t).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

// ListByIDs 批量获取租客
func (r *TenantRepository) ListByIDs(ctx context.Context, ids []string) ([]tenant.Tenant, error) {
	var tenants []tenant.Tenant
	if len(ids) == 0 {
		return tenants, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&tenants).Error
	return tenants, err
}
