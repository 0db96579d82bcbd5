package repositories

import (
	"context"

	"gorm.io/gorm"

	"homerent/app/models/property"
)

// PropertyRepository 房源仓库
type PropertyRepository struct {
	db *gorm.DB
}

// NewPropertyRepository 创建仓库实例
func NewPropertyRepository(db *gorm.DB) *PropertyRepository {
	return &PropertyRepository{
		db: db,
	}
}

// Create 创建房源
func (r *PropertyRepository) Create(ctx context.Context, p *property.Property) error {
	return r.db.WithContext(ctx).Create(p).Error
}

// IDsByOwner 房东名下所有房源 ID
func (r *PropertyRepository) IDsByOwner(ctx context.Context, ownerID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&property.Property{}).
		Where("owner_id = ?", ownerID).
		Pluck("id", &ids).Error
	return ids, err
}

// OwnedBy 房源是否属于该房东
func (r *PropertyRepository) OwnedBy(ctx context.Context, propertyID, ownerID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&property.Property{}).
		Where("id = ? AND owner_id = ?", propertyID, ownerID).
		Count(&count).Error
	return count > 0, err
}
