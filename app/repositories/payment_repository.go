package repositories

import (
	"context"
	"time"

	"gorm.io/gorm"

	"homerent/app/models/payment"
)

// PaymentRepository 账单记录仓库
type PaymentRepository struct {
	db *gorm.DB
}

var openStatuses = []payment.Status{payment.StatusPending, payment.StatusOverdue}

// NewPaymentRepository 创建仓库实例
func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{
		db: db,
	}
}

// Create 创建账单记录
func (r *PaymentRepository) Create(ctx context.Context, p *payment.Payment) error {
	return r.db.WithContext(ctx).Create(p).Error
}

// UpdateFields 仅当账单当前状态属于 expected 时写入 fields，返回是否命中
func (r *PaymentRepository) UpdateFields(ctx context.Context, id string, expected []payment.Status, fields map[string]interface{}) (bool, error) {
	result := r.db.WithContext(ctx).Model(&payment.Payment{}).
		Where("id = ? AND status IN ?", id, expected).
		Updates(fields)
	return result.RowsAffected > 0, result.Error
}

// GetByID 根据 ID 获取账单
func (r *PaymentRepository) GetByID(ctx context.Context, id string) (*payment.Payment, error) {
	var p payment.Payment
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListByTenant 分页获取租客的账单，按账期倒序
func (r *PaymentRepository) ListByTenant(ctx context.Context, tenantID string, page, pageSize int) ([]payment.Payment, int64, error) {
	var payments []payment.Payment
	var total int64

	query := r.db.WithContext(ctx).Model(&payment.Payment{}).Where("tenant_id = ?", tenantID)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Order("period DESC").Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&payments).Error

	return payments, total, err
}

// SummaryByTenant 按状态汇总租客账单
func (r *PaymentRepository) SummaryByTenant(ctx context.Context, tenantID string) ([]payment.StatusTotal, error) {
	var totals []payment.StatusTotal
	err := r.db.WithContext(ctx).Model(&payment.Payment{}).
		Select("status, COUNT(*) AS count, COALESCE(SUM(amount + late_fee), 0) AS amount").
		Where("tenant_id = ?", tenantID).
		Group("status").
		Scan(&totals).Error
	return totals, err
}

// ownedBy 限定为房东名下房源的账单，ownerID 为空时不限定
func ownedBy(ownerID string) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if ownerID == "" {
			return db
		}
		return db.Joins("JOIN properties ON properties.id = payments.property_id").
			Where("properties.owner_id = ?", ownerID)
	}
}

// ListSyncable 已在网关下单、仍待支付或逾期的账单，ownerID 非空时只取该房东名下
func (r *PaymentRepository) ListSyncable(ctx context.Context, ownerID string) ([]payment.Payment, error) {
	var payments []payment.Payment
	err := r.db.WithContext(ctx).Model(&payment.Payment{}).
		Scopes(ownedBy(ownerID)).
		Where("payments.status IN ?", openStatuses).
		Where("payments.gateway_order_id <> ''").
		Order("payments.created_at ASC").
		Find(&payments).Error
	return payments, err
}

// ListPendingDueBefore 到期日早于 before 且仍待支付的账单
func (r *PaymentRepository) ListPendingDueBefore(ctx context.Context, before time.Time) ([]payment.Payment, error) {
	var payments []payment.Payment
	err := r.db.WithContext(ctx).
		Where("status = ?", payment.StatusPending).
		Where("due_date < ?", before).
		Find(&payments).Error
	return payments, err
}

// ListOpenByOwner 房东名下所有待支付或逾期的账单
func (r *PaymentRepository) ListOpenByOwner(ctx context.Context, ownerID string) ([]payment.Payment, error) {
	var payments []payment.Payment
	err := r.db.WithContext(ctx).Model(&payment.Payment{}).
		Scopes(ownedBy(ownerID)).
		Where("payments.status IN ?", openStatuses).
		Order("payments.due_date ASC").
		Find(&payments).Error
	return payments, err
}

// FindDuplicateGroups 查找存在重复非失败账单的分组，ownerID 非空时只统计该房东名下
func (r *PaymentRepository) FindDuplicateGroups(ctx context.Context, ownerID string) ([]payment.DuplicateGroup, error) {
	var groups []payment.DuplicateGroup
	err := r.db.WithContext(ctx).Model(&payment.Payment{}).
		Scopes(ownedBy(ownerID)).
		Select("payments.tenant_id, payments.type, payments.period, COUNT(*) AS total").
		Where("payments.status <> ?", payment.StatusFailed).
		Group("payments.tenant_id, payments.type, payments.period").
		Having("COUNT(*) > 1").
		Scan(&groups).Error
	return groups, err
}

// ListGroup 获取同一分组下的所有非失败账单
func (r *PaymentRepository) ListGroup(ctx context.Context, ownerID string, g payment.DuplicateGroup) ([]payment.Payment, error) {
	var payments []payment.Payment
	err := r.db.WithContext(ctx).Model(&payment.Payment{}).
		Scopes(ownedBy(ownerID)).
		Where("payments.tenant_id = ? AND payments.type = ? AND payments.period = ?", g.TenantID, g.Type, g.Period).
		Where("payments.status <> ?", payment.StatusFailed).
		Find(&payments).Error
	return payments, err
}

// Delete 软删除账单
func (r *PaymentRepository) Delete(ctx context.Context, ids ...string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).Where("id IN ?", ids).Delete(&payment.Payment{})
	return result.RowsAffected, result.Error
}
