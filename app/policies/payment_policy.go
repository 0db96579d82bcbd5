// Package policies 用户授权
package policies

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"homerent/app/models/payment"
	"homerent/app/models/user"
	"homerent/app/repositories"
	"homerent/pkg/events"
)

// PaymentPolicy 房东可以访问自己房产下的账单，租客只能访问自己的账单
type PaymentPolicy struct {
	tenants    *repositories.TenantRepository
	properties *repositories.PropertyRepository
}

// NewPaymentPolicy 创建
func NewPaymentPolicy(db *gorm.DB) *PaymentPolicy {
	return &PaymentPolicy{
		tenants:    repositories.NewTenantRepository(db),
		properties: repositories.NewPropertyRepository(db),
	}
}

// CanManageProperty 房东是否拥有该房产
func (p *PaymentPolicy) CanManageProperty(ctx context.Context, userID string, role user.Role, propertyID string) (bool, error) {
	if userID == "" || role != user.RoleOwner {
		return false, nil
	}
	return p.properties.OwnedBy(ctx, propertyID, userID)
}

// CanViewTenant 是否可以查看该租客的账单
func (p *PaymentPolicy) CanViewTenant(ctx context.Context, userID string, role user.Role, tenantID string) (bool, error) {
	if userID == "" {
		return false, nil
	}
	t, err := p.tenants.GetByID(ctx, tenantID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	if role == user.RoleOwner {
		return p.properties.OwnedBy(ctx, t.PropertyID, userID)
	}
	return t.UserID == userID, nil
}

// CanAccessPayment 是否可以查看、支付或同步该账单
func (p *PaymentPolicy) CanAccessPayment(ctx context.Context, userID string, role user.Role, pay *payment.Payment) (bool, error) {
	if role == user.RoleOwner {
		return p.CanManageProperty(ctx, userID, role, pay.PropertyID)
	}
	return p.CanViewTenant(ctx, userID, role, pay.TenantID)
}

// StreamFilter 实时推送的事件过滤器，房东订阅名下所有房产，租客订阅自己的账单
func (p *PaymentPolicy) StreamFilter(ctx context.Context, userID string, role user.Role) (events.Filter, error) {
	if role == user.RoleOwner {
		ids, err := p.properties.IDsByOwner(ctx, userID)
		if err != nil {
			return nil, err
		}
		return events.ByProperties(ids...), nil
	}
	t, err := p.tenants.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return events.ByTenant(t.ID), nil
}
