package payment

import (
	"context"
	"errors"
	"fmt"

	"homerent/app/models/payment"
	"homerent/pkg/logger"
	"homerent/pkg/payment/types"
)

// SyncOutcome 单笔对账结果
type SyncOutcome string

const (
	SyncUpdated   SyncOutcome = "updated"
	SyncUnchanged SyncOutcome = "unchanged"
)

// RecordError 批量操作中单条记录的错误。整组失败时 PaymentID 为空，GroupKey 标识该组
type RecordError struct {
	PaymentID string `json:"payment_id,omitempty"`
	GroupKey  string `json:"group_key,omitempty"`
	Err       error  `json:"-"`
	Message   string `json:"error"`
}

func newRecordError(id string, err error) RecordError {
	return RecordError{PaymentID: id, Err: err, Message: err.Error()}
}

func newGroupError(key string, err error) RecordError {
	return RecordError{GroupKey: key, Err: err, Message: err.Error()}
}

// SyncReport 批量对账汇总
type SyncReport struct {
	Synced  int           `json:"synced"`
	Updated int           `json:"updated"`
	Errors  []RecordError `json:"errors"`
}

// SyncStatus 以网关订单状态为准修正本地账单，网关无变化或账单已是终态时返回 unchanged
func (s *Service) SyncStatus(ctx context.Context, id string) (SyncOutcome, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return SyncUnchanged, err
	}
	return s.syncPayment(ctx, p)
}

// SyncAll 对所有已下单的待支付 / 逾期账单逐笔对账，单笔失败不影响其余记录
func (s *Service) SyncAll(ctx context.Context) (*SyncReport, error) {
	return s.syncAll(ctx, "")
}

// SyncAllForOwner 只对房东名下房源的账单对账
func (s *Service) SyncAllForOwner(ctx context.Context, ownerID string) (*SyncReport, error) {
	if ownerID == "" {
		return nil, &ValidationError{Errors: map[string][]string{"owner_id": {"owner_id is required"}}}
	}
	return s.syncAll(ctx, ownerID)
}

func (s *Service) syncAll(ctx context.Context, ownerID string) (*SyncReport, error) {
	payments, err := s.repo.ListSyncable(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list syncable payments: %w", err)
	}

	report := &SyncReport{Errors: []RecordError{}}
	for i := range payments {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		p := &payments[i]
		outcome, err := s.syncPayment(ctx, p)
		if err != nil {
			logger.WarnString("Payment", "SyncAll", fmt.Sprintf("%s: %v", p.ID, err))
			report.Errors = append(report.Errors, newRecordError(p.ID, err))
			continue
		}
		report.Synced++
		if outcome == SyncUpdated {
			report.Updated++
		}
	}

	logger.InfoString("Payment", "SyncAll", fmt.Sprintf("owner=%q synced=%d updated=%d errors=%d", ownerID, report.Synced, report.Updated, len(report.Errors)))
	return report, nil
}

func (s *Service) syncPayment(ctx context.Context, p *payment.Payment) (SyncOutcome, error) {
	if !p.HasGatewayOrder() {
		return SyncUnchanged, fmt.Errorf("%w: %s has no gateway order", ErrNotSyncable, p.ID)
	}
	// paid / failed 为终态，网关结果不会再改变本地状态
	if !p.IsOpen() {
		return SyncUnchanged, nil
	}

	order, err := s.gateway.FetchOrder(ctx, p.GatewayOrderID)
	if err != nil {
		return SyncUnchanged, fmt.Errorf("%w: %w", ErrGateway, err)
	}

	updated, err := s.applyOrder(ctx, p, order)
	if err != nil {
		return SyncUnchanged, err
	}
	if updated {
		return SyncUpdated, nil
	}
	return SyncUnchanged, nil
}

// applyOrder 把网关订单状态写回账单，返回状态是否变化。
// 已付款订单的 receipt 或金额与账单不符时不置为已支付，改为标记待对账并返回 ErrOrderMismatch
func (s *Service) applyOrder(ctx context.Context, p *payment.Payment, order *types.Order) (bool, error) {
	previous := p.Status
	now := s.now()

	if order.Status == types.OrderPaid {
		if err := checkOrder(p, order); err != nil {
			logger.WarnString("Payment", "Sync", err.Error())
			if err := s.markReconcile(ctx, p, err); err != nil {
				return false, err
			}
			return false, err
		}
	}

	p.LastSyncedAt = &now
	fields := map[string]interface{}{"last_synced_at": p.LastSyncedAt}
	switch order.Status {
	case types.OrderPaid:
		p.Status = payment.StatusPaid
		p.PaidAt = &now
		if order.PaymentID != "" {
			p.GatewayPaymentID = order.PaymentID
		}
		p.NeedsReconcile = false
		p.ReconcileReason = ""
		fields["status"] = p.Status
		fields["paid_at"] = p.PaidAt
		fields["gateway_payment_id"] = p.GatewayPaymentID
		fields["needs_reconcile"] = false
		fields["reconcile_reason"] = ""
	case types.OrderExpired, types.OrderFailed:
		p.Status = payment.StatusFailed
		p.NeedsReconcile = false
		fields["status"] = p.Status
		fields["needs_reconcile"] = false
	}

	ok, err := s.save(ctx, p, previous, openStatuses, fields)
	if err != nil || !ok {
		return false, err
	}
	if p.Status != previous {
		logger.InfoString("Payment", "Sync", fmt.Sprintf("%s %s -> %s", p.ID, previous, p.Status))
		return true, nil
	}
	return false, nil
}

// IsRetryable 网关错误可以稍后重试，其余错误重试无意义
func IsRetryable(err error) bool {
	return errors.Is(err, ErrGateway)
}
