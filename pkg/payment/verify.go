package payment

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"homerent/app/models/payment"
	"homerent/pkg/logger"
	"homerent/pkg/payment/types"
)

// VerifyRequest 收银台回调参数
type VerifyRequest struct {
	PaymentID        string
	GatewayPaymentID string
	GatewayOrderID   string
	Signature        string
}

// VerifyResult 验签结果。Reconciling 表示验签未通过，账单保持待支付并等待对账
type VerifyResult struct {
	Payment     *payment.Payment `json:"payment"`
	Verified    bool             `json:"verified"`
	Reconciling bool             `json:"reconciling"`
}

// Verify 服务端校验回调签名。成功则标记已支付；失败时不会把账单置为 failed，
// 网关侧可能已经扣款，账单保持原状态并标记待对账
func (s *Service) Verify(ctx context.Context, req VerifyRequest) (*VerifyResult, error) {
	errs := url.Values{}
	if req.GatewayPaymentID == "" {
		errs.Add("gateway_payment_id", "gateway_payment_id is required")
	}
	if req.GatewayOrderID == "" {
		errs.Add("gateway_order_id", "gateway_order_id is required")
	}
	if len(errs) > 0 {
		return nil, &ValidationError{Errors: errs}
	}

	p, err := s.Get(ctx, req.PaymentID)
	if err != nil {
		return nil, err
	}

	if p.IsPaid() {
		if p.GatewayPaymentID == req.GatewayPaymentID {
			return &VerifyResult{Payment: p, Verified: true}, nil
		}
		logger.WarnString("Payment", "Verify", fmt.Sprintf("%s already paid by %s, got %s, possible double charge", p.ID, p.GatewayPaymentID, req.GatewayPaymentID))
		return nil, fmt.Errorf("%w: payment %s already paid", ErrInvalidState, p.ID)
	}
	if !p.IsOpen() {
		return nil, fmt.Errorf("%w: verify requires pending or overdue, got %s", ErrInvalidState, p.Status)
	}

	if p.GatewayOrderID == "" {
		// 回调参数不可信，只有查单确认订单属于该账单后才记录订单号
		order, err := s.gateway.FetchOrder(ctx, req.GatewayOrderID)
		if err != nil {
			return s.flagForReconcile(ctx, p, fmt.Errorf("fetch callback order %s: %w", req.GatewayOrderID, err))
		}
		if err := checkOrder(p, order); err != nil {
			return s.flagForReconcile(ctx, p, err)
		}
		p.GatewayOrderID = order.ID
		p.Provider = string(s.gateway.Provider())
		ok, err := s.save(ctx, p, p.Status, openStatuses, map[string]interface{}{
			"gateway_order_id": p.GatewayOrderID,
			"provider":         p.Provider,
		})
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("%w: payment %s changed to %s during verify", ErrInvalidState, p.ID, p.Status)
		}
	} else if p.GatewayOrderID != req.GatewayOrderID {
		return s.flagForReconcile(ctx, p, fmt.Errorf("order id mismatch: stored %s, callback %s", p.GatewayOrderID, req.GatewayOrderID))
	}

	if err := s.gateway.VerifySignature(req.GatewayOrderID, req.GatewayPaymentID, req.Signature); err != nil {
		if errors.Is(err, types.ErrSignatureUnsupported) {
			return s.verifyBySync(ctx, p, err)
		}
		return s.flagForReconcile(ctx, p, err)
	}

	previous := p.Status
	now := s.now()
	p.Status = payment.StatusPaid
	p.PaidAt = &now
	p.GatewayPaymentID = req.GatewayPaymentID
	p.GatewaySignature = req.Signature
	p.NeedsReconcile = false
	p.ReconcileReason = ""
	ok, err := s.save(ctx, p, previous, openStatuses, map[string]interface{}{
		"status":             p.Status,
		"paid_at":            p.PaidAt,
		"gateway_payment_id": p.GatewayPaymentID,
		"gateway_signature":  p.GatewaySignature,
		"needs_reconcile":    false,
		"reconcile_reason":   "",
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		// 并发的对账已先一步把账单推进到终态
		if p.IsPaid() && p.GatewayPaymentID == req.GatewayPaymentID {
			return &VerifyResult{Payment: p, Verified: true}, nil
		}
		return nil, fmt.Errorf("%w: payment %s changed to %s during verify", ErrInvalidState, p.ID, p.Status)
	}

	logger.InfoString("Payment", "Verify", "paid "+p.ID)
	return &VerifyResult{Payment: p, Verified: true}, nil
}

// verifyBySync 网关不支持回调签名时直接查单
func (s *Service) verifyBySync(ctx context.Context, p *payment.Payment, cause error) (*VerifyResult, error) {
	if _, err := s.syncPayment(ctx, p); err != nil {
		return s.flagForReconcile(ctx, p, errors.Join(cause, err))
	}
	if p.IsPaid() {
		return &VerifyResult{Payment: p, Verified: true}, nil
	}
	if p.IsFailed() {
		return &VerifyResult{Payment: p}, fmt.Errorf("%w: gateway closed order %s", ErrInvalidState, p.GatewayOrderID)
	}
	return s.flagForReconcile(ctx, p, cause)
}

// flagForReconcile 标记待对账并投递对账任务，账单状态保持不变
func (s *Service) flagForReconcile(ctx context.Context, p *payment.Payment, cause error) (*VerifyResult, error) {
	if err := s.markReconcile(ctx, p, cause); err != nil {
		return nil, err
	}
	if !p.IsOpen() {
		return &VerifyResult{Payment: p}, fmt.Errorf("%w: payment %s changed to %s during verify", ErrInvalidState, p.ID, p.Status)
	}

	// 没有网关订单的账单无从查单
	if s.queue != nil && p.HasGatewayOrder() {
		logger.LogIf(s.queue.EnqueueSync(ctx, p.ID, p.ReconcileReason))
	}
	return &VerifyResult{Payment: p, Reconciling: true}, fmt.Errorf("%w: %w", ErrSignatureMismatch, cause)
}

// markReconcile 只写待对账标记，不改状态；账单已离开 pending / overdue 时不写入
func (s *Service) markReconcile(ctx context.Context, p *payment.Payment, cause error) error {
	reason := cause.Error()
	if len(reason) > 255 {
		reason = reason[:255]
	}
	p.NeedsReconcile = true
	p.ReconcileReason = reason
	ok, err := s.save(ctx, p, p.Status, openStatuses, map[string]interface{}{
		"needs_reconcile":  true,
		"reconcile_reason": reason,
	})
	if err != nil {
		return err
	}
	if ok {
		logger.WarnString("Payment", "Reconcile", fmt.Sprintf("%s flagged for reconcile: %s", p.ID, reason))
	}
	return nil
}
