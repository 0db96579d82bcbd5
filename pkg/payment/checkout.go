package payment

import (
	"context"
	"errors"
	"fmt"

	"homerent/app/models/payment"
	"homerent/pkg/logger"
	"homerent/pkg/payment/types"
)

// Checkout 客户端拉起收银台所需信息
type Checkout struct {
	PaymentID      string                 `json:"payment_id"`
	GatewayOrderID string                 `json:"gateway_order_id"`
	Amount         int64                  `json:"amount"`
	Currency       string                 `json:"currency"`
	KeyID          string                 `json:"key_id,omitempty"`
	Provider       types.Provider         `json:"provider"`
	CheckoutURL    string                 `json:"checkout_url,omitempty"`
	Extra          map[string]interface{} `json:"extra,omitempty"`
	Reused         bool                   `json:"reused"`
}

// CheckoutOption 调整下单参数
type CheckoutOption func(req *types.OrderRequest)

// WithPayer 微信 JSAPI 下单需要付款人 openid
func WithPayer(openID string) CheckoutOption {
	return func(req *types.OrderRequest) {
		if openID != "" {
			req.Notes["openid"] = openID
		}
	}
}

// InitiateCheckout 为账单在网关下单。同一账单重复调用时复用仍有效的订单，
// 网关已收款则改为对账，订单过期则以相同 receipt 重新下单，不会重复扣款
func (s *Service) InitiateCheckout(ctx context.Context, id string, opts ...CheckoutOption) (*Checkout, error) {
	if s.locker != nil {
		key := "checkout:" + id
		ok, err := s.locker.Lock(ctx, key, s.lockTTL)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrCheckoutBusy
		}
		defer func() {
			logger.LogWarnIf(s.locker.Unlock(context.WithoutCancel(ctx), key))
		}()
	}

	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.IsOpen() {
		return nil, fmt.Errorf("%w: checkout requires pending or overdue, got %s", ErrInvalidState, p.Status)
	}

	if p.HasGatewayOrder() {
		order, err := s.gateway.FetchOrder(ctx, p.GatewayOrderID)
		switch {
		case err != nil && !errors.Is(err, types.ErrOrderNotFound):
			return nil, fmt.Errorf("%w: %w", ErrGateway, err)
		case err == nil && order.Status == types.OrderPaid:
			if _, err := s.applyOrder(ctx, p, order); err != nil {
				return nil, err
			}
			logger.WarnString("Payment", "Checkout", "gateway already settled "+p.ID+", synced instead of charging again")
			return nil, fmt.Errorf("%w: payment %s already settled at gateway", ErrInvalidState, p.ID)
		case err == nil && order.Reusable(s.now()) && order.Amount == p.TotalDue():
			return s.checkoutFor(p, order, true), nil
		case err == nil && order.Reusable(s.now()):
			// 下单后加收了滞纳金，旧订单金额不足
			logger.InfoString("Payment", "Checkout", fmt.Sprintf("%s order %s amount %d, due %d", p.ID, order.ID, order.Amount, p.TotalDue()))
		}
		logger.InfoString("Payment", "Checkout", "recreating gateway order for "+p.ID)
	}

	req := types.OrderRequest{
		Receipt:     p.ID,
		Amount:      p.TotalDue(),
		Currency:    p.Currency,
		Description: describe(p),
		Notes: map[string]string{
			"payment_id": p.ID,
			"tenant_id":  p.TenantID,
			"period":     p.Period,
		},
	}
	for _, opt := range opts {
		opt(&req)
	}

	order, err := s.gateway.CreateOrder(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGateway, err)
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
		return nil, fmt.Errorf("%w: payment %s changed to %s during checkout", ErrInvalidState, p.ID, p.Status)
	}
	return s.checkoutFor(p, order, false), nil
}

func (s *Service) checkoutFor(p *payment.Payment, order *types.Order, reused bool) *Checkout {
	return &Checkout{
		PaymentID:      p.ID,
		GatewayOrderID: order.ID,
		Amount:         order.Amount,
		Currency:       p.Currency,
		KeyID:          s.keyID,
		Provider:       s.gateway.Provider(),
		CheckoutURL:    order.CheckoutURL,
		Extra:          order.Extra,
		Reused:         reused,
	}
}

func describe(p *payment.Payment) string {
	if p.Description != "" {
		return p.Description
	}
	if p.Type == payment.TypeSecurityDeposit {
		return "Security deposit " + p.Period
	}
	return "Rent " + p.Period
}
