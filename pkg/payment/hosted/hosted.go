// Package hosted 对接托管收银台网关的 REST 接口
package hosted

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"homerent/config"
	"homerent/pkg/logger"
	"homerent/pkg/payment/types"
	"homerent/pkg/payment/utils"
)

// Gateway 托管收银台网关客户端
type Gateway struct {
	client    *resty.Client
	keyID     string
	keySecret string
}

type orderBody struct {
	ID       string            `json:"id"`
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Status   string            `json:"status"`
	Notes    map[string]string `json:"notes,omitempty"`
	ExpireAt int64             `json:"expire_at,omitempty"`
}

type paymentBody struct {
	ID      string `json:"id"`
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
}

type paymentList struct {
	Count int           `json:"count"`
	Items []paymentBody `json:"items"`
}

type errorBody struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

// New 创建网关客户端，5xx 与网络错误自动重试
func New(cfg config.HostedConfig) (*Gateway, error) {
	if cfg.BaseURL == "" || cfg.KeyID == "" || cfg.KeySecret == "" {
		return nil, fmt.Errorf("hosted gateway: base url, key id and key secret are required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetBasicAuth(cfg.KeyID, cfg.KeySecret).
		SetHeader("Content-Type", "application/json").
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(3 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= http.StatusInternalServerError
		})

	return &Gateway{
		client:    client,
		keyID:     cfg.KeyID,
		keySecret: cfg.KeySecret,
	}, nil
}

// Provider 网关类型
func (g *Gateway) Provider() types.Provider {
	return types.ProviderHosted
}

// KeyID 公开的 key id，客户端拉起收银台时使用
func (g *Gateway) KeyID() string {
	return g.keyID
}

// CreateOrder 下单，receipt 相同的订单由网关去重
func (g *Gateway) CreateOrder(ctx context.Context, req types.OrderRequest) (*types.Order, error) {
	var body orderBody
	var apiErr errorBody

	resp, err := g.client.R().
		SetContext(ctx).
		SetBody(map[string]interface{}{
			"amount":   req.Amount,
			"currency": req.Currency,
			"receipt":  req.Receipt,
			"notes":    req.Notes,
		}).
		SetResult(&body).
		SetError(&apiErr).
		Post("/v1/orders")
	if err != nil {
		return nil, fmt.Errorf("hosted create order: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("hosted create order: status %d %s", resp.StatusCode(), apiErr.Error.Description)
	}

	logger.DebugString("Payment", "HostedCreateOrder", body.ID)
	return toOrder(body), nil
}

// FetchOrder 查询订单以及其下成功的支付
func (g *Gateway) FetchOrder(ctx context.Context, orderID string) (*types.Order, error) {
	var body orderBody
	var apiErr errorBody

	resp, err := g.client.R().
		SetContext(ctx).
		SetPathParam("id", orderID).
		SetResult(&body).
		SetError(&apiErr).
		Get("/v1/orders/{id}")
	if err != nil {
		return nil, fmt.Errorf("hosted fetch order %s: %w", orderID, err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, fmt.Errorf("hosted fetch order %s: %w", orderID, types.ErrOrderNotFound)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("hosted fetch order %s: status %d %s", orderID, resp.StatusCode(), apiErr.Error.Description)
	}

	order := toOrder(body)
	if order.Status == types.OrderPaid || order.Status == types.OrderAttempted {
		captured, err := g.capturedPayment(ctx, orderID)
		if err != nil {
			return nil, err
		}
		if captured != "" {
			order.Status = types.OrderPaid
			order.PaymentID = captured
		}
	}
	return order, nil
}

// VerifySignature 校验收银台回调签名
func (g *Gateway) VerifySignature(orderID, paymentID, signature string) error {
	if !utils.VerifyOrderPayment(g.keySecret, orderID, paymentID, signature) {
		return types.ErrSignatureInvalid
	}
	return nil
}

func (g *Gateway) capturedPayment(ctx context.Context, orderID string) (string, error) {
	var list paymentList
	resp, err := g.client.R().
		SetContext(ctx).
		SetPathParam("id", orderID).
		SetResult(&list).
		Get("/v1/orders/{id}/payments")
	if err != nil {
		return "", fmt.Errorf("hosted list payments %s: %w", orderID, err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("hosted list payments %s: status %d", orderID, resp.StatusCode())
	}
	for _, item := range list.Items {
		if item.Status == "captured" {
			return item.ID, nil
		}
	}
	return "", nil
}

func toOrder(body orderBody) *types.Order {
	order := &types.Order{
		ID:       body.ID,
		Receipt:  body.Receipt,
		Amount:   body.Amount,
		Currency: body.Currency,
		Status:   types.OrderStatus(body.Status),
	}
	if body.ExpireAt > 0 {
		order.ExpireAt = time.Unix(body.ExpireAt, 0)
	}
	if order.Status == types.OrderCreated && !order.ExpireAt.IsZero() && order.ExpireAt.Before(time.Now()) {
		order.Status = types.OrderExpired
	}
	return order
}
