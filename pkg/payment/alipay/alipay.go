// Package alipay 支付宝电脑网站支付网关
package alipay

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/smartwalle/alipay/v3"

	"homerent/config"
	"homerent/pkg/payment/types"
	"homerent/pkg/payment/utils"
)

const orderTimeout = 30 * time.Minute

// Gateway 支付宝网关，订单号即商户订单号 out_trade_no
type Gateway struct {
	client    *alipay.Client
	notifyURL string
	returnURL string
}

// New 创建支付宝网关
func New(cfg config.AlipayConfig) (*Gateway, error) {
	client, err := alipay.New(cfg.AppID, cfg.PrivateKey, cfg.IsProduction)
	if err != nil {
		return nil, fmt.Errorf("create alipay client error: %w", err)
	}

	if err := client.LoadAliPayPublicKey(cfg.PublicKey); err != nil {
		return nil, fmt.Errorf("load alipay public key error: %w", err)
	}

	return &Gateway{
		client:    client,
		notifyURL: cfg.NotifyURL,
		returnURL: cfg.ReturnURL,
	}, nil
}

// Provider 网关类型
func (g *Gateway) Provider() types.Provider {
	return types.ProviderAlipay
}

// CreateOrder 生成收银台跳转地址
func (g *Gateway) CreateOrder(ctx context.Context, req types.OrderRequest) (*types.Order, error) {
	outTradeNo := utils.OutTradeNo(req.Receipt)

	trade := alipay.TradePagePay{}
	trade.NotifyURL = g.notifyURL
	trade.ReturnURL = g.returnURL
	trade.Subject = req.Description
	trade.OutTradeNo = outTradeNo
	trade.TotalAmount = utils.FormatYuan(req.Amount)
	trade.ProductCode = "FAST_INSTANT_TRADE_PAY"
	trade.TimeoutExpress = "30m"

	payURL, err := g.client.TradePagePay(trade)
	if err != nil {
		return nil, fmt.Errorf("create alipay payment error: %w", err)
	}

	return &types.Order{
		ID:          outTradeNo,
		Receipt:     req.Receipt,
		Amount:      req.Amount,
		Currency:    req.Currency,
		Status:      types.OrderCreated,
		CheckoutURL: payURL.String(),
		ExpireAt:    time.Now().Add(orderTimeout),
	}, nil
}

// FetchOrder 查询交易状态
func (g *Gateway) FetchOrder(ctx context.Context, orderID string) (*types.Order, error) {
	rsp, err := g.client.TradeQuery(ctx, alipay.TradeQuery{OutTradeNo: orderID})
	if err != nil {
		return nil, fmt.Errorf("alipay trade query %s: %w", orderID, err)
	}
	if rsp.IsFailure() {
		if rsp.SubCode == "ACQ.TRADE_NOT_EXIST" {
			return nil, fmt.Errorf("alipay trade query %s: %w", orderID, types.ErrOrderNotFound)
		}
		return nil, fmt.Errorf("alipay trade query %s: %s %s", orderID, rsp.SubCode, rsp.SubMsg)
	}

	order := &types.Order{
		ID:        orderID,
		PaymentID: rsp.TradeNo,
	}
	if amount, err := utils.ParseYuan(rsp.TotalAmount); err == nil {
		order.Amount = amount
	}
	switch rsp.TradeStatus {
	case alipay.TradeStatusSuccess, alipay.TradeStatusFinished:
		order.Status = types.OrderPaid
	case alipay.TradeStatusClosed:
		order.Status = types.OrderExpired
	default:
		order.Status = types.OrderCreated
	}
	return order, nil
}

// VerifySignature 支付宝同步回跳不带可校验的签名，结果以查单为准
func (g *Gateway) VerifySignature(orderID, paymentID, signature string) error {
	return errors.Join(types.ErrSignatureUnsupported, fmt.Errorf("alipay order %s", orderID))
}
