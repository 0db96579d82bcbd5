// Package wechat 微信支付 JSAPI 网关
package wechat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wechatpay-apiv3/wechatpay-go/core"
	"github.com/wechatpay-apiv3/wechatpay-go/core/option"
	"github.com/wechatpay-apiv3/wechatpay-go/services/payments/jsapi"
	wxutils "github.com/wechatpay-apiv3/wechatpay-go/utils"

	"homerent/config"
	"homerent/pkg/payment/types"
	"homerent/pkg/payment/utils"
)

const orderTimeout = 30 * time.Minute

// Gateway 微信支付网关，订单号为商户订单号 out_trade_no
type Gateway struct {
	client    *core.Client
	appID     string
	mchID     string
	notifyURL string
}

// New 创建微信支付网关
func New(cfg config.WechatConfig) (*Gateway, error) {
	// 1. 加载商户私钥
	mchPrivateKey, err := wxutils.LoadPrivateKey(cfg.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("load merchant private key error: %w", err)
	}

	// 2. 自动下载平台证书并校验应答签名
	opts := []core.ClientOption{
		option.WithWechatPayAutoAuthCipher(
			cfg.MchID,
			cfg.SerialNo,
			mchPrivateKey,
			cfg.APIv3Key,
		),
	}

	client, err := core.NewClient(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("create wechat pay client error: %w", err)
	}

	return &Gateway{
		client:    client,
		appID:     cfg.AppID,
		mchID:     cfg.MchID,
		notifyURL: cfg.NotifyURL,
	}, nil
}

// Provider 网关类型
func (g *Gateway) Provider() types.Provider {
	return types.ProviderWechat
}

// CreateOrder 预下单并返回小程序 / 公众号调起支付所需的参数
func (g *Gateway) CreateOrder(ctx context.Context, req types.OrderRequest) (*types.Order, error) {
	outTradeNo := utils.OutTradeNo(req.Receipt)
	expireAt := time.Now().Add(orderTimeout)

	svc := jsapi.JsapiApiService{Client: g.client}
	resp, result, err := svc.PrepayWithRequestPayment(ctx, jsapi.PrepayRequest{
		Appid:       core.String(g.appID),
		Mchid:       core.String(g.mchID),
		Description: core.String(req.Description),
		OutTradeNo:  core.String(outTradeNo),
		TimeExpire:  core.Time(expireAt),
		NotifyUrl:   core.String(g.notifyURL),
		Amount: &jsapi.Amount{
			Total:    core.Int64(req.Amount),
			Currency: core.String(req.Currency),
		},
		Payer: &jsapi.Payer{
			Openid: core.String(req.Notes["openid"]),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create wechat payment error: %w", err)
	}
	if result != nil && result.Response.StatusCode != 200 {
		return nil, fmt.Errorf("create wechat payment failed with status code: %d", result.Response.StatusCode)
	}

	return &types.Order{
		ID:       outTradeNo,
		Receipt:  req.Receipt,
		Amount:   req.Amount,
		Currency: req.Currency,
		Status:   types.OrderCreated,
		ExpireAt: expireAt,
		Extra: map[string]interface{}{
			"appId":     core.StringValue(resp.Appid),
			"timeStamp": core.StringValue(resp.TimeStamp),
			"nonceStr":  core.StringValue(resp.NonceStr),
			"package":   core.StringValue(resp.Package),
			"signType":  core.StringValue(resp.SignType),
			"paySign":   core.StringValue(resp.PaySign),
		},
	}, nil
}

// FetchOrder 按商户订单号查单
func (g *Gateway) FetchOrder(ctx context.Context, orderID string) (*types.Order, error) {
	svc := jsapi.JsapiApiService{Client: g.client}
	tx, _, err := svc.QueryOrderByOutTradeNo(ctx, jsapi.QueryOrderByOutTradeNoRequest{
		OutTradeNo: core.String(orderID),
		Mchid:      core.String(g.mchID),
	})
	if err != nil {
		if core.IsAPIError(err, "ORDER_NOT_EXIST") {
			return nil, fmt.Errorf("wechat query order %s: %w", orderID, types.ErrOrderNotFound)
		}
		return nil, fmt.Errorf("wechat query order %s: %w", orderID, err)
	}

	order := &types.Order{
		ID:        orderID,
		PaymentID: core.StringValue(tx.TransactionId),
	}
	if tx.Amount != nil && tx.Amount.Total != nil {
		order.Amount = *tx.Amount.Total
	}
	switch core.StringValue(tx.TradeState) {
	case "SUCCESS":
		order.Status = types.OrderPaid
	case "CLOSED", "REVOKED":
		order.Status = types.OrderExpired
	case "PAYERROR":
		order.Status = types.OrderFailed
	case "USERPAYING":
		order.Status = types.OrderAttempted
	default:
		order.Status = types.OrderCreated
	}
	return order, nil
}

// VerifySignature 前端 requestPayment 回调没有签名，支付结果以查单为准
func (g *Gateway) VerifySignature(orderID, paymentID, signature string) error {
	return errors.Join(types.ErrSignatureUnsupported, fmt.Errorf("wechat order %s", orderID))
}
