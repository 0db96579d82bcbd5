// Package factory 根据配置创建支付网关
package factory

import (
	"fmt"

	"homerent/config"
	"homerent/pkg/payment/alipay"
	"homerent/pkg/payment/hosted"
	"homerent/pkg/payment/types"
	"homerent/pkg/payment/wechat"
)

// NewGateway 创建支付网关
func NewGateway(provider types.Provider, cfg config.PaymentConfig) (types.Gateway, error) {
	switch provider {
	case types.ProviderHosted:
		return hosted.New(cfg.Hosted)

	case types.ProviderWechat:
		return wechat.New(cfg.Wechat)

	case types.ProviderAlipay:
		return alipay.New(cfg.Alipay)

	default:
		return nil, fmt.Errorf("unsupported payment provider: %s", provider)
	}
}

// PublicKeyID 客户端拉起收银台时需要的公开标识
func PublicKeyID(provider types.Provider, cfg config.PaymentConfig) string {
	switch provider {
	case types.ProviderHosted:
		return cfg.Hosted.KeyID
	case types.ProviderWechat:
		return cfg.Wechat.AppID
	case types.ProviderAlipay:
		return cfg.Alipay.AppID
	}
	return ""
}
