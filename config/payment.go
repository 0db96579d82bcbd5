package config

import (
	"time"

	"homerent/pkg/config"
)

// PaymentConfig 支付配置
type PaymentConfig struct {
	Provider        string
	Currency        string
	CheckoutLockTTL time.Duration
	Hosted          HostedConfig
	Wechat          WechatConfig
	Alipay          AlipayConfig
}

// HostedConfig 托管收银台网关配置，密钥只保存在服务端
type HostedConfig struct {
	BaseURL   string
	KeyID     string
	KeySecret string
	Timeout   time.Duration
}

// WechatConfig 微信支付配置
type WechatConfig struct {
	AppID      string
	MchID      string
	SerialNo   string
	PrivateKey string
	APIv3Key   string
	NotifyURL  string
	ReturnURL  string
}

// AlipayConfig 支付宝配置
type AlipayConfig struct {
	AppID        string
	PrivateKey   string
	PublicKey    string
	NotifyURL    string
	ReturnURL    string
	IsProduction bool
}

func init() {
	config.Add("payment", func() map[string]interface{} {
		return map[string]interface{}{
			// 使用的支付网关：hosted, alipay, wechat
			"provider": config.Env("PAYMENT_PROVIDER", "hosted"),
			"currency": config.Env("PAYMENT_CURRENCY", "INR"),

			// 同一笔账单发起收银台的互斥锁时长（秒）
			"checkout_lock_ttl": config.Env("PAYMENT_CHECKOUT_LOCK_TTL", 30),

			"hosted": map[string]interface{}{
				"base_url":   config.Env("PAYMENT_HOSTED_BASE_URL", "https://api.razorpay.com"),
				"key_id":     config.Env("PAYMENT_HOSTED_KEY_ID", ""),
				"key_secret": config.Env("PAYMENT_HOSTED_KEY_SECRET", ""),
				"timeout":    config.Env("PAYMENT_HOSTED_TIMEOUT", 15),
			},

			"alipay": map[string]interface{}{
				"app_id":        config.Env("ALIPAY_APP_ID", ""),
				"private_key":   config.Env("ALIPAY_PRIVATE_KEY", ""),
				"public_key":    config.Env("ALIPAY_PUBLIC_KEY", ""),
				"notify_url":    config.Env("ALIPAY_NOTIFY_URL", ""),
				"return_url":    config.Env("ALIPAY_RETURN_URL", ""),
				"is_production": config.Env("ALIPAY_PRODUCTION", false),
			},

			"wechat": map[string]interface{}{
				"app_id":      config.Env("WECHAT_APP_ID", ""),
				"mch_id":      config.Env("WECHAT_MCH_ID", ""),
				"serial_no":   config.Env("WECHAT_SERIAL_NO", ""),
				"private_key": config.Env("WECHAT_PRIVATE_KEY", ""),
				"api_v3_key":  config.Env("WECHAT_API_V3_KEY", ""),
				"notify_url":  config.Env("WECHAT_NOTIFY_URL", ""),
				"return_url":  config.Env("WECHAT_RETURN_URL", ""),
			},
		}
	})
}

// LoadPaymentConfig 从已加载的配置中组装支付配置
func LoadPaymentConfig() PaymentConfig {
	return PaymentConfig{
		Provider:        config.GetString("payment.provider"),
		Currency:        config.GetString("payment.currency"),
		CheckoutLockTTL: time.Duration(config.GetInt("payment.checkout_lock_ttl", 30)) * time.Second,
		Hosted: HostedConfig{
			BaseURL:   config.GetString("payment.hosted.base_url"),
			KeyID:     config.GetString("payment.hosted.key_id"),
			KeySecret: config.GetString("payment.hosted.key_secret"),
			Timeout:   time.Duration(config.GetInt("payment.hosted.timeout", 15)) * time.Second,
		},
		Alipay: AlipayConfig{
			AppID:        config.GetString("payment.alipay.app_id"),
			PrivateKey:   config.GetString("payment.alipay.private_key"),
			PublicKey:    config.GetString("payment.alipay.public_key"),
			NotifyURL:    config.GetString("payment.alipay.notify_url"),
			ReturnURL:    config.GetString("payment.alipay.return_url"),
			IsProduction: config.GetBool("payment.alipay.is_production"),
		},
		Wechat: WechatConfig{
			AppID:      config.GetString("payment.wechat.app_id"),
			MchID:      config.GetString("payment.wechat.mch_id"),
			SerialNo:   config.GetString("payment.wechat.serial_no"),
			PrivateKey: config.GetString("payment.wechat.private_key"),
			APIv3Key:   config.GetString("payment.wechat.api_v3_key"),
			NotifyURL:  config.GetString("payment.wechat.notify_url"),
			ReturnURL:  config.GetString("payment.wechat.return_url"),
		},
	}
}
