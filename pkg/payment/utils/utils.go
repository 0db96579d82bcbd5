// Package utils 支付网关共用的签名与编号工具
package utils

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// NewPaymentID 生成账单 ID
func NewPaymentID() string {
	return uuid.NewString()
}

// OutTradeNo 把账单 ID 转成网关可接受的商户订单号（去掉连字符，32 位）
func OutTradeNo(paymentID string) string {
	return strings.ReplaceAll(paymentID, "-", "")
}

// GenerateNonceStr 生成随机字符串
func GenerateNonceStr() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return uuid.NewString()
	}
	return hex.EncodeToString(b)
}

// SignOrderPayment 托管收银台的回调签名：HMAC-SHA256(order_id|payment_id)
func SignOrderPayment(secret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(fmt.Sprintf("%s|%s", orderID, paymentID)))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyOrderPayment 常量时间比较签名
func VerifyOrderPayment(secret, orderID, paymentID, signature string) bool {
	expected := SignOrderPayment(secret, orderID, paymentID)
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(signature)))
}

// FormatYuan 分转元，支付宝金额字段使用
func FormatYuan(amount int64) string {
	return fmt.Sprintf("%d.%02d", amount/100, amount%100)
}

// ParseYuan 元转分，接受至多两位小数
func ParseYuan(s string) (int64, error) {
	yuan, fen, found := strings.Cut(strings.TrimSpace(s), ".")
	if yuan == "" || len(fen) > 2 || (found && fen == "") {
		return 0, fmt.Errorf("invalid yuan amount %q", s)
	}
	for len(fen) < 2 {
		fen += "0"
	}
	whole, err := strconv.ParseInt(yuan, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid yuan amount %q: %w", s, err)
	}
	cents, err := strconv.ParseInt(fen, 10, 64)
	if err != nil || cents < 0 {
		return 0, fmt.Errorf("invalid yuan amount %q", s)
	}
	return whole*100 + cents, nil
}
