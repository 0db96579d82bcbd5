package requests

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/thedevsaddam/govalidator"
)

// CreatePaymentRequest 新建账单
type CreatePaymentRequest struct {
	TenantID    string `json:"tenant_id"`
	PropertyID  string `json:"property_id"`
	RoomID      string `json:"room_id"`
	Type        string `json:"type"`
	Period      string `json:"period"`
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
	DueDate     string `json:"due_date"`
	Description string `json:"description"`
}

// DueDateTime 解析到期日，未填写时返回零值
func (r CreatePaymentRequest) DueDateTime() time.Time {
	t, err := time.Parse("2006-01-02", r.DueDate)
	if err != nil {
		return time.Time{}
	}
	return t
}

// ValidateCreatePayment 校验新建账单参数
func ValidateCreatePayment(c *gin.Context) (CreatePaymentRequest, error) {
	rules := govalidator.MapData{
		"tenant_id":   []string{"required"},
		"property_id": []string{"required"},
		"type":        []string{"required", "in:rent,security_deposit"},
		"period":      []string{"required", "regex:^\\d{4}-(0[1-9]|1[0-2])$"},
		"amount":      []string{"required", "min:1"},
		"currency":    []string{"len:3"},
		"due_date":    []string{"date"},
		"description": []string{"max:500"},
	}
	messages := govalidator.MapData{
		"tenant_id": []string{
			"required:tenant_id 不能为空",
		},
		"property_id": []string{
			"required:property_id 不能为空",
		},
		"type": []string{
			"required:账单类型不能为空",
			"in:账单类型必须是 rent 或 security_deposit",
		},
		"period": []string{
			"required:账期不能为空",
			"regex:账期格式必须为 YYYY-MM",
		},
		"amount": []string{
			"required:金额必须大于 0",
			"min:金额必须大于 0",
		},
		"due_date": []string{
			"date:到期日格式必须为 YYYY-MM-DD",
		},
	}

	return ValidateRequest[CreatePaymentRequest](c, rules, messages)
}

// VerifyPaymentRequest 收银台回调参数
type VerifyPaymentRequest struct {
	GatewayPaymentID string `json:"gateway_payment_id"`
	GatewayOrderID   string `json:"gateway_order_id"`
	Signature        string `json:"signature"`
}

// ValidateVerifyPayment 校验回调参数，签名由服务端校验，这里只检查必填
func ValidateVerifyPayment(c *gin.Context) (VerifyPaymentRequest, error) {
	rules := govalidator.MapData{
		"gateway_payment_id": []string{"required"},
		"gateway_order_id":   []string{"required"},
	}
	messages := govalidator.MapData{
		"gateway_payment_id": []string{"required:gateway_payment_id 不能为空"},
		"gateway_order_id":   []string{"required:gateway_order_id 不能为空"},
	}

	return ValidateRequest[VerifyPaymentRequest](c, rules, messages)
}

// CheckoutRequest 发起收银台，微信 JSAPI 需要付款人 openid
type CheckoutRequest struct {
	PayerOpenID string `json:"payer_openid"`
}

// BindCheckout 请求体可以为空
func BindCheckout(c *gin.Context) CheckoutRequest {
	var req CheckoutRequest
	_ = c.ShouldBindJSON(&req)
	return req
}
