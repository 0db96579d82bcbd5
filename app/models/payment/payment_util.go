package payment

import (
	"net/url"
	"regexp"
)

// Type 账单类型
type Type string

const (
	TypeRent            Type = "rent"             // 租金
	TypeSecurityDeposit Type = "security_deposit" // 押金
)

// Status 支付状态
type Status string

const (
	StatusPending Status = "pending" // 待支付
	StatusPaid    Status = "paid"    // 已支付
	StatusOverdue Status = "overdue" // 已逾期
	StatusFailed  Status = "failed"  // 支付失败
)

var periodPattern = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

// Priority 清理重复账单时的保留优先级：paid > pending > overdue
func (s Status) Priority() int {
	switch s {
	case StatusPaid:
		return 3
	case StatusPending:
		return 2
	case StatusOverdue:
		return 1
	default:
		return 0
	}
}

// ValidType 是否为合法的账单类型
func ValidType(t Type) bool {
	return t == TypeRent || t == TypeSecurityDeposit
}

// ValidPeriod 账期格式必须为 YYYY-MM
func ValidPeriod(period string) bool {
	return periodPattern.MatchString(period)
}

// Validate 验证账单记录，返回字段对应的错误信息
func (p *Payment) Validate() url.Values {
	errs := url.Values{}
	if p.TenantID == "" {
		errs.Add("tenant_id", "tenant_id is required")
	}
	if p.PropertyID == "" {
		errs.Add("property_id", "property_id is required")
	}
	if p.Amount <= 0 {
		errs.Add("amount", "amount must be greater than 0")
	}
	if !ValidType(p.Type) {
		errs.Add("type", "type must be rent or security_deposit")
	}
	if !ValidPeriod(p.Period) {
		errs.Add("period", "period must look like 2024-11")
	}
	return errs
}

// IsPaid 检查是否已支付
func (p *Payment) IsPaid() bool {
	return p.Status == StatusPaid
}

// IsOpen 待支付或已逾期，仍可发起支付或对账
func (p *Payment) IsOpen() bool {
	return p.Status == StatusPending || p.Status == StatusOverdue
}

// IsFailed 检查是否失败
func (p *Payment) IsFailed() bool {
	return p.Status == StatusFailed
}

// HasGatewayOrder 是否已在网关侧创建订单
func (p *Payment) HasGatewayOrder() bool {
	return p.GatewayOrderID != ""
}

// TotalDue 应付总额（含滞纳金）
func (p *Payment) TotalDue() int64 {
	return p.Amount + p.LateFee
}

// DuplicateKey 同一租客、同一类型、同一账期只应存在一条非失败账单
func (p *Payment) DuplicateKey() string {
	return p.TenantID + "|" + string(p.Type) + "|" + p.Period
}

// DuplicateGroup 同一租客、类型、账期下存在多条非失败账单
type DuplicateGroup struct {
	TenantID string
	Type     Type
	Period   string
	Total    int64
}

// Key 与 Payment.DuplicateKey 格式一致
func (g DuplicateGroup) Key() string {
	return g.TenantID + "|" + string(g.Type) + "|" + g.Period
}

// StatusTotal 按状态汇总的笔数与金额
type StatusTotal struct {
	Status Status `json:"status"`
	Count  int64  `json:"count"`
	Amount int64  `json:"amount"`
}
