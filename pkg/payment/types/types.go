// Package types 定义支付网关、对账服务依赖的接口与数据结构
package types

import (
	"context"
	"errors"
	"time"

	"homerent/app/models/payment"
)

// Provider 支付提供商类型
type Provider string

const (
	ProviderHosted Provider = "hosted"
	ProviderWechat Provider = "wechat"
	ProviderAlipay Provider = "alipay"
)

// OrderStatus 网关侧订单状态
type OrderStatus string

const (
	OrderCreated   OrderStatus = "created"   // 已下单，未付款
	OrderAttempted OrderStatus = "attempted" // 用户尝试过付款但未成功
	OrderPaid      OrderStatus = "paid"
	OrderExpired   OrderStatus = "expired"
	OrderFailed    OrderStatus = "failed"
)

var (
	// ErrSignatureUnsupported 网关不提供客户端回调签名，只能依靠查单对账
	ErrSignatureUnsupported = errors.New("signature verification not supported by provider")
	// ErrSignatureInvalid 签名不匹配
	ErrSignatureInvalid = errors.New("signature mismatch")
	// ErrOrderNotFound 网关侧不存在该订单
	ErrOrderNotFound = errors.New("gateway order not found")
)

// OrderRequest 下单参数，Receipt 使用账单 ID，网关据此去重
type OrderRequest struct {
	Receipt     string
	Amount      int64
	Currency    string
	Description string
	Notes       map[string]string
}

// Order 网关订单
type Order struct {
	ID          string                 `json:"id"`
	Receipt     string                 `json:"receipt"`
	Amount      int64                  `json:"amount"`
	Currency    string                 `json:"currency"`
	Status      OrderStatus            `json:"status"`
	PaymentID   string                 `json:"payment_id,omitempty"`
	CheckoutURL string                 `json:"checkout_url,omitempty"`
	ExpireAt    time.Time              `json:"expire_at,omitempty"`
	Extra       map[string]interface{} `json:"extra,omitempty"`
}

// Reusable 订单仍可继续付款
func (o *Order) Reusable(now time.Time) bool {
	if o.Status != OrderCreated && o.Status != OrderAttempted {
		return false
	}
	return o.ExpireAt.IsZero() || o.ExpireAt.After(now)
}

// Gateway 支付网关
type Gateway interface {
	Provider() Provider
	CreateOrder(ctx context.Context, req OrderRequest) (*Order, error)
	FetchOrder(ctx context.Context, orderID string) (*Order, error)
	VerifySignature(orderID, paymentID, signature string) error
}

// Repository 账单仓储
type Repository interface {
	Create(ctx context.Context, p *payment.Payment) error
	// UpdateFields 条件更新，账单当前状态不在 expected 中时不写入并返回 false
	UpdateFields(ctx context.Context, id string, expected []payment.Status, fields map[string]interface{}) (bool, error)
	GetByID(ctx context.Context, id string) (*payment.Payment, error)
	ListByTenant(ctx context.Context, tenantID string, page, pageSize int) ([]payment.Payment, int64, error)
	SummaryByTenant(ctx context.Context, tenantID string) ([]payment.StatusTotal, error)
	// 以下 ownerID 为空表示不限房东
	ListSyncable(ctx context.Context, ownerID string) ([]payment.Payment, error)
	ListPendingDueBefore(ctx context.Context, before time.Time) ([]payment.Payment, error)
	FindDuplicateGroups(ctx context.Context, ownerID string) ([]payment.DuplicateGroup, error)
	ListGroup(ctx context.Context, ownerID string, g payment.DuplicateGroup) ([]payment.Payment, error)
	Delete(ctx context.Context, ids ...string) (int64, error)
}

// Locker 分布式互斥锁
type Locker interface {
	Lock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key string) error
}

// Enqueuer 投递对账任务
type Enqueuer interface {
	EnqueueSync(ctx context.Context, paymentID, reason string) error
}

// EventPaymentUpdated 账单状态变化事件
const EventPaymentUpdated = "payment.updated"

// Event 账单事件
type Event struct {
	Type       string         `json:"type"`
	PaymentID  string         `json:"payment_id"`
	TenantID   string         `json:"tenant_id"`
	PropertyID string         `json:"property_id"`
	Status     payment.Status `json:"status"`
	Previous   payment.Status `json:"previous,omitempty"`
	At         time.Time      `json:"at"`
}

// Publisher 发布账单事件
type Publisher interface {
	Publish(event Event)
}
