package payment

import (
	"time"

	"homerent/app/models"
)

// Payment 租金 / 押金账单记录
type Payment struct {
	models.BaseModel

	TenantID   string `gorm:"type:varchar(36);index:idx_payment_period" json:"tenant_id"`
	PropertyID string `gorm:"type:varchar(36);index" json:"property_id"`
	RoomID     string `gorm:"type:varchar(36)" json:"room_id,omitempty"`
	Type       Type   `gorm:"type:varchar(20);index:idx_payment_period" json:"type"`
	Period     string `gorm:"type:varchar(7);index:idx_payment_period" json:"period"` // 账期，如 2024-11
	Amount     int64  `json:"amount"`                                               // 最小货币单位
	Currency   string `gorm:"type:varchar(3)" json:"currency"`
	LateFee    int64  `gorm:"default:0" json:"late_fee"`
	Status     Status `gorm:"type:varchar(20);index" json:"status"`

	DueDate time.Time  `gorm:"index" json:"due_date"`
	PaidAt  *time.Time `json:"paid_at,omitempty"`

	Provider         string `gorm:"type:varchar(20)" json:"provider,omitempty"`
	GatewayOrderID   string `gorm:"type:varchar(64);index" json:"gateway_order_id,omitempty"`
	GatewayPaymentID string `gorm:"type:varchar(64)" json:"gateway_payment_id,omitempty"`
	GatewaySignature string `gorm:"type:varchar(128)" json:"-"`
	Description      string `gorm:"type:text" json:"description,omitempty"`

	// 签名校验失败但网关侧可能已扣款，等待对账
	NeedsReconcile  bool       `gorm:"default:false;index" json:"needs_reconcile"`
	ReconcileReason string     `gorm:"type:varchar(255)" json:"reconcile_reason,omitempty"`
	LastSyncedAt    *time.Time `json:"last_synced_at,omitempty"`

	models.CommonTimestampsField
	models.SoftDeletes
}

// TableName 指定表名
func (Payment) TableName() string {
	return "payments"
}
