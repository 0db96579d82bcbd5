// Package notification 站内通知模型
package notification

import (
	"time"

	"homerent/app/models"
)

// Kind 通知类型
type Kind string

const (
	KindReminder       Kind = "payment_reminder"
	KindPaymentPaid    Kind = "payment_paid"
	KindPaymentFailed  Kind = "payment_failed"
	KindPaymentOverdue Kind = "payment_overdue"
)

// Notification 通知记录
type Notification struct {
	models.BaseModel

	UserID      string     `gorm:"type:varchar(36);index" json:"user_id"`
	Title       string     `gorm:"type:varchar(120)" json:"title"`
	Body        string     `gorm:"type:text" json:"body"`
	Kind        Kind       `gorm:"type:varchar(30);index" json:"kind"`
	ReferenceID string     `gorm:"type:varchar(36)" json:"reference_id,omitempty"`
	Read        bool       `gorm:"default:false;index" json:"read"`
	ReadAt      *time.Time `json:"read_at,omitempty"`

	models.CommonTimestampsField
}

// TableName 表名
func (Notification) TableName() string {
	return "notifications"
}
