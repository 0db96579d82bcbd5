// Package tenant 租客模型
package tenant

import (
	"homerent/app/models"
)

// Tenant 租客，关联用户账号、房源和房间
type Tenant struct {
	models.BaseModel

	UserID      string `gorm:"type:varchar(36);index" json:"user_id"`
	PropertyID  string `gorm:"type:varchar(36);index" json:"property_id"`
	RoomID      string `gorm:"type:varchar(36);index" json:"room_id"`
	Name        string `gorm:"type:varchar(100)" json:"name"`
	Phone       string `gorm:"type:varchar(20)" json:"phone"`
	MonthlyRent int64  `json:"monthly_rent"`
	Deposit     int64  `json:"deposit"`
	Active      bool   `gorm:"default:true;index" json:"active"`

	models.CommonTimestampsField
	models.SoftDeletes
}

// TableName 表名
func (Tenant) TableName() string {
	return "tenants"
}
