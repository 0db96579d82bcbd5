// Package user 存放用户 Model 相关逻辑
package user

import (
	"homerent/app/models"
)

// Role 用户角色
type Role string

const (
	RoleOwner  Role = "owner"  // 房东
	RoleTenant Role = "tenant" // 租客
)

// User 用户模型
type User struct {
	models.BaseModel

	Email     string `gorm:"unique;type:varchar(255)" json:"email"`
	Name      string `gorm:"type:varchar(100)" json:"name"`
	Phone     string `gorm:"type:varchar(20)" json:"phone"`
	Role      Role   `gorm:"type:varchar(20);index" json:"role"`
	PushToken string `gorm:"type:text" json:"-"` // 推送设备令牌

	models.CommonTimestampsField
}

// TableName 表名
func (User) TableName() string {
	return "users"
}

// IsOwner 是否为房东
func (u *User) IsOwner() bool {
	return u.Role == RoleOwner
}
