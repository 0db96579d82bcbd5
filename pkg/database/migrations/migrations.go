package migrations

import (
	"homerent/app/models/notification"
	"homerent/app/models/payment"
	"homerent/app/models/property"
	"homerent/app/models/tenant"
	"homerent/app/models/user"
)

// RegisterTables 返回需要迁移的表的模型列表
func RegisterTables() []interface{} {
	return []interface{}{
		&user.User{},
		&property.Property{},
		&property.Room{},
		&tenant.Tenant{},
		&payment.Payment{},
		&notification.Notification{},
	}
}
