// Package property 房源与房间模型
package property

import (
	"homerent/app/models"
)

// Property 房源
type Property struct {
	models.BaseModel

	OwnerID string `gorm:"type:varchar(36);index" json:"owner_id"`
	Name    string `gorm:"type:varchar(120)" json:"name"`
	Address string `gorm:"type:text" json:"address"`

	Rooms []Room `gorm:"foreignKey:PropertyID" json:"rooms,omitempty"`

	models.CommonTimestampsField
	models.SoftDeletes
}

// TableName 表名
func (Property) TableName() string {
	return "properties"
}

// Room 房间，租客与房间一一对应
type Room struct {
	models.BaseModel

	PropertyID  string `gorm:"type:varchar(36);index" json:"property_id"`
	Label       string `gorm:"type:varchar(50)" json:"label"`
	MonthlyRent int64  `json:"monthly_rent"`

	models.CommonTimestampsField
}

// TableName 表名
func (Room) TableName() string {
	return "rooms"
}
