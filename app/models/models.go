// Package models 模型通用属性和方法
package models

import (
	"time"

	"gorm.io/gorm"
)

// BaseModel 模型基类，主键使用 UUID 字符串
type BaseModel struct {
	ID string `gorm:"primaryKey;type:varchar(36)" json:"id,omitempty"`
}

// CommonTimestampsField 时间戳
type CommonTimestampsField struct {
	CreatedAt time.Time `gorm:"column:created_at;index;" json:"created_at,omitempty"`
	UpdatedAt time.Time `gorm:"column:updated_at;index;" json:"updated_at,omitempty"`
}

// SoftDeletes 软删除
type SoftDeletes struct {
	DeletedAt gorm.DeletedAt `gorm:"column:deleted_at;index;" json:"-"`
}
