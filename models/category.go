package models

import (
	"time"

	"gorm.io/gorm"
)

// DefaultDebtCategoryName 注册时自动创建的默认类别
const DefaultDebtCategoryName = "Debt"

// Category 消费类别模型（按用户隔离）
type Category struct {
	ID          uint           `json:"id" gorm:"primaryKey"`
	Name        string         `json:"name" gorm:"size:50;not null;uniqueIndex:idx_categories_user_name"`
	Description string         `json:"description" gorm:"size:255"`
	UserID      uint           `json:"user_id" gorm:"not null;index;uniqueIndex:idx_categories_user_name"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`
	User        User           `json:"-" gorm:"foreignKey:UserID"`
}

// TableName 设置表名
func (Category) TableName() string {
	return "categories"
}
