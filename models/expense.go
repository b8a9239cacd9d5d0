package models

import (
	"time"

	"gorm.io/gorm"
)

// Expense 消费记录模型
// date 与 user_id 均建索引，支撑评估器的区间/聚合查询
type Expense struct {
	ID          uint           `json:"id" gorm:"primaryKey"`
	UserID      uint           `json:"user_id" gorm:"index;not null"`
	Amount      float64        `json:"amount" gorm:"type:decimal(10,2);not null"`
	Date        time.Time      `json:"date" gorm:"index;not null"`
	Description string         `json:"description" gorm:"size:255"`
	CategoryID  *uint          `json:"category_id" gorm:"index"` // 可空，未分类消费
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`
	User        User           `json:"-" gorm:"foreignKey:UserID"`
}

// TableName 设置表名
func (Expense) TableName() string {
	return "expenses"
}
