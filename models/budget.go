package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	// BudgetStatusActive 生效中
	BudgetStatusActive = "active"
	// BudgetStatusInactive 已停用
	BudgetStatusInactive = "inactive"
)

// GeneralBudget 全局预算模型，按时间窗口限制用户总支出
type GeneralBudget struct {
	ID          uint           `json:"id" gorm:"primaryKey"`
	UserID      uint           `json:"user_id" gorm:"index;not null"`
	AmountLimit float64        `json:"amount_limit" gorm:"type:decimal(10,2);not null"`
	StartDate   time.Time      `json:"start_date" gorm:"not null"`
	EndDate     time.Time      `json:"end_date" gorm:"not null"`
	Status      string         `json:"status" gorm:"size:20;default:active;index"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`
	User        User           `json:"-" gorm:"foreignKey:UserID"`
}

// TableName 设置表名
func (GeneralBudget) TableName() string {
	return "general_budgets"
}

// CategoryBudget 类别预算模型，限定某一类别在时间窗口内的支出
type CategoryBudget struct {
	ID          uint           `json:"id" gorm:"primaryKey"`
	UserID      uint           `json:"user_id" gorm:"index;not null"`
	CategoryID  uint           `json:"category_id" gorm:"index;not null"`
	AmountLimit float64        `json:"amount_limit" gorm:"type:decimal(10,2);not null"`
	StartDate   time.Time      `json:"start_date" gorm:"not null"`
	EndDate     time.Time      `json:"end_date" gorm:"not null"`
	Status      string         `json:"status" gorm:"size:20;default:active;index"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`
	User        User           `json:"-" gorm:"foreignKey:UserID"`
	Category    Category       `json:"-" gorm:"foreignKey:CategoryID"`
}

// TableName 设置表名
func (CategoryBudget) TableName() string {
	return "category_budgets"
}

// CoversDate 判断日期是否落在预算窗口内（含两端）
func CoversDate(start, end, d time.Time) bool {
	return !d.Before(start) && !d.After(end)
}
