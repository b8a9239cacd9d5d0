package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	// SplitTypeEqual 均摊
	SplitTypeEqual = "equal"
	// SplitTypeCustom 自定义份额
	SplitTypeCustom = "custom"
)

// GroupExpense 群组消费记录，由付款人垫付、拆分给各成员
type GroupExpense struct {
	ID          uint           `json:"id" gorm:"primaryKey"`
	GroupID     uint           `json:"group_id" gorm:"index;not null"`
	PayerID     uint           `json:"payer_id" gorm:"index;not null"`
	Amount      float64        `json:"amount" gorm:"type:decimal(10,2);not null"`
	Description string         `json:"description" gorm:"size:255"`
	SplitType   string         `json:"split_type" gorm:"size:20;default:equal"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`
	Group       Group          `json:"-" gorm:"foreignKey:GroupID"`
	Payer       User           `json:"-" gorm:"foreignKey:PayerID"`
}

// TableName 设置表名
func (GroupExpense) TableName() string {
	return "group_expenses"
}

// ExpenseSplit 单个成员在一笔群组消费中的份额
// 所有份额之和等于父记录金额，由拆分服务保证
type ExpenseSplit struct {
	ID             uint           `json:"id" gorm:"primaryKey"`
	GroupExpenseID uint           `json:"group_expense_id" gorm:"index;not null"`
	UserID         uint           `json:"user_id" gorm:"index;not null"`
	ShareAmount    float64        `json:"share_amount" gorm:"type:decimal(10,2);not null"`
	CreatedAt      time.Time      `json:"created_at"`
	DeletedAt      gorm.DeletedAt `json:"-" gorm:"index"`
	GroupExpense   GroupExpense   `json:"-" gorm:"foreignKey:GroupExpenseID"`
	User           User           `json:"-" gorm:"foreignKey:UserID"`
}

// TableName 设置表名
func (ExpenseSplit) TableName() string {
	return "expense_splits"
}
