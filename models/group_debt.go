package models

import "time"

// GroupDebt 群组内两名成员之间的累计净欠款
// 方向固定为 debtor 欠 creditor，金额恒为非负；
// (group_id, debtor_id, creditor_id) 唯一索引保证每个方向只有一条余额
type GroupDebt struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	GroupID    uint      `json:"group_id" gorm:"not null;uniqueIndex:idx_group_debts_pair"`
	DebtorID   uint      `json:"debtor_id" gorm:"not null;uniqueIndex:idx_group_debts_pair"`
	CreditorID uint      `json:"creditor_id" gorm:"not null;uniqueIndex:idx_group_debts_pair"`
	Amount     float64   `json:"amount" gorm:"type:decimal(10,2);not null"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	Group      Group     `json:"-" gorm:"foreignKey:GroupID"`
	Debtor     User      `json:"-" gorm:"foreignKey:DebtorID"`
	Creditor   User      `json:"-" gorm:"foreignKey:CreditorID"`
}

// TableName 设置表名
func (GroupDebt) TableName() string {
	return "group_debts"
}
