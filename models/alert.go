package models

import "time"

// Alert 提醒阈值模型，独立于任何时间窗口或类别
// (user_id, threshold) 唯一索引兜底"同一阈值只允许一条"的约束，
// 使正确性不依赖 check-then-insert 的时序
type Alert struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UserID    uint      `json:"user_id" gorm:"not null;uniqueIndex:idx_alerts_user_threshold"`
	Threshold float64   `json:"threshold" gorm:"type:decimal(10,2);not null;uniqueIndex:idx_alerts_user_threshold"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	User      User      `json:"-" gorm:"foreignKey:UserID"`
}

// TableName 设置表名
func (Alert) TableName() string {
	return "alerts"
}
