package models

import "time"

// Notification 通知模型
// 未读去重按 (user_id, message, is_read) 精确文本匹配，唯一索引兜底并发下的双写；
// message 限长 191 以满足 MySQL utf8mb4 组合索引的长度限制
type Notification struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UserID    uint      `json:"user_id" gorm:"not null;uniqueIndex:idx_notifications_dedup"`
	Message   string    `json:"message" gorm:"size:191;not null;uniqueIndex:idx_notifications_dedup"`
	IsRead    bool      `json:"is_read" gorm:"default:false;uniqueIndex:idx_notifications_dedup"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	User      User      `json:"-" gorm:"foreignKey:UserID"`
}

// TableName 设置表名
func (Notification) TableName() string {
	return "notifications"
}
