package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	// GroupRoleAdmin 群组管理员，可解散群组
	GroupRoleAdmin = "admin"
	// GroupRoleMember 普通成员
	GroupRoleMember = "member"

	// GroupMemberStatusActive 已加入
	GroupMemberStatusActive = "active"
	// GroupMemberStatusInvited 已邀请待接受
	GroupMemberStatusInvited = "invited"
	// GroupMemberStatusDeclined 已拒绝
	GroupMemberStatusDeclined = "declined"
)

// Group 共享消费群组
type Group struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	Name      string         `json:"name" gorm:"size:100;not null"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

// TableName 设置表名
func (Group) TableName() string {
	return "groups"
}

// GroupMember 群组成员关系，同一用户在同一群组内只有一条记录
type GroupMember struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	GroupID   uint           `json:"group_id" gorm:"not null;uniqueIndex:idx_group_members_group_user"`
	UserID    uint           `json:"user_id" gorm:"not null;index;uniqueIndex:idx_group_members_group_user"`
	Role      string         `json:"role" gorm:"size:20;default:member"`
	Status    string         `json:"status" gorm:"size:20;default:invited"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
	Group     Group          `json:"-" gorm:"foreignKey:GroupID"`
	User      User           `json:"-" gorm:"foreignKey:UserID"`
}

// TableName 设置表名
func (GroupMember) TableName() string {
	return "group_members"
}
