package model

import (
	"time"
)

const (
	UserRoleAdmin  = "ADMIN"
	UserRoleBarber = "BARBER"
)

// User 系统用户表（管理员/理发师）
// 理发师可以被预约关联，删除前必须检查是否还有预约引用
type User struct {
	ID           int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name         string    `gorm:"type:varchar(128);not null" json:"name"`
	Email        string    `gorm:"type:varchar(128);uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"type:varchar(128);not null" json:"-"` // bcrypt 哈希，不对外返回
	Role         string    `gorm:"type:varchar(20);not null;default:BARBER" json:"role"`
	Active       bool      `gorm:"not null;default:true" json:"active"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (User) TableName() string {
	return "usuario"
}
