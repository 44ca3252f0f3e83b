package model

import (
	"time"
)

// Client 客户表
type Client struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"type:varchar(128);not null" json:"name"`
	Phone     string    `gorm:"type:varchar(32);not null" json:"phone"`
	Notes     string    `gorm:"type:varchar(512)" json:"notes"` // 备注（偏好、过敏信息等）
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Client) TableName() string {
	return "cliente"
}
