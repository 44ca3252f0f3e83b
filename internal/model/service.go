package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Service 服务项目表（理发、修面等）
type Service struct {
	ID          int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string          `gorm:"type:varchar(128);not null" json:"name"`
	Price       decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"` // 单价（精确到分）
	DurationMin int             `gorm:"not null" json:"duration_min"`             // 时长（分钟）
	Active      bool            `gorm:"not null;default:true" json:"active"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Service) TableName() string {
	return "servico"
}
