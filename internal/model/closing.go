package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// CashClosing 日结表
// 每个营业日至多一条记录（business_date 唯一索引），由对账引擎创建或覆盖更新
//
// 核心不变量：
// 1. NetBalance = TotalInflow - TotalOutflow，三个字段总是同一笔计算的产物
// 2. business_date 归一化到当天零点，不含时间部分
// 3. 仍有流水引用本记录时不允许删除
type CashClosing struct {
	ID           int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	ClosingNo    string          `gorm:"type:varchar(64);uniqueIndex;not null" json:"closing_no"`
	BusinessDate time.Time       `gorm:"not null;uniqueIndex" json:"business_date"`
	TotalInflow  decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"total_inflow"`
	TotalOutflow decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"total_outflow"`
	NetBalance   decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"net_balance"` // 可以为负
	CreatedAt    time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"autoUpdateTime" json:"updated_at"`

	Entries []CashEntry `gorm:"foreignKey:ClosingID" json:"entries,omitempty"`
}

func (CashClosing) TableName() string {
	return "fechamento_caixa"
}
