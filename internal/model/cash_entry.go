package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// ============================================================================
// 现金流水类型常量
// ============================================================================

const (
	EntryKindInflow  = "INFLOW"  // 入账
	EntryKindOutflow = "OUTFLOW" // 出账
)

// ============================================================================
// 现金流水实体
// ============================================================================

// CashEntry 现金流水表
// 记录收银台的每一笔现金进出，是日结对账的核心依据
//
// 【重要】流水表设计原则：
// 1. 金额恒为正数，方向由 kind 区分 —— 避免正负混用导致的统计错误
// 2. 被日结记录认领后（closing_id 非空）不允许修改和删除 —— 保证日结结果可复现
// 3. 预约收款产生的流水必须关联预约ID —— 便于追溯资金来源
type CashEntry struct {
	ID            int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	EntryNo       string          `gorm:"type:varchar(64);uniqueIndex;not null" json:"entry_no"` // 流水号（全局唯一）
	Kind          string          `gorm:"type:varchar(20);not null" json:"kind"`                 // 流水方向 INFLOW/OUTFLOW
	Description   string          `gorm:"type:varchar(256);not null" json:"description"`         // 描述
	Amount        decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"amount"`             // 金额（正数，精确到分）
	OccurredAt    time.Time       `gorm:"not null;index" json:"occurred_at"`                     // 发生时间，日结按此字段圈定范围
	AppointmentID *int64          `gorm:"index" json:"appointment_id"`                           // 来源预约（可空）
	ClosingID     *int64          `gorm:"index" json:"closing_id"`                               // 被哪次日结认领（可空）
	CreatedAt     time.Time       `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime" json:"updated_at"`

	Appointment *Appointment `gorm:"foreignKey:AppointmentID" json:"appointment,omitempty"`
	Closing     *CashClosing `gorm:"foreignKey:ClosingID" json:"closing,omitempty"`
}

func (CashEntry) TableName() string {
	return "caixa_lancamento"
}

// Claimed 是否已被日结认领
func (e *CashEntry) Claimed() bool {
	return e.ClosingID != nil
}
