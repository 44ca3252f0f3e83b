package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	AppointmentStatusScheduled = "SCHEDULED"
	AppointmentStatusConfirmed = "CONFIRMED"
	AppointmentStatusCompleted = "COMPLETED"
	AppointmentStatusCancelled = "CANCELLED"
	AppointmentStatusNoShow    = "NO_SHOW"
)

var ValidStatusTransitions = map[string][]string{
	AppointmentStatusScheduled: {AppointmentStatusConfirmed, AppointmentStatusCompleted, AppointmentStatusCancelled, AppointmentStatusNoShow},
	AppointmentStatusConfirmed: {AppointmentStatusCompleted, AppointmentStatusCancelled, AppointmentStatusNoShow},
}

func CanTransitionTo(currentStatus, targetStatus string) bool {
	allowedStatuses, exists := ValidStatusTransitions[currentStatus]
	if !exists {
		return false
	}
	for _, s := range allowedStatuses {
		if s == targetStatus {
			return true
		}
	}
	return false
}

// Appointment 预约表
// 预约完成并收款后会生成一条现金流水，存在流水引用时不允许删除预约
type Appointment struct {
	ID            int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	AppointmentNo string          `gorm:"type:varchar(64);uniqueIndex;not null" json:"appointment_no"`
	ClientID      int64           `gorm:"index;not null" json:"client_id"`
	ServiceID     int64           `gorm:"index;not null" json:"service_id"`
	BarberID      *int64          `gorm:"index" json:"barber_id"` // 理发师可以暂不指定
	ScheduledAt   time.Time       `gorm:"not null;index" json:"scheduled_at"`
	Status        string          `gorm:"type:varchar(20);index;not null" json:"status"`
	Price         decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`
	CreatedAt     time.Time       `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime" json:"updated_at"`

	Client  *Client  `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	Service *Service `gorm:"foreignKey:ServiceID" json:"service,omitempty"`
	Barber  *User    `gorm:"foreignKey:BarberID" json:"barber,omitempty"`
}

func (Appointment) TableName() string {
	return "agendamento"
}
