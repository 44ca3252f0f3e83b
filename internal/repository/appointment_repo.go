package repository

import (
	"context"
	"errors"
	"time"

	"barbershop/internal/model"

	"gorm.io/gorm"
)

var (
	ErrAppointmentNotFound      = errors.New("预约不存在")
	ErrAppointmentStatusInvalid = errors.New("预约状态不合法")
)

type AppointmentRepository struct {
	db *gorm.DB
}

func NewAppointmentRepository(db *gorm.DB) *AppointmentRepository {
	return &AppointmentRepository{db: db}
}

func (r *AppointmentRepository) Create(ctx context.Context, tx *gorm.DB, appointment *model.Appointment) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(appointment).Error
}

func (r *AppointmentRepository) GetByID(ctx context.Context, id int64) (*model.Appointment, error) {
	var appointment model.Appointment
	err := r.db.WithContext(ctx).
		Preload("Client").
		Preload("Service").
		Preload("Barber").
		First(&appointment, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}
	return &appointment, nil
}

func (r *AppointmentRepository) List(ctx context.Context) ([]*model.Appointment, error) {
	var appointments []*model.Appointment
	err := r.db.WithContext(ctx).
		Preload("Client").
		Preload("Service").
		Preload("Barber").
		Order("scheduled_at DESC").
		Find(&appointments).Error
	return appointments, err
}

func (r *AppointmentRepository) ListAllWithRefs(ctx context.Context) ([]*model.Appointment, error) {
	var appointments []*model.Appointment
	err := r.db.WithContext(ctx).
		Preload("Client").
		Preload("Service").
		Preload("Barber").
		Find(&appointments).Error
	return appointments, err
}

// UpdateStatus 按状态机推进预约状态
// WHERE 条件带上旧状态，保证并发下的状态推进是 compare-and-swap 语义
func (r *AppointmentRepository) UpdateStatus(ctx context.Context, tx *gorm.DB, id int64, fromStatus, toStatus string) error {
	if !model.CanTransitionTo(fromStatus, toStatus) {
		return ErrAppointmentStatusInvalid
	}

	if tx == nil {
		tx = r.db
	}

	result := tx.WithContext(ctx).
		Model(&model.Appointment{}).
		Where("id = ? AND status = ?", id, fromStatus).
		Update("status", toStatus)

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrAppointmentStatusInvalid
	}

	return nil
}

func (r *AppointmentRepository) Update(ctx context.Context, appointment *model.Appointment) error {
	return r.db.WithContext(ctx).Save(appointment).Error
}

func (r *AppointmentRepository) Delete(ctx context.Context, tx *gorm.DB, id int64) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Delete(&model.Appointment{}, id).Error
}

// GetOverdueScheduled 查询已过期仍处于 SCHEDULED 的预约（后台任务用）
func (r *AppointmentRepository) GetOverdueScheduled(ctx context.Context, beforeTime time.Time, limit int) ([]*model.Appointment, error) {
	var appointments []*model.Appointment
	err := r.db.WithContext(ctx).
		Where("status = ? AND scheduled_at < ?", model.AppointmentStatusScheduled, beforeTime).
		Limit(limit).
		Find(&appointments).Error
	return appointments, err
}

// CountCashEntries 统计引用该预约的现金流水数，删除前的引用检查用
func (r *AppointmentRepository) CountCashEntries(ctx context.Context, tx *gorm.DB, appointmentID int64) (int64, error) {
	if tx == nil {
		tx = r.db
	}
	var count int64
	err := tx.WithContext(ctx).
		Model(&model.CashEntry{}).
		Where("appointment_id = ?", appointmentID).
		Count(&count).Error
	return count, err
}
