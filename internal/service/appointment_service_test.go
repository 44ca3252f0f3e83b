package service

import (
	"context"
	"testing"
	"time"

	"barbershop/internal/model"
	"barbershop/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seedAppointmentFixtures(t *testing.T, db *gorm.DB) (*model.Client, *model.Service, *model.User) {
	t.Helper()

	client := &model.Client{Name: "张三", Phone: "13800000001"}
	require.NoError(t, db.Create(client).Error)

	svc := &model.Service{
		Name:        "精剪",
		Price:       mustDecimal(t, "35.00"),
		DurationMin: 30,
		Active:      true,
	}
	require.NoError(t, db.Create(svc).Error)

	barber := &model.User{
		Name:         "李师傅",
		Email:        "barber@example.com",
		PasswordHash: "x",
		Role:         model.UserRoleBarber,
		Active:       true,
	}
	require.NoError(t, db.Create(barber).Error)

	return client, svc, barber
}

func TestCreateAppointment_PriceDefaultsToService(t *testing.T) {
	db := setupTestDB(t)
	client, svc, barber := seedAppointmentFixtures(t, db)
	appointmentSvc := NewAppointmentService(db, testConfig())

	appointment, err := appointmentSvc.CreateAppointment(context.Background(), &CreateAppointmentRequest{
		ClientID:    client.ID,
		ServiceID:   svc.ID,
		BarberID:    &barber.ID,
		ScheduledAt: time.Now().Add(24 * time.Hour),
	})
	require.NoError(t, err)

	assert.Equal(t, model.AppointmentStatusScheduled, appointment.Status)
	assert.Equal(t, "35.00", appointment.Price.StringFixed(2))
	assert.NotEmpty(t, appointment.AppointmentNo)
}

func TestCreateAppointment_ClientMustExist(t *testing.T) {
	db := setupTestDB(t)
	_, svc, _ := seedAppointmentFixtures(t, db)
	appointmentSvc := NewAppointmentService(db, testConfig())

	_, err := appointmentSvc.CreateAppointment(context.Background(), &CreateAppointmentRequest{
		ClientID:    9999,
		ServiceID:   svc.ID,
		ScheduledAt: time.Now(),
	})
	assert.ErrorIs(t, err, repository.ErrClientNotFound)
}

func TestUpdateStatus_Transitions(t *testing.T) {
	db := setupTestDB(t)
	client, svc, _ := seedAppointmentFixtures(t, db)
	appointmentSvc := NewAppointmentService(db, testConfig())
	ctx := context.Background()

	appointment, err := appointmentSvc.CreateAppointment(ctx, &CreateAppointmentRequest{
		ClientID:    client.ID,
		ServiceID:   svc.ID,
		ScheduledAt: time.Now(),
	})
	require.NoError(t, err)

	confirmed, err := appointmentSvc.UpdateStatus(ctx, appointment.ID, model.AppointmentStatusConfirmed)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusConfirmed, confirmed.Status)

	cancelled, err := appointmentSvc.UpdateStatus(ctx, appointment.ID, model.AppointmentStatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusCancelled, cancelled.Status)

	// 取消后是终态，不能再往前推
	_, err = appointmentSvc.UpdateStatus(ctx, appointment.ID, model.AppointmentStatusCompleted)
	assert.ErrorIs(t, err, repository.ErrAppointmentStatusInvalid)
}

func TestComplete_PaidCreatesCashEntry(t *testing.T) {
	db := setupTestDB(t)
	client, svc, _ := seedAppointmentFixtures(t, db)
	appointmentSvc := NewAppointmentService(db, testConfig())
	ctx := context.Background()

	appointment, err := appointmentSvc.CreateAppointment(ctx, &CreateAppointmentRequest{
		ClientID:    client.ID,
		ServiceID:   svc.ID,
		ScheduledAt: time.Now(),
	})
	require.NoError(t, err)

	completed, err := appointmentSvc.Complete(ctx, appointment.ID, true)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusCompleted, completed.Status)

	// 收款时同一个事务内生成了一笔 INFLOW 流水
	var entry model.CashEntry
	require.NoError(t, db.Where("appointment_id = ?", appointment.ID).First(&entry).Error)
	assert.Equal(t, model.EntryKindInflow, entry.Kind)
	assert.Equal(t, "35.00", entry.Amount.StringFixed(2))

	// 同时写入了事件消息
	var msg model.OutboxMessage
	require.NoError(t, db.Where("topic = ?", "test.appointment.completed").First(&msg).Error)
	assert.Equal(t, appointment.AppointmentNo, msg.MessageKey)

	// 完成是终态，重复完成报状态错误
	_, err = appointmentSvc.Complete(ctx, appointment.ID, true)
	assert.ErrorIs(t, err, repository.ErrAppointmentStatusInvalid)
}

func TestComplete_UnpaidCreatesNoEntry(t *testing.T) {
	db := setupTestDB(t)
	client, svc, _ := seedAppointmentFixtures(t, db)
	appointmentSvc := NewAppointmentService(db, testConfig())
	ctx := context.Background()

	appointment, err := appointmentSvc.CreateAppointment(ctx, &CreateAppointmentRequest{
		ClientID:    client.ID,
		ServiceID:   svc.ID,
		ScheduledAt: time.Now(),
	})
	require.NoError(t, err)

	_, err = appointmentSvc.Complete(ctx, appointment.ID, false)
	require.NoError(t, err)

	var count int64
	require.NoError(t, db.Model(&model.CashEntry{}).Where("appointment_id = ?", appointment.ID).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestDeleteAppointment_RejectedWithLinkedEntry(t *testing.T) {
	db := setupTestDB(t)
	client, svc, _ := seedAppointmentFixtures(t, db)
	appointmentSvc := NewAppointmentService(db, testConfig())
	ctx := context.Background()

	appointment, err := appointmentSvc.CreateAppointment(ctx, &CreateAppointmentRequest{
		ClientID:    client.ID,
		ServiceID:   svc.ID,
		ScheduledAt: time.Now(),
	})
	require.NoError(t, err)

	_, err = appointmentSvc.Complete(ctx, appointment.ID, true)
	require.NoError(t, err)

	err = appointmentSvc.DeleteAppointment(ctx, appointment.ID)
	assert.Error(t, err)

	// 没有流水的预约可以删除
	price := decimal.NewFromInt(20)
	other, err := appointmentSvc.CreateAppointment(ctx, &CreateAppointmentRequest{
		ClientID:    client.ID,
		ServiceID:   svc.ID,
		ScheduledAt: time.Now(),
		Price:       &price,
	})
	require.NoError(t, err)
	require.NoError(t, appointmentSvc.DeleteAppointment(ctx, other.ID))
}

func TestMarkOverdueNoShow(t *testing.T) {
	db := setupTestDB(t)
	client, svc, _ := seedAppointmentFixtures(t, db)
	appointmentSvc := NewAppointmentService(db, testConfig())
	ctx := context.Background()

	overdue, err := appointmentSvc.CreateAppointment(ctx, &CreateAppointmentRequest{
		ClientID:    client.ID,
		ServiceID:   svc.ID,
		ScheduledAt: time.Now().Add(-3 * time.Hour),
	})
	require.NoError(t, err)

	upcoming, err := appointmentSvc.CreateAppointment(ctx, &CreateAppointmentRequest{
		ClientID:    client.ID,
		ServiceID:   svc.ID,
		ScheduledAt: time.Now().Add(3 * time.Hour),
	})
	require.NoError(t, err)

	marked, err := appointmentSvc.MarkOverdueNoShow(ctx, 60, 100)
	require.NoError(t, err)
	assert.Equal(t, 1, marked)

	var reloaded model.Appointment
	require.NoError(t, db.First(&reloaded, overdue.ID).Error)
	assert.Equal(t, model.AppointmentStatusNoShow, reloaded.Status)

	reloaded = model.Appointment{}
	require.NoError(t, db.First(&reloaded, upcoming.ID).Error)
	assert.Equal(t, model.AppointmentStatusScheduled, reloaded.Status)
}
