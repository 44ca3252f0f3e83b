package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"barbershop/internal/config"
	"barbershop/internal/model"
	"barbershop/internal/repository"
	"barbershop/pkg/idgen"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB 每个测试用独立的内存库，互不干扰
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&model.User{},
		&model.Client{},
		&model.Service{},
		&model.Appointment{},
		&model.CashClosing{},
		&model.CashEntry{},
		&model.OutboxMessage{},
	)
	require.NoError(t, err)

	return db
}

func testConfig() *config.Config {
	return &config.Config{
		Kafka: config.KafkaConfig{
			Topic: config.KafkaTopicConfig{
				ClosingClosed:        "test.closing.closed",
				AppointmentCompleted: "test.appointment.completed",
			},
		},
		Business: config.BusinessConfig{
			NoShowGraceMinutes:    60,
			DashboardCacheSeconds: 60,
			MaxRetryCount:         3,
		},
	}
}

func mustDecimal(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func insertEntry(t *testing.T, db *gorm.DB, kind, amount string, occurredAt time.Time) *model.CashEntry {
	t.Helper()
	entry := &model.CashEntry{
		EntryNo:     idgen.GenerateEntryNo(),
		Kind:        kind,
		Description: "测试流水",
		Amount:      mustDecimal(t, amount),
		OccurredAt:  occurredAt,
	}
	require.NoError(t, db.Create(entry).Error)
	return entry
}

func TestCloseDay_SumsByKind(t *testing.T) {
	db := setupTestDB(t)
	svc := NewClosingService(db, nil, testConfig())
	ctx := context.Background()

	day := time.Date(2024, 5, 1, 0, 0, 0, 0, time.Local)
	insertEntry(t, db, model.EntryKindInflow, "50.00", day.Add(9*time.Hour))
	insertEntry(t, db, model.EntryKindInflow, "35.00", day.Add(14*time.Hour))
	insertEntry(t, db, model.EntryKindOutflow, "150.00", day.Add(18*time.Hour))

	closing, counts, err := svc.CloseDay(ctx, day)
	require.NoError(t, err)

	assert.Equal(t, "85.00", closing.TotalInflow.StringFixed(2))
	assert.Equal(t, "150.00", closing.TotalOutflow.StringFixed(2))
	assert.Equal(t, "-65.00", closing.NetBalance.StringFixed(2))
	assert.Equal(t, 3, counts.Total)
	assert.Equal(t, 2, counts.Inflow)
	assert.Equal(t, 1, counts.Outflow)
	assert.True(t, closing.BusinessDate.Equal(day))
}

func TestCloseDay_NetBalanceInvariant(t *testing.T) {
	db := setupTestDB(t)
	svc := NewClosingService(db, nil, testConfig())
	ctx := context.Background()

	day := time.Date(2024, 5, 2, 0, 0, 0, 0, time.Local)
	insertEntry(t, db, model.EntryKindInflow, "0.10", day.Add(time.Hour))
	insertEntry(t, db, model.EntryKindInflow, "0.20", day.Add(2*time.Hour))
	insertEntry(t, db, model.EntryKindOutflow, "0.30", day.Add(3*time.Hour))

	closing, _, err := svc.CloseDay(ctx, day)
	require.NoError(t, err)

	// 0.10 + 0.20 - 0.30 精确等于零，不能有浮点残渣
	assert.True(t, closing.NetBalance.Equal(closing.TotalInflow.Sub(closing.TotalOutflow)))
	assert.Equal(t, "0.00", closing.NetBalance.StringFixed(2))
}

func TestCloseDay_Idempotent(t *testing.T) {
	db := setupTestDB(t)
	svc := NewClosingService(db, nil, testConfig())
	ctx := context.Background()

	day := time.Date(2024, 5, 3, 0, 0, 0, 0, time.Local)
	insertEntry(t, db, model.EntryKindInflow, "40.00", day.Add(10*time.Hour))

	first, _, err := svc.CloseDay(ctx, day)
	require.NoError(t, err)

	second, _, err := svc.CloseDay(ctx, day)
	require.NoError(t, err)

	// 重复日结是覆盖重算：记录ID不变，金额不变，不产生新记录
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.ClosingNo, second.ClosingNo)
	assert.True(t, first.TotalInflow.Equal(second.TotalInflow))

	var count int64
	require.NoError(t, db.Model(&model.CashClosing{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestCloseDay_RecomputeAfterNewEntry(t *testing.T) {
	db := setupTestDB(t)
	svc := NewClosingService(db, nil, testConfig())
	ctx := context.Background()

	day := time.Date(2024, 5, 4, 0, 0, 0, 0, time.Local)
	insertEntry(t, db, model.EntryKindInflow, "100.00", day.Add(10*time.Hour))

	first, _, err := svc.CloseDay(ctx, day)
	require.NoError(t, err)
	assert.Equal(t, "100.00", first.TotalInflow.StringFixed(2))

	// 日结后又进了一笔，再结一次应该是重算而不是累加
	insertEntry(t, db, model.EntryKindInflow, "20.00", day.Add(16*time.Hour))

	second, counts, err := svc.CloseDay(ctx, day)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "120.00", second.TotalInflow.StringFixed(2))
	assert.Equal(t, 2, counts.Total)
}

func TestCloseDay_DayBoundary(t *testing.T) {
	db := setupTestDB(t)
	svc := NewClosingService(db, nil, testConfig())
	ctx := context.Background()

	day := time.Date(2024, 5, 5, 0, 0, 0, 0, time.Local)
	// 当天最后一毫秒，算当天
	insertEntry(t, db, model.EntryKindInflow, "10.00", day.Add(24*time.Hour-time.Millisecond))
	// 次日零点整，不算当天
	insertEntry(t, db, model.EntryKindInflow, "99.00", day.Add(24*time.Hour))
	// 当天零点整，算当天
	insertEntry(t, db, model.EntryKindInflow, "5.00", day)

	closing, counts, err := svc.CloseDay(ctx, day)
	require.NoError(t, err)

	assert.Equal(t, "15.00", closing.TotalInflow.StringFixed(2))
	assert.Equal(t, 2, counts.Total)
}

func TestCloseDay_EmptyDay(t *testing.T) {
	db := setupTestDB(t)
	svc := NewClosingService(db, nil, testConfig())
	ctx := context.Background()

	day := time.Date(2024, 5, 6, 0, 0, 0, 0, time.Local)
	closing, counts, err := svc.CloseDay(ctx, day)
	require.NoError(t, err)

	assert.Equal(t, "0.00", closing.TotalInflow.StringFixed(2))
	assert.Equal(t, "0.00", closing.TotalOutflow.StringFixed(2))
	assert.Equal(t, "0.00", closing.NetBalance.StringFixed(2))
	assert.Equal(t, 0, counts.Total)
}

func TestCloseDay_ClaimsEntries(t *testing.T) {
	db := setupTestDB(t)
	svc := NewClosingService(db, nil, testConfig())
	ctx := context.Background()

	day := time.Date(2024, 5, 7, 0, 0, 0, 0, time.Local)
	entry := insertEntry(t, db, model.EntryKindInflow, "30.00", day.Add(12*time.Hour))
	other := insertEntry(t, db, model.EntryKindOutflow, "8.00", day.AddDate(0, 0, 1).Add(12*time.Hour))

	closing, _, err := svc.CloseDay(ctx, day)
	require.NoError(t, err)

	var reloaded model.CashEntry
	require.NoError(t, db.First(&reloaded, entry.ID).Error)
	require.NotNil(t, reloaded.ClosingID)
	assert.Equal(t, closing.ID, *reloaded.ClosingID)

	// 范围外的流水不被认领
	var untouched model.CashEntry
	require.NoError(t, db.First(&untouched, other.ID).Error)
	assert.Nil(t, untouched.ClosingID)
}

func TestCloseDay_WritesOutboxEvent(t *testing.T) {
	db := setupTestDB(t)
	svc := NewClosingService(db, nil, testConfig())
	ctx := context.Background()

	day := time.Date(2024, 5, 8, 0, 0, 0, 0, time.Local)
	insertEntry(t, db, model.EntryKindInflow, "12.00", day.Add(11*time.Hour))

	closing, _, err := svc.CloseDay(ctx, day)
	require.NoError(t, err)

	var msg model.OutboxMessage
	require.NoError(t, db.Where("topic = ?", "test.closing.closed").First(&msg).Error)
	assert.Equal(t, closing.ClosingNo, msg.MessageKey)
	assert.Equal(t, model.OutboxStatusPending, msg.Status)
	assert.Contains(t, msg.Payload, "12.00")
}

func TestDeleteClosing_RejectedWhileEntriesLinked(t *testing.T) {
	db := setupTestDB(t)
	svc := NewClosingService(db, nil, testConfig())
	ctx := context.Background()

	day := time.Date(2024, 5, 9, 0, 0, 0, 0, time.Local)
	insertEntry(t, db, model.EntryKindInflow, "25.00", day.Add(10*time.Hour))

	closing, _, err := svc.CloseDay(ctx, day)
	require.NoError(t, err)

	err = svc.DeleteClosing(ctx, closing.ID)
	assert.ErrorIs(t, err, repository.ErrClosingHasEntries)

	// 记录还在
	var count int64
	require.NoError(t, db.Model(&model.CashClosing{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestDeleteClosing_SucceedsWithoutEntries(t *testing.T) {
	db := setupTestDB(t)
	svc := NewClosingService(db, nil, testConfig())
	ctx := context.Background()

	// 空日结：没有任何流水被认领，允许删除
	day := time.Date(2024, 5, 10, 0, 0, 0, 0, time.Local)
	closing, counts, err := svc.CloseDay(ctx, day)
	require.NoError(t, err)
	require.Equal(t, 0, counts.Total)

	require.NoError(t, svc.DeleteClosing(ctx, closing.ID))

	var count int64
	require.NoError(t, db.Model(&model.CashClosing{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestDeleteClosing_NotFound(t *testing.T) {
	db := setupTestDB(t)
	svc := NewClosingService(db, nil, testConfig())

	err := svc.DeleteClosing(context.Background(), 9999)
	assert.ErrorIs(t, err, repository.ErrClosingNotFound)
}

func TestParseBusinessDate(t *testing.T) {
	d, err := ParseBusinessDate("2024-05-01")
	require.NoError(t, err)
	assert.Equal(t, 2024, d.Year())
	assert.Equal(t, time.May, d.Month())
	assert.Equal(t, 1, d.Day())

	_, err = ParseBusinessDate("01/05/2024")
	assert.ErrorIs(t, err, ErrInvalidDate)

	_, err = ParseBusinessDate("")
	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestDayBounds(t *testing.T) {
	d := time.Date(2024, 5, 1, 15, 30, 45, 0, time.Local)
	start, end := DayBounds(d)

	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.Local), start)
	assert.Equal(t, time.Date(2024, 5, 1, 23, 59, 59, 999000000, time.Local), end)
}
