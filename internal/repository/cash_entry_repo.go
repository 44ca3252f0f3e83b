package repository

import (
	"context"
	"errors"
	"time"

	"barbershop/internal/model"

	"gorm.io/gorm"
)

var (
	ErrEntryNotFound = errors.New("现金流水不存在")
	ErrEntryClaimed  = errors.New("流水已被日结认领，不允许修改或删除")
)

type CashEntryRepository struct {
	db *gorm.DB
}

func NewCashEntryRepository(db *gorm.DB) *CashEntryRepository {
	return &CashEntryRepository{db: db}
}

func (r *CashEntryRepository) Create(ctx context.Context, tx *gorm.DB, entry *model.CashEntry) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(entry).Error
}

func (r *CashEntryRepository) GetByID(ctx context.Context, id int64) (*model.CashEntry, error) {
	var entry model.CashEntry
	err := r.db.WithContext(ctx).
		Preload("Appointment").
		Preload("Appointment.Client").
		Preload("Appointment.Service").
		Preload("Closing").
		First(&entry, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEntryNotFound
		}
		return nil, err
	}
	return &entry, nil
}

func (r *CashEntryRepository) List(ctx context.Context) ([]*model.CashEntry, error) {
	var entries []*model.CashEntry
	err := r.db.WithContext(ctx).
		Preload("Appointment").
		Preload("Appointment.Client").
		Preload("Appointment.Service").
		Preload("Closing").
		Order("occurred_at DESC").
		Find(&entries).Error
	return entries, err
}

// ListByOccurredRange 查询发生时间落在 [start, end] 内的流水（两端闭区间）
// 日结引擎按此圈定一个营业日的全部流水
func (r *CashEntryRepository) ListByOccurredRange(ctx context.Context, tx *gorm.DB, start, end time.Time) ([]*model.CashEntry, error) {
	if tx == nil {
		tx = r.db
	}
	var entries []*model.CashEntry
	err := tx.WithContext(ctx).
		Where("occurred_at >= ? AND occurred_at <= ?", start, end).
		Order("occurred_at ASC").
		Find(&entries).Error
	return entries, err
}

func (r *CashEntryRepository) Update(ctx context.Context, entry *model.CashEntry) error {
	return r.db.WithContext(ctx).Save(entry).Error
}

func (r *CashEntryRepository) Delete(ctx context.Context, tx *gorm.DB, id int64) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Delete(&model.CashEntry{}, id).Error
}

// ClaimByOccurredRange 把范围内的流水认领到指定日结记录
// 与日结 upsert 同一个事务执行，保证总额与认领关系不会错位
func (r *CashEntryRepository) ClaimByOccurredRange(ctx context.Context, tx *gorm.DB, closingID int64, start, end time.Time) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).
		Model(&model.CashEntry{}).
		Where("occurred_at >= ? AND occurred_at <= ?", start, end).
		Update("closing_id", closingID).Error
}

// CountByClosingID 统计被指定日结认领的流水数，删除日结前的引用检查用
func (r *CashEntryRepository) CountByClosingID(ctx context.Context, tx *gorm.DB, closingID int64) (int64, error) {
	if tx == nil {
		tx = r.db
	}
	var count int64
	err := tx.WithContext(ctx).
		Model(&model.CashEntry{}).
		Where("closing_id = ?", closingID).
		Count(&count).Error
	return count, err
}
