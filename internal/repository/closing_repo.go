package repository

import (
	"context"
	"errors"
	"time"

	"barbershop/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrClosingNotFound   = errors.New("日结记录不存在")
	ErrClosingHasEntries = errors.New("日结记录仍有流水关联，不允许删除")
)

type ClosingRepository struct {
	db *gorm.DB
}

func NewClosingRepository(db *gorm.DB) *ClosingRepository {
	return &ClosingRepository{db: db}
}

// Upsert 按 business_date 创建或覆盖更新日结记录
//
// 【关键点】business_date 上有唯一索引，ON CONFLICT DO UPDATE 把
// "查询是否存在 + 创建/更新" 压成一条原子语句。即使两个请求同时日结
// 同一天，也只会留下一条记录，后写的totals覆盖先写的。
func (r *ClosingRepository) Upsert(ctx context.Context, tx *gorm.DB, closing *model.CashClosing) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "business_date"}},
			DoUpdates: clause.AssignmentColumns([]string{"total_inflow", "total_outflow", "net_balance", "updated_at"}),
		}).
		Create(closing).Error
}

// GetByDate 查询指定营业日的日结记录，不存在时返回 nil
func (r *ClosingRepository) GetByDate(ctx context.Context, tx *gorm.DB, businessDate time.Time) (*model.CashClosing, error) {
	if tx == nil {
		tx = r.db
	}
	var closing model.CashClosing
	err := tx.WithContext(ctx).
		Where("business_date = ?", businessDate).
		First(&closing).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &closing, nil
}

func (r *ClosingRepository) GetByID(ctx context.Context, id int64) (*model.CashClosing, error) {
	var closing model.CashClosing
	err := r.db.WithContext(ctx).
		Preload("Entries").
		First(&closing, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrClosingNotFound
		}
		return nil, err
	}
	return &closing, nil
}

func (r *ClosingRepository) List(ctx context.Context) ([]*model.CashClosing, error) {
	var closings []*model.CashClosing
	err := r.db.WithContext(ctx).
		Preload("Entries").
		Order("business_date DESC").
		Find(&closings).Error
	return closings, err
}

func (r *ClosingRepository) Delete(ctx context.Context, tx *gorm.DB, id int64) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Delete(&model.CashClosing{}, id).Error
}
