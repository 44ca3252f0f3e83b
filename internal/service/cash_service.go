package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"barbershop/internal/model"
	"barbershop/internal/repository"
	"barbershop/pkg/idgen"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CashService 现金流水管理
type CashService struct {
	db              *gorm.DB
	entryRepo       *repository.CashEntryRepository
	appointmentRepo *repository.AppointmentRepository
}

func NewCashService(db *gorm.DB) *CashService {
	return &CashService{
		db:              db,
		entryRepo:       repository.NewCashEntryRepository(db),
		appointmentRepo: repository.NewAppointmentRepository(db),
	}
}

type CreateEntryRequest struct {
	Kind          string          `json:"kind"`
	Description   string          `json:"description"`
	Amount        decimal.Decimal `json:"amount"`
	OccurredAt    *time.Time      `json:"occurred_at"`
	AppointmentID *int64          `json:"appointment_id"`
}

func (s *CashService) CreateEntry(ctx context.Context, req *CreateEntryRequest) (*model.CashEntry, error) {
	if req.Kind != model.EntryKindInflow && req.Kind != model.EntryKindOutflow {
		return nil, errors.New("流水方向必须是 INFLOW 或 OUTFLOW")
	}
	if req.Description == "" {
		return nil, errors.New("描述不能为空")
	}
	if req.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, errors.New("金额必须大于0")
	}

	// 关联了预约时，校验预约存在
	if req.AppointmentID != nil {
		if _, err := s.appointmentRepo.GetByID(ctx, *req.AppointmentID); err != nil {
			return nil, err
		}
	}

	occurredAt := time.Now()
	if req.OccurredAt != nil {
		occurredAt = *req.OccurredAt
	}

	entry := &model.CashEntry{
		EntryNo:       idgen.GenerateEntryNo(),
		Kind:          req.Kind,
		Description:   req.Description,
		Amount:        req.Amount,
		OccurredAt:    occurredAt,
		AppointmentID: req.AppointmentID,
	}

	if err := s.entryRepo.Create(ctx, nil, entry); err != nil {
		return nil, fmt.Errorf("创建流水失败: %w", err)
	}

	return entry, nil
}

func (s *CashService) GetEntry(ctx context.Context, id int64) (*model.CashEntry, error) {
	return s.entryRepo.GetByID(ctx, id)
}

func (s *CashService) ListEntries(ctx context.Context) ([]*model.CashEntry, error) {
	return s.entryRepo.List(ctx)
}

type UpdateEntryRequest struct {
	Kind        *string          `json:"kind"`
	Description *string          `json:"description"`
	Amount      *decimal.Decimal `json:"amount"`
	OccurredAt  *time.Time       `json:"occurred_at"`
}

// UpdateEntry 修改流水
// 已被日结认领的流水一律拒绝修改，保证日结结果可复现
func (s *CashService) UpdateEntry(ctx context.Context, id int64, req *UpdateEntryRequest) (*model.CashEntry, error) {
	entry, err := s.entryRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if entry.Claimed() {
		return nil, repository.ErrEntryClaimed
	}

	if req.Kind != nil {
		if *req.Kind != model.EntryKindInflow && *req.Kind != model.EntryKindOutflow {
			return nil, errors.New("流水方向必须是 INFLOW 或 OUTFLOW")
		}
		entry.Kind = *req.Kind
	}
	if req.Description != nil {
		if *req.Description == "" {
			return nil, errors.New("描述不能为空")
		}
		entry.Description = *req.Description
	}
	if req.Amount != nil {
		if req.Amount.LessThanOrEqual(decimal.Zero) {
			return nil, errors.New("金额必须大于0")
		}
		entry.Amount = *req.Amount
	}
	if req.OccurredAt != nil {
		entry.OccurredAt = *req.OccurredAt
	}

	if err := s.entryRepo.Update(ctx, entry); err != nil {
		return nil, fmt.Errorf("更新流水失败: %w", err)
	}

	return entry, nil
}

// DeleteEntry 删除流水
// 引用检查和删除在同一个事务内执行，避免检查后、删除前被日结认领
func (s *CashService) DeleteEntry(ctx context.Context, id int64) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var entry model.CashEntry
		if err := tx.WithContext(ctx).First(&entry, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return repository.ErrEntryNotFound
			}
			return err
		}

		if entry.Claimed() {
			return repository.ErrEntryClaimed
		}

		return s.entryRepo.Delete(ctx, tx, id)
	})
}
