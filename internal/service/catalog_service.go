package service

import (
	"context"
	"errors"
	"fmt"

	"barbershop/internal/model"
	"barbershop/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CatalogService 服务项目管理
type CatalogService struct {
	db          *gorm.DB
	serviceRepo *repository.ServiceRepository
}

func NewCatalogService(db *gorm.DB) *CatalogService {
	return &CatalogService{
		db:          db,
		serviceRepo: repository.NewServiceRepository(db),
	}
}

type CreateServiceRequest struct {
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	DurationMin int             `json:"duration_min"`
	Active      *bool           `json:"active"`
}

func (s *CatalogService) CreateService(ctx context.Context, req *CreateServiceRequest) (*model.Service, error) {
	if req.Name == "" {
		return nil, errors.New("名称不能为空")
	}
	if req.Price.LessThanOrEqual(decimal.Zero) {
		return nil, errors.New("单价必须大于0")
	}
	if req.DurationMin <= 0 {
		return nil, errors.New("时长必须大于0")
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	svc := &model.Service{
		Name:        req.Name,
		Price:       req.Price,
		DurationMin: req.DurationMin,
		Active:      active,
	}

	if err := s.serviceRepo.Create(ctx, svc); err != nil {
		return nil, fmt.Errorf("创建服务项目失败: %w", err)
	}

	return svc, nil
}

func (s *CatalogService) GetService(ctx context.Context, id int64) (*model.Service, error) {
	return s.serviceRepo.GetByID(ctx, id)
}

func (s *CatalogService) ListServices(ctx context.Context) ([]*model.Service, error) {
	return s.serviceRepo.List(ctx)
}

type UpdateServiceRequest struct {
	Name        *string          `json:"name"`
	Price       *decimal.Decimal `json:"price"`
	DurationMin *int             `json:"duration_min"`
	Active      *bool            `json:"active"`
}

func (s *CatalogService) UpdateService(ctx context.Context, id int64, req *UpdateServiceRequest) (*model.Service, error) {
	svc, err := s.serviceRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		if *req.Name == "" {
			return nil, errors.New("名称不能为空")
		}
		svc.Name = *req.Name
	}
	if req.Price != nil {
		if req.Price.LessThanOrEqual(decimal.Zero) {
			return nil, errors.New("单价必须大于0")
		}
		svc.Price = *req.Price
	}
	if req.DurationMin != nil {
		if *req.DurationMin <= 0 {
			return nil, errors.New("时长必须大于0")
		}
		svc.DurationMin = *req.DurationMin
	}
	if req.Active != nil {
		svc.Active = *req.Active
	}

	if err := s.serviceRepo.Update(ctx, svc); err != nil {
		return nil, fmt.Errorf("更新服务项目失败: %w", err)
	}

	return svc, nil
}

// DeleteService 删除服务项目，仍被预约引用时拒绝
func (s *CatalogService) DeleteService(ctx context.Context, id int64) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var svc model.Service
		if err := tx.WithContext(ctx).First(&svc, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return repository.ErrServiceNotFound
			}
			return err
		}

		count, err := s.serviceRepo.CountAppointments(ctx, tx, id)
		if err != nil {
			return fmt.Errorf("查询关联预约失败: %w", err)
		}
		if count > 0 {
			return errors.New("服务项目仍被预约引用，不允许删除")
		}

		return s.serviceRepo.Delete(ctx, tx, id)
	})
}
