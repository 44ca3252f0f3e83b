package repository

import (
	"context"
	"errors"

	"barbershop/internal/model"

	"gorm.io/gorm"
)

var ErrServiceNotFound = errors.New("服务项目不存在")

type ServiceRepository struct {
	db *gorm.DB
}

func NewServiceRepository(db *gorm.DB) *ServiceRepository {
	return &ServiceRepository{db: db}
}

func (r *ServiceRepository) Create(ctx context.Context, svc *model.Service) error {
	return r.db.WithContext(ctx).Create(svc).Error
}

func (r *ServiceRepository) GetByID(ctx context.Context, id int64) (*model.Service, error) {
	var svc model.Service
	err := r.db.WithContext(ctx).First(&svc, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrServiceNotFound
		}
		return nil, err
	}
	return &svc, nil
}

func (r *ServiceRepository) List(ctx context.Context) ([]*model.Service, error) {
	var services []*model.Service
	err := r.db.WithContext(ctx).Order("name ASC").Find(&services).Error
	return services, err
}

func (r *ServiceRepository) ListInactive(ctx context.Context) ([]*model.Service, error) {
	var services []*model.Service
	err := r.db.WithContext(ctx).Where("active = ?", false).Order("name ASC").Find(&services).Error
	return services, err
}

func (r *ServiceRepository) Update(ctx context.Context, svc *model.Service) error {
	return r.db.WithContext(ctx).Save(svc).Error
}

func (r *ServiceRepository) Delete(ctx context.Context, tx *gorm.DB, id int64) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Delete(&model.Service{}, id).Error
}

func (r *ServiceRepository) CountAppointments(ctx context.Context, tx *gorm.DB, serviceID int64) (int64, error) {
	if tx == nil {
		tx = r.db
	}
	var count int64
	err := tx.WithContext(ctx).
		Model(&model.Appointment{}).
		Where("service_id = ?", serviceID).
		Count(&count).Error
	return count, err
}
