package service

import (
	"context"
	"errors"
	"fmt"

	"barbershop/internal/model"
	"barbershop/internal/repository"

	"gorm.io/gorm"
)

// ClientService 客户管理
type ClientService struct {
	db         *gorm.DB
	clientRepo *repository.ClientRepository
}

func NewClientService(db *gorm.DB) *ClientService {
	return &ClientService{
		db:         db,
		clientRepo: repository.NewClientRepository(db),
	}
}

type CreateClientRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Notes string `json:"notes"`
}

func (s *ClientService) CreateClient(ctx context.Context, req *CreateClientRequest) (*model.Client, error) {
	if req.Name == "" {
		return nil, errors.New("姓名不能为空")
	}
	if req.Phone == "" {
		return nil, errors.New("电话不能为空")
	}

	client := &model.Client{
		Name:  req.Name,
		Phone: req.Phone,
		Notes: req.Notes,
	}

	if err := s.clientRepo.Create(ctx, client); err != nil {
		return nil, fmt.Errorf("创建客户失败: %w", err)
	}

	return client, nil
}

func (s *ClientService) GetClient(ctx context.Context, id int64) (*model.Client, error) {
	return s.clientRepo.GetByID(ctx, id)
}

func (s *ClientService) ListClients(ctx context.Context) ([]*model.Client, error) {
	return s.clientRepo.List(ctx)
}

type UpdateClientRequest struct {
	Name  *string `json:"name"`
	Phone *string `json:"phone"`
	Notes *string `json:"notes"`
}

func (s *ClientService) UpdateClient(ctx context.Context, id int64, req *UpdateClientRequest) (*model.Client, error) {
	client, err := s.clientRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		if *req.Name == "" {
			return nil, errors.New("姓名不能为空")
		}
		client.Name = *req.Name
	}
	if req.Phone != nil {
		if *req.Phone == "" {
			return nil, errors.New("电话不能为空")
		}
		client.Phone = *req.Phone
	}
	if req.Notes != nil {
		client.Notes = *req.Notes
	}

	if err := s.clientRepo.Update(ctx, client); err != nil {
		return nil, fmt.Errorf("更新客户失败: %w", err)
	}

	return client, nil
}

// DeleteClient 删除客户，名下仍有预约时拒绝
func (s *ClientService) DeleteClient(ctx context.Context, id int64) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var client model.Client
		if err := tx.WithContext(ctx).First(&client, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return repository.ErrClientNotFound
			}
			return err
		}

		count, err := s.clientRepo.CountAppointments(ctx, tx, id)
		if err != nil {
			return fmt.Errorf("查询关联预约失败: %w", err)
		}
		if count > 0 {
			return errors.New("客户名下存在预约，不允许删除")
		}

		return s.clientRepo.Delete(ctx, tx, id)
	})
}
