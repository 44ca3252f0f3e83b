package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"barbershop/internal/config"
	"barbershop/internal/model"
	"barbershop/internal/repository"
	"barbershop/pkg/idgen"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// AppointmentService 预约管理
type AppointmentService struct {
	db              *gorm.DB
	cfg             *config.Config
	appointmentRepo *repository.AppointmentRepository
	clientRepo      *repository.ClientRepository
	serviceRepo     *repository.ServiceRepository
	userRepo        *repository.UserRepository
	entryRepo       *repository.CashEntryRepository
	outboxRepo      *repository.OutboxRepository
}

func NewAppointmentService(db *gorm.DB, cfg *config.Config) *AppointmentService {
	return &AppointmentService{
		db:              db,
		cfg:             cfg,
		appointmentRepo: repository.NewAppointmentRepository(db),
		clientRepo:      repository.NewClientRepository(db),
		serviceRepo:     repository.NewServiceRepository(db),
		userRepo:        repository.NewUserRepository(db),
		entryRepo:       repository.NewCashEntryRepository(db),
		outboxRepo:      repository.NewOutboxRepository(db),
	}
}

type CreateAppointmentRequest struct {
	ClientID    int64            `json:"client_id"`
	ServiceID   int64            `json:"service_id"`
	BarberID    *int64           `json:"barber_id"`
	ScheduledAt time.Time        `json:"scheduled_at"`
	Price       *decimal.Decimal `json:"price"` // 不传时取服务项目单价
}

func (s *AppointmentService) CreateAppointment(ctx context.Context, req *CreateAppointmentRequest) (*model.Appointment, error) {
	if _, err := s.clientRepo.GetByID(ctx, req.ClientID); err != nil {
		return nil, err
	}

	svc, err := s.serviceRepo.GetByID(ctx, req.ServiceID)
	if err != nil {
		return nil, err
	}

	if req.BarberID != nil {
		if _, err := s.userRepo.GetByID(ctx, *req.BarberID); err != nil {
			return nil, err
		}
	}

	price := svc.Price
	if req.Price != nil {
		price = *req.Price
	}
	if price.LessThanOrEqual(decimal.Zero) {
		return nil, errors.New("金额必须大于0")
	}

	appointment := &model.Appointment{
		AppointmentNo: idgen.GenerateAppointmentNo(),
		ClientID:      req.ClientID,
		ServiceID:     req.ServiceID,
		BarberID:      req.BarberID,
		ScheduledAt:   req.ScheduledAt,
		Status:        model.AppointmentStatusScheduled,
		Price:         price,
	}

	if err := s.appointmentRepo.Create(ctx, nil, appointment); err != nil {
		return nil, fmt.Errorf("创建预约失败: %w", err)
	}

	return appointment, nil
}

func (s *AppointmentService) GetAppointment(ctx context.Context, id int64) (*model.Appointment, error) {
	return s.appointmentRepo.GetByID(ctx, id)
}

func (s *AppointmentService) ListAppointments(ctx context.Context) ([]*model.Appointment, error) {
	return s.appointmentRepo.List(ctx)
}

type UpdateAppointmentRequest struct {
	BarberID    *int64           `json:"barber_id"`
	ScheduledAt *time.Time       `json:"scheduled_at"`
	Price       *decimal.Decimal `json:"price"`
}

func (s *AppointmentService) UpdateAppointment(ctx context.Context, id int64, req *UpdateAppointmentRequest) (*model.Appointment, error) {
	appointment, err := s.appointmentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.BarberID != nil {
		if _, err := s.userRepo.GetByID(ctx, *req.BarberID); err != nil {
			return nil, err
		}
		appointment.BarberID = req.BarberID
	}
	if req.ScheduledAt != nil {
		appointment.ScheduledAt = *req.ScheduledAt
	}
	if req.Price != nil {
		if req.Price.LessThanOrEqual(decimal.Zero) {
			return nil, errors.New("金额必须大于0")
		}
		appointment.Price = *req.Price
	}

	if err := s.appointmentRepo.Update(ctx, appointment); err != nil {
		return nil, fmt.Errorf("更新预约失败: %w", err)
	}

	return appointment, nil
}

// UpdateStatus 推进预约状态（确认/取消/未到店）
func (s *AppointmentService) UpdateStatus(ctx context.Context, id int64, toStatus string) (*model.Appointment, error) {
	appointment, err := s.appointmentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.appointmentRepo.UpdateStatus(ctx, nil, id, appointment.Status, toStatus); err != nil {
		return nil, err
	}

	appointment.Status = toStatus
	return appointment, nil
}

// Complete 完成预约
//
// 【关键点】收款完成时，状态推进、现金流水写入、事件写入必须在同一个
// 事务内完成。任何一步失败都整体回滚，不会出现"预约完成了但钱没记账"。
func (s *AppointmentService) Complete(ctx context.Context, id int64, paid bool) (*model.Appointment, error) {
	appointment, err := s.appointmentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.appointmentRepo.UpdateStatus(ctx, tx, id, appointment.Status, model.AppointmentStatusCompleted); err != nil {
			return err
		}

		if paid {
			serviceName := ""
			if appointment.Service != nil {
				serviceName = appointment.Service.Name
			}
			entry := &model.CashEntry{
				EntryNo:       idgen.GenerateEntryNo(),
				Kind:          model.EntryKindInflow,
				Description:   fmt.Sprintf("服务收款-%s-%s", serviceName, appointment.AppointmentNo),
				Amount:        appointment.Price,
				OccurredAt:    time.Now(),
				AppointmentID: &appointment.ID,
			}
			if err := s.entryRepo.Create(ctx, tx, entry); err != nil {
				return fmt.Errorf("记录流水失败: %w", err)
			}
		}

		msgPayload := map[string]interface{}{
			"appointment_no": appointment.AppointmentNo,
			"client_id":      appointment.ClientID,
			"service_id":     appointment.ServiceID,
			"price":          appointment.Price.StringFixed(2),
			"paid":           paid,
			"completed_at":   time.Now().Format(time.RFC3339),
		}
		payloadBytes, _ := json.Marshal(msgPayload)

		outboxMsg := &model.OutboxMessage{
			MessageKey: appointment.AppointmentNo,
			Topic:      s.cfg.Kafka.Topic.AppointmentCompleted,
			Payload:    string(payloadBytes),
			Status:     model.OutboxStatusPending,
		}
		if err := s.outboxRepo.Create(ctx, tx, outboxMsg); err != nil {
			return fmt.Errorf("写入消息失败: %w", err)
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	log.Printf("预约完成: appointmentNo=%s, paid=%v, price=%s",
		appointment.AppointmentNo, paid, appointment.Price.StringFixed(2))

	appointment.Status = model.AppointmentStatusCompleted
	return appointment, nil
}

// DeleteAppointment 删除预约，存在关联流水时拒绝
func (s *AppointmentService) DeleteAppointment(ctx context.Context, id int64) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var appointment model.Appointment
		if err := tx.WithContext(ctx).First(&appointment, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return repository.ErrAppointmentNotFound
			}
			return err
		}

		count, err := s.appointmentRepo.CountCashEntries(ctx, tx, id)
		if err != nil {
			return fmt.Errorf("查询关联流水失败: %w", err)
		}
		if count > 0 {
			return errors.New("预约存在关联的现金流水，不允许删除")
		}

		return s.appointmentRepo.Delete(ctx, tx, id)
	})
}

// MarkOverdueNoShow 把过期未到店的预约标记为 NO_SHOW（后台任务调用）
func (s *AppointmentService) MarkOverdueNoShow(ctx context.Context, graceMinutes, limit int) (int, error) {
	beforeTime := time.Now().Add(-time.Duration(graceMinutes) * time.Minute)
	appointments, err := s.appointmentRepo.GetOverdueScheduled(ctx, beforeTime, limit)
	if err != nil {
		return 0, err
	}

	markedCount := 0
	for _, appointment := range appointments {
		err := s.appointmentRepo.UpdateStatus(ctx, nil, appointment.ID, model.AppointmentStatusScheduled, model.AppointmentStatusNoShow)
		if err == nil {
			markedCount++
		}
	}

	return markedCount, nil
}
