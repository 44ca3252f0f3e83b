package service

import (
	"context"
	"encoding/json"
	"log"
	"sort"
	"time"

	"barbershop/internal/config"
	"barbershop/internal/model"
	"barbershop/internal/repository"

	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const dashboardCacheKey = "dashboard:summary"

// DashboardService 仪表盘汇总
// 汇总结果写入 Redis 短时缓存，避免每次刷新页面都全表扫描
type DashboardService struct {
	db              *gorm.DB
	redisClient     *redis.Client
	cfg             *config.Config
	clientRepo      *repository.ClientRepository
	serviceRepo     *repository.ServiceRepository
	appointmentRepo *repository.AppointmentRepository
}

func NewDashboardService(db *gorm.DB, redisClient *redis.Client, cfg *config.Config) *DashboardService {
	return &DashboardService{
		db:              db,
		redisClient:     redisClient,
		cfg:             cfg,
		clientRepo:      repository.NewClientRepository(db),
		serviceRepo:     repository.NewServiceRepository(db),
		appointmentRepo: repository.NewAppointmentRepository(db),
	}
}

type StatusCount struct {
	Status string `json:"status"`
	Total  int    `json:"total"`
}

type ServiceCount struct {
	Service string `json:"service"`
	Total   int    `json:"total"`
}

type BarberRevenue struct {
	Barber  string          `json:"barber"`
	Revenue decimal.Decimal `json:"revenue"`
}

type ClientSummary struct {
	ID                int64           `json:"id"`
	Name              string          `json:"name"`
	Phone             string          `json:"phone"`
	TotalAppointments int             `json:"total_appointments"`
	TotalSpent        decimal.Decimal `json:"total_spent"`
}

type AppointmentSummary struct {
	ID      int64  `json:"id"`
	Client  string `json:"client"`
	Service string `json:"service"`
	Barber  string `json:"barber"`
	Status  string `json:"status"`
}

type DashboardSummary struct {
	TotalClients         int              `json:"total_clients"`
	TotalAppointments    int              `json:"total_appointments"`
	TotalRevenue         decimal.Decimal  `json:"total_revenue"`
	AverageTicket        decimal.Decimal  `json:"average_ticket"`
	AppointmentsByStatus []StatusCount    `json:"appointments_by_status"`
	TopServices          []ServiceCount   `json:"top_services"`
	RevenueByBarber      []BarberRevenue  `json:"revenue_by_barber"`
	TopClients           []ClientSummary  `json:"top_clients"`
	RecentAppointments   []AppointmentSummary `json:"recent_appointments"`
	InactiveServices     []*model.Service `json:"inactive_services"`
	GeneratedAt          time.Time        `json:"generated_at"`
}

// GetSummary 生成仪表盘汇总数据
func (s *DashboardService) GetSummary(ctx context.Context) (*DashboardSummary, error) {
	// 先查缓存
	if s.redisClient != nil {
		cached, err := s.redisClient.Get(ctx, dashboardCacheKey).Result()
		if err == nil {
			summary := &DashboardSummary{}
			if unmarshalErr := json.Unmarshal([]byte(cached), summary); unmarshalErr == nil {
				return summary, nil
			}
		}
	}

	clients, err := s.clientRepo.List(ctx)
	if err != nil {
		return nil, err
	}

	appointments, err := s.appointmentRepo.ListAllWithRefs(ctx)
	if err != nil {
		return nil, err
	}

	summary := &DashboardSummary{
		TotalClients:      len(clients),
		TotalAppointments: len(appointments),
		TotalRevenue:      decimal.Zero,
		AverageTicket:     decimal.Zero,
		GeneratedAt:       time.Now(),
	}

	statusMap := map[string]int{}
	serviceMap := map[string]int{}
	barberMap := map[string]decimal.Decimal{}
	clientCountMap := map[int64]int{}
	clientSpentMap := map[int64]decimal.Decimal{}
	completedCount := 0

	for _, ag := range appointments {
		statusMap[ag.Status]++

		serviceName := "未知服务"
		if ag.Service != nil {
			serviceName = ag.Service.Name
		}
		serviceMap[serviceName]++

		clientCountMap[ag.ClientID]++

		// 营收只统计已完成的预约
		if ag.Status == model.AppointmentStatusCompleted {
			completedCount++
			summary.TotalRevenue = summary.TotalRevenue.Add(ag.Price)

			barberName := "未指定理发师"
			if ag.Barber != nil {
				barberName = ag.Barber.Name
			}
			if _, ok := barberMap[barberName]; !ok {
				barberMap[barberName] = decimal.Zero
			}
			barberMap[barberName] = barberMap[barberName].Add(ag.Price)

			if _, ok := clientSpentMap[ag.ClientID]; !ok {
				clientSpentMap[ag.ClientID] = decimal.Zero
			}
			clientSpentMap[ag.ClientID] = clientSpentMap[ag.ClientID].Add(ag.Price)
		}
	}

	if completedCount > 0 {
		summary.AverageTicket = summary.TotalRevenue.DivRound(decimal.NewFromInt(int64(completedCount)), 2)
	}

	for status, total := range statusMap {
		summary.AppointmentsByStatus = append(summary.AppointmentsByStatus, StatusCount{Status: status, Total: total})
	}
	sort.Slice(summary.AppointmentsByStatus, func(i, j int) bool {
		return summary.AppointmentsByStatus[i].Total > summary.AppointmentsByStatus[j].Total
	})

	for name, total := range serviceMap {
		summary.TopServices = append(summary.TopServices, ServiceCount{Service: name, Total: total})
	}
	sort.Slice(summary.TopServices, func(i, j int) bool {
		return summary.TopServices[i].Total > summary.TopServices[j].Total
	})
	if len(summary.TopServices) > 5 {
		summary.TopServices = summary.TopServices[:5]
	}

	for name, revenue := range barberMap {
		summary.RevenueByBarber = append(summary.RevenueByBarber, BarberRevenue{Barber: name, Revenue: revenue})
	}
	sort.Slice(summary.RevenueByBarber, func(i, j int) bool {
		return summary.RevenueByBarber[i].Revenue.GreaterThan(summary.RevenueByBarber[j].Revenue)
	})

	for _, client := range clients {
		spent := clientSpentMap[client.ID]
		if spent.IsZero() {
			spent = decimal.Zero
		}
		summary.TopClients = append(summary.TopClients, ClientSummary{
			ID:                client.ID,
			Name:              client.Name,
			Phone:             client.Phone,
			TotalAppointments: clientCountMap[client.ID],
			TotalSpent:        spent,
		})
	}
	sort.Slice(summary.TopClients, func(i, j int) bool {
		return summary.TopClients[i].TotalAppointments > summary.TopClients[j].TotalAppointments
	})
	if len(summary.TopClients) > 5 {
		summary.TopClients = summary.TopClients[:5]
	}

	recent := appointments
	sort.Slice(recent, func(i, j int) bool {
		return recent[i].ScheduledAt.After(recent[j].ScheduledAt)
	})
	for i, ag := range recent {
		if i >= 5 {
			break
		}
		item := AppointmentSummary{ID: ag.ID, Status: ag.Status, Client: "未知客户", Service: "未知服务", Barber: "未指定理发师"}
		if ag.Client != nil {
			item.Client = ag.Client.Name
		}
		if ag.Service != nil {
			item.Service = ag.Service.Name
		}
		if ag.Barber != nil {
			item.Barber = ag.Barber.Name
		}
		summary.RecentAppointments = append(summary.RecentAppointments, item)
	}

	inactive, err := s.serviceRepo.ListInactive(ctx)
	if err != nil {
		return nil, err
	}
	summary.InactiveServices = inactive

	// 写缓存，失败只记日志不影响返回
	if s.redisClient != nil {
		if data, marshalErr := json.Marshal(summary); marshalErr == nil {
			ttl := time.Duration(s.cfg.Business.DashboardCacheSeconds) * time.Second
			if err := s.redisClient.Set(ctx, dashboardCacheKey, data, ttl).Err(); err != nil {
				log.Printf("写入仪表盘缓存失败: %v", err)
			}
		}
	}

	return summary, nil
}
