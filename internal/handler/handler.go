package handler

import (
	"errors"
	"strconv"
	"time"

	"barbershop/internal/config"
	"barbershop/internal/repository"
	"barbershop/internal/service"
	"barbershop/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Handler 统一处理器，包含所有服务依赖
type Handler struct {
	closingService     *service.ClosingService
	cashService        *service.CashService
	appointmentService *service.AppointmentService
	clientService      *service.ClientService
	catalogService     *service.CatalogService
	userService        *service.UserService
	dashboardService   *service.DashboardService
}

// NewHandler 创建处理器实例
func NewHandler(db *gorm.DB, rdb *redis.Client, cfg *config.Config) *Handler {
	return &Handler{
		closingService:     service.NewClosingService(db, rdb, cfg),
		cashService:        service.NewCashService(db),
		appointmentService: service.NewAppointmentService(db, cfg),
		clientService:      service.NewClientService(db),
		catalogService:     service.NewCatalogService(db),
		userService:        service.NewUserService(db),
		dashboardService:   service.NewDashboardService(db, rdb, cfg),
	}
}

func parseIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ParamError(c, "id 参数错误")
		return 0, false
	}
	return id, true
}

// ============================================================
// 日结相关接口
// ============================================================

// CloseToday 对今天执行日结
// GET /api/v1/closings/today
//
// 【关键点】日结由服务端按流水表自行汇总，客户端不传任何金额。
// 汇总、写入、流水认领是一个事务，重复调用幂等。
func (h *Handler) CloseToday(c *gin.Context) {
	closing, counts, err := h.closingService.CloseDay(c.Request.Context(), time.Now())
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, gin.H{
		"closing":      closing,
		"entry_counts": counts,
	})
}

// CloseDayRequest 补结请求
type CloseDayRequest struct {
	Date string `json:"date" binding:"required"` // yyyy-MM-dd
}

// CloseDay 对指定营业日执行日结（补结历史日期用）
// POST /api/v1/closings/close
func (h *Handler) CloseDay(c *gin.Context) {
	var req CloseDayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	businessDate, err := service.ParseBusinessDate(req.Date)
	if err != nil {
		response.BusinessError(c, response.CodeInvalidDate, err.Error())
		return
	}

	closing, counts, err := h.closingService.CloseDay(c.Request.Context(), businessDate)
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, gin.H{
		"closing":      closing,
		"entry_counts": counts,
	})
}

// ListClosings 查询日结列表
// GET /api/v1/closings
func (h *Handler) ListClosings(c *gin.Context) {
	closings, err := h.closingService.ListClosings(c.Request.Context())
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}
	response.Success(c, closings)
}

// GetClosing 查询日结详情（含认领的流水）
// GET /api/v1/closings/:id
func (h *Handler) GetClosing(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	closing, err := h.closingService.GetClosing(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrClosingNotFound) {
			response.NotFound(c, err.Error())
			return
		}
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, closing)
}

// DeleteClosing 删除日结记录
// DELETE /api/v1/closings/:id
// 仍有流水关联时返回 400 + 业务码
func (h *Handler) DeleteClosing(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	err := h.closingService.DeleteClosing(c.Request.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrClosingNotFound):
			response.NotFound(c, err.Error())
		case errors.Is(err, repository.ErrClosingHasEntries):
			response.BusinessError(c, response.CodeClosingHasEntries, err.Error())
		default:
			response.ServerError(c, err.Error())
		}
		return
	}

	response.Success(c, gin.H{"message": "日结记录已删除"})
}

// ============================================================
// 现金流水相关接口
// ============================================================

// CreateEntryRequest 创建流水请求
type CreateEntryRequest struct {
	Kind          string          `json:"kind" binding:"required"`
	Description   string          `json:"description" binding:"required"`
	Amount        decimal.Decimal `json:"amount" binding:"required"`
	OccurredAt    *time.Time      `json:"occurred_at"`
	AppointmentID *int64          `json:"appointment_id"`
}

// CreateEntry 创建现金流水
// POST /api/v1/cash-entries
func (h *Handler) CreateEntry(c *gin.Context) {
	var req CreateEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	entry, err := h.cashService.CreateEntry(c.Request.Context(), &service.CreateEntryRequest{
		Kind:          req.Kind,
		Description:   req.Description,
		Amount:        req.Amount,
		OccurredAt:    req.OccurredAt,
		AppointmentID: req.AppointmentID,
	})
	if err != nil {
		if errors.Is(err, repository.ErrAppointmentNotFound) {
			response.NotFound(c, err.Error())
			return
		}
		response.ParamError(c, err.Error())
		return
	}

	response.Success(c, entry)
}

// ListEntries 查询流水列表
// GET /api/v1/cash-entries
func (h *Handler) ListEntries(c *gin.Context) {
	entries, err := h.cashService.ListEntries(c.Request.Context())
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}
	response.Success(c, entries)
}

// GetEntry 查询流水详情
// GET /api/v1/cash-entries/:id
func (h *Handler) GetEntry(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	entry, err := h.cashService.GetEntry(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrEntryNotFound) {
			response.NotFound(c, err.Error())
			return
		}
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, entry)
}

// UpdateEntry 修改流水（被日结认领后拒绝）
// PUT /api/v1/cash-entries/:id
func (h *Handler) UpdateEntry(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req service.UpdateEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	entry, err := h.cashService.UpdateEntry(c.Request.Context(), id, &req)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrEntryNotFound):
			response.NotFound(c, err.Error())
		case errors.Is(err, repository.ErrEntryClaimed):
			response.BusinessError(c, response.CodeEntryClaimed, err.Error())
		default:
			response.ParamError(c, err.Error())
		}
		return
	}

	response.Success(c, entry)
}

// DeleteEntry 删除流水（被日结认领后拒绝）
// DELETE /api/v1/cash-entries/:id
func (h *Handler) DeleteEntry(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	err := h.cashService.DeleteEntry(c.Request.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrEntryNotFound):
			response.NotFound(c, err.Error())
		case errors.Is(err, repository.ErrEntryClaimed):
			response.BusinessError(c, response.CodeEntryClaimed, err.Error())
		default:
			response.ServerError(c, err.Error())
		}
		return
	}

	response.Success(c, gin.H{"message": "流水已删除"})
}

// ============================================================
// 预约相关接口
// ============================================================

// CreateAppointmentRequest 创建预约请求
type CreateAppointmentRequest struct {
	ClientID    int64            `json:"client_id" binding:"required"`
	ServiceID   int64            `json:"service_id" binding:"required"`
	BarberID    *int64           `json:"barber_id"`
	ScheduledAt time.Time        `json:"scheduled_at" binding:"required"`
	Price       *decimal.Decimal `json:"price"`
}

// CreateAppointment 创建预约
// POST /api/v1/appointments
func (h *Handler) CreateAppointment(c *gin.Context) {
	var req CreateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	appointment, err := h.appointmentService.CreateAppointment(c.Request.Context(), &service.CreateAppointmentRequest{
		ClientID:    req.ClientID,
		ServiceID:   req.ServiceID,
		BarberID:    req.BarberID,
		ScheduledAt: req.ScheduledAt,
		Price:       req.Price,
	})
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrClientNotFound),
			errors.Is(err, repository.ErrServiceNotFound),
			errors.Is(err, repository.ErrUserNotFound):
			response.NotFound(c, err.Error())
		default:
			response.ParamError(c, err.Error())
		}
		return
	}

	response.Success(c, appointment)
}

// ListAppointments 查询预约列表
// GET /api/v1/appointments
func (h *Handler) ListAppointments(c *gin.Context) {
	appointments, err := h.appointmentService.ListAppointments(c.Request.Context())
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}
	response.Success(c, appointments)
}

// GetAppointment 查询预约详情
// GET /api/v1/appointments/:id
func (h *Handler) GetAppointment(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	appointment, err := h.appointmentService.GetAppointment(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrAppointmentNotFound) {
			response.NotFound(c, err.Error())
			return
		}
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, appointment)
}

// UpdateAppointment 修改预约
// PUT /api/v1/appointments/:id
func (h *Handler) UpdateAppointment(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req service.UpdateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	appointment, err := h.appointmentService.UpdateAppointment(c.Request.Context(), id, &req)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrAppointmentNotFound),
			errors.Is(err, repository.ErrUserNotFound):
			response.NotFound(c, err.Error())
		default:
			response.ParamError(c, err.Error())
		}
		return
	}

	response.Success(c, appointment)
}

// UpdateAppointmentStatusRequest 状态流转请求
type UpdateAppointmentStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateAppointmentStatus 推进预约状态（确认/取消）
// PUT /api/v1/appointments/:id/status
func (h *Handler) UpdateAppointmentStatus(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req UpdateAppointmentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	appointment, err := h.appointmentService.UpdateStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrAppointmentNotFound):
			response.NotFound(c, err.Error())
		case errors.Is(err, repository.ErrAppointmentStatusInvalid):
			response.BusinessError(c, response.CodeStatusInvalid, err.Error())
		default:
			response.ServerError(c, err.Error())
		}
		return
	}

	response.Success(c, appointment)
}

// CompleteAppointmentRequest 完成预约请求
type CompleteAppointmentRequest struct {
	Paid bool `json:"paid"`
}

// CompleteAppointment 完成预约，收款时同步生成现金流水
// POST /api/v1/appointments/:id/complete
func (h *Handler) CompleteAppointment(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req CompleteAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	appointment, err := h.appointmentService.Complete(c.Request.Context(), id, req.Paid)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrAppointmentNotFound):
			response.NotFound(c, err.Error())
		case errors.Is(err, repository.ErrAppointmentStatusInvalid):
			response.BusinessError(c, response.CodeStatusInvalid, err.Error())
		default:
			response.ServerError(c, err.Error())
		}
		return
	}

	response.Success(c, appointment)
}

// DeleteAppointment 删除预约
// DELETE /api/v1/appointments/:id
func (h *Handler) DeleteAppointment(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	err := h.appointmentService.DeleteAppointment(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrAppointmentNotFound) {
			response.NotFound(c, err.Error())
			return
		}
		response.BusinessError(c, response.CodeAppointmentHasEntry, err.Error())
		return
	}

	response.Success(c, gin.H{"message": "预约已删除"})
}

// ============================================================
// 客户相关接口
// ============================================================

// CreateClient 创建客户
// POST /api/v1/clients
func (h *Handler) CreateClient(c *gin.Context) {
	var req service.CreateClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	client, err := h.clientService.CreateClient(c.Request.Context(), &req)
	if err != nil {
		response.ParamError(c, err.Error())
		return
	}

	response.Success(c, client)
}

// ListClients 查询客户列表
// GET /api/v1/clients
func (h *Handler) ListClients(c *gin.Context) {
	clients, err := h.clientService.ListClients(c.Request.Context())
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}
	response.Success(c, clients)
}

// GetClient 查询客户详情
// GET /api/v1/clients/:id
func (h *Handler) GetClient(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	client, err := h.clientService.GetClient(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrClientNotFound) {
			response.NotFound(c, err.Error())
			return
		}
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, client)
}

// UpdateClient 修改客户
// PUT /api/v1/clients/:id
func (h *Handler) UpdateClient(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req service.UpdateClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	client, err := h.clientService.UpdateClient(c.Request.Context(), id, &req)
	if err != nil {
		if errors.Is(err, repository.ErrClientNotFound) {
			response.NotFound(c, err.Error())
			return
		}
		response.ParamError(c, err.Error())
		return
	}

	response.Success(c, client)
}

// DeleteClient 删除客户
// DELETE /api/v1/clients/:id
func (h *Handler) DeleteClient(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	err := h.clientService.DeleteClient(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrClientNotFound) {
			response.NotFound(c, err.Error())
			return
		}
		response.BusinessError(c, response.CodeHasAppointments, err.Error())
		return
	}

	response.Success(c, gin.H{"message": "客户已删除"})
}

// ============================================================
// 服务项目相关接口
// ============================================================

// CreateService 创建服务项目
// POST /api/v1/services
func (h *Handler) CreateService(c *gin.Context) {
	var req service.CreateServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	svc, err := h.catalogService.CreateService(c.Request.Context(), &req)
	if err != nil {
		response.ParamError(c, err.Error())
		return
	}

	response.Success(c, svc)
}

// ListServices 查询服务项目列表
// GET /api/v1/services
func (h *Handler) ListServices(c *gin.Context) {
	services, err := h.catalogService.ListServices(c.Request.Context())
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}
	response.Success(c, services)
}

// GetService 查询服务项目详情
// GET /api/v1/services/:id
func (h *Handler) GetService(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	svc, err := h.catalogService.GetService(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrServiceNotFound) {
			response.NotFound(c, err.Error())
			return
		}
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, svc)
}

// UpdateService 修改服务项目
// PUT /api/v1/services/:id
func (h *Handler) UpdateService(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req service.UpdateServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	svc, err := h.catalogService.UpdateService(c.Request.Context(), id, &req)
	if err != nil {
		if errors.Is(err, repository.ErrServiceNotFound) {
			response.NotFound(c, err.Error())
			return
		}
		response.ParamError(c, err.Error())
		return
	}

	response.Success(c, svc)
}

// DeleteService 删除服务项目
// DELETE /api/v1/services/:id
func (h *Handler) DeleteService(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	err := h.catalogService.DeleteService(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrServiceNotFound) {
			response.NotFound(c, err.Error())
			return
		}
		response.BusinessError(c, response.CodeHasAppointments, err.Error())
		return
	}

	response.Success(c, gin.H{"message": "服务项目已删除"})
}

// ============================================================
// 用户相关接口
// ============================================================

// CreateUser 创建用户
// POST /api/v1/users
func (h *Handler) CreateUser(c *gin.Context) {
	var req service.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	user, err := h.userService.CreateUser(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			response.BusinessError(c, response.CodeEmailTaken, err.Error())
			return
		}
		response.ParamError(c, err.Error())
		return
	}

	response.Success(c, user)
}

// ListUsers 查询用户列表
// GET /api/v1/users
func (h *Handler) ListUsers(c *gin.Context) {
	users, err := h.userService.ListUsers(c.Request.Context())
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}
	response.Success(c, users)
}

// GetUser 查询用户详情
// GET /api/v1/users/:id
func (h *Handler) GetUser(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	user, err := h.userService.GetUser(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			response.NotFound(c, err.Error())
			return
		}
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, user)
}

// UpdateUser 修改用户
// PUT /api/v1/users/:id
func (h *Handler) UpdateUser(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req service.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	user, err := h.userService.UpdateUser(c.Request.Context(), id, &req)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrUserNotFound):
			response.NotFound(c, err.Error())
		case errors.Is(err, repository.ErrEmailTaken):
			response.BusinessError(c, response.CodeEmailTaken, err.Error())
		default:
			response.ParamError(c, err.Error())
		}
		return
	}

	response.Success(c, user)
}

// DeleteUser 删除用户
// DELETE /api/v1/users/:id
func (h *Handler) DeleteUser(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	err := h.userService.DeleteUser(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			response.NotFound(c, err.Error())
			return
		}
		response.BusinessError(c, response.CodeHasAppointments, err.Error())
		return
	}

	response.Success(c, gin.H{"message": "用户已删除"})
}

// ============================================================
// 仪表盘接口
// ============================================================

// GetDashboardSummary 查询仪表盘汇总
// GET /api/v1/dashboard/summary
func (h *Handler) GetDashboardSummary(c *gin.Context) {
	summary, err := h.dashboardService.GetSummary(c.Request.Context())
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}
	response.Success(c, summary)
}
