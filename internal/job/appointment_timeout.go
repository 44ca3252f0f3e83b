package job

import (
	"context"
	"log"
	"time"

	"barbershop/internal/config"
	"barbershop/internal/service"

	"gorm.io/gorm"
)

// AppointmentTimeoutJob 预约超时任务
// 预约时间已过、且超出宽限期仍停留在 SCHEDULED 的预约，批量标记为 NO_SHOW
type AppointmentTimeoutJob struct {
	db                 *gorm.DB
	appointmentService *service.AppointmentService
	cfg                *config.Config
	stopCh             chan struct{}
	interval           time.Duration
	batchSize          int
}

func NewAppointmentTimeoutJob(db *gorm.DB, cfg *config.Config) *AppointmentTimeoutJob {
	return &AppointmentTimeoutJob{
		db:                 db,
		appointmentService: service.NewAppointmentService(db, cfg),
		cfg:                cfg,
		stopCh:             make(chan struct{}),
		interval:           time.Minute,
		batchSize:          100,
	}
}

func (j *AppointmentTimeoutJob) Start(ctx context.Context) {
	log.Println("[AppointmentTimeoutJob] 预约超时任务启动")

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("[AppointmentTimeoutJob] 收到停止信号，任务退出")
			return
		case <-j.stopCh:
			log.Println("[AppointmentTimeoutJob] 任务停止")
			return
		case <-ticker.C:
			j.markOverdue(ctx)
		}
	}
}

func (j *AppointmentTimeoutJob) Stop() {
	close(j.stopCh)
}

func (j *AppointmentTimeoutJob) markOverdue(ctx context.Context) {
	marked, err := j.appointmentService.MarkOverdueNoShow(ctx, j.cfg.Business.NoShowGraceMinutes, j.batchSize)
	if err != nil {
		log.Printf("[AppointmentTimeoutJob] 查询过期预约失败: %v", err)
		return
	}

	if marked > 0 {
		log.Printf("[AppointmentTimeoutJob] 本次标记 %d 个预约为未到店", marked)
	}
}
