package handler

import (
	"barbershop/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// SetupRouter 配置路由
func SetupRouter(db *gorm.DB, rdb *redis.Client, cfg *config.Config) *gin.Engine {
	// 设置 gin 为发布模式（减少日志输出）
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// 注册中间件
	r.Use(RecoveryMiddleware())
	r.Use(LoggerMiddleware())
	r.Use(CORSMiddleware())

	// 创建处理器
	h := NewHandler(db, rdb, cfg)

	// API 路由组
	api := r.Group("/api/v1")
	{
		// 日结相关
		closings := api.Group("/closings")
		{
			closings.GET("/today", h.CloseToday)
			closings.POST("/close", h.CloseDay)
			closings.GET("", h.ListClosings)
			closings.GET("/:id", h.GetClosing)
			closings.DELETE("/:id", h.DeleteClosing)
		}

		// 现金流水相关
		entries := api.Group("/cash-entries")
		{
			entries.POST("", h.CreateEntry)
			entries.GET("", h.ListEntries)
			entries.GET("/:id", h.GetEntry)
			entries.PUT("/:id", h.UpdateEntry)
			entries.DELETE("/:id", h.DeleteEntry)
		}

		// 预约相关
		appointments := api.Group("/appointments")
		{
			appointments.POST("", h.CreateAppointment)
			appointments.GET("", h.ListAppointments)
			appointments.GET("/:id", h.GetAppointment)
			appointments.PUT("/:id", h.UpdateAppointment)
			appointments.PUT("/:id/status", h.UpdateAppointmentStatus)
			appointments.POST("/:id/complete", h.CompleteAppointment)
			appointments.DELETE("/:id", h.DeleteAppointment)
		}

		// 客户相关
		clients := api.Group("/clients")
		{
			clients.POST("", h.CreateClient)
			clients.GET("", h.ListClients)
			clients.GET("/:id", h.GetClient)
			clients.PUT("/:id", h.UpdateClient)
			clients.DELETE("/:id", h.DeleteClient)
		}

		// 服务项目相关
		services := api.Group("/services")
		{
			services.POST("", h.CreateService)
			services.GET("", h.ListServices)
			services.GET("/:id", h.GetService)
			services.PUT("/:id", h.UpdateService)
			services.DELETE("/:id", h.DeleteService)
		}

		// 用户相关
		users := api.Group("/users")
		{
			users.POST("", h.CreateUser)
			users.GET("", h.ListUsers)
			users.GET("/:id", h.GetUser)
			users.PUT("/:id", h.UpdateUser)
			users.DELETE("/:id", h.DeleteUser)
		}

		// 仪表盘
		dashboard := api.Group("/dashboard")
		{
			dashboard.GET("/summary", h.GetDashboardSummary)
		}
	}

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}
