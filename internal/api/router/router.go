package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/fisker/bcm-backend/docs" // swagger docs
	"github.com/fisker/bcm-backend/internal/api/handler"
	"github.com/fisker/bcm-backend/internal/api/middleware"
	"github.com/fisker/bcm-backend/internal/model"
	"github.com/fisker/bcm-backend/internal/service"
)

func Setup(
	authHandler *handler.AuthHandler,
	approvalHandler *handler.ApprovalHandler,
	organizationHandler *handler.OrganizationHandler,
	authService *service.AuthService,
	topRole model.Role,
	mode string,
	allowedOrigins []string,
) *gin.Engine {
	if mode != "" {
		gin.SetMode(mode)
	}
	r := gin.New()

	// 使用自定义的 recovery 中间件（打印详细错误信息）
	r.Use(middleware.RecoveryMiddleware())
	// 接口指标与写操作日志
	r.Use(middleware.OperationLogMiddleware())

	r.Use(middleware.CORS(allowedOrigins))

	// 公开API（不需要认证）
	api := r.Group("/api")
	{
		api.POST("/auth/login", authHandler.Login)
	}

	// 需要认证的API，接口权限由 Casbin 按角色控制
	authenticated := api.Group("")
	authenticated.Use(middleware.AuthMiddleware(authService))
	{
		authenticated.GET("/auth/me", authHandler.GetCurrentUser)

		protected := authenticated.Group("")
		protected.Use(middleware.PermissionMiddleware())

		approvals := protected.Group("/approval-requests")
		{
			approvals.GET("", approvalHandler.ListRequests)
			approvals.POST("", approvalHandler.CreateRequest)
			approvals.GET("/pending", approvalHandler.ListPending)
			approvals.GET("/stats", approvalHandler.GetStatistics)
			approvals.GET("/:id", approvalHandler.GetRequest)
			approvals.POST("/:id/decision", approvalHandler.SubmitDecision)
			approvals.POST("/:id/escalate", middleware.AdminMiddleware(topRole), approvalHandler.Escalate)
		}

		protected.GET("/roles/hierarchy", approvalHandler.GetRoleHierarchy)

		organizations := protected.Group("/organizations")
		{
			organizations.GET("/tree", organizationHandler.GetTree)
			organizations.POST("/sync", middleware.AdminMiddleware(topRole), organizationHandler.SyncFromDirectory)
		}

		users := protected.Group("/users")
		users.Use(middleware.AdminMiddleware(topRole))
		{
			users.GET("", authHandler.GetUsers)
			users.POST("", authHandler.CreateUser)
			users.PUT("/:id/role", authHandler.UpdateUserRole)
			users.PUT("/:id/status", authHandler.UpdateUserStatus)
		}
	}

	// Prometheus Metrics
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Health check (支持 GET 和 HEAD 方法)
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status": "ok",
			"type":   "bcm-api",
		})
	})
	r.HEAD("/health", func(c *gin.Context) {
		c.Status(200)
	})

	// Swagger API documentation (only in debug mode)
	if mode == gin.DebugMode {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, model.Error(404, "The requested resource was not found"))
	})

	return r
}
