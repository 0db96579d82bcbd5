// Package routes 注册路由
package routes

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"homerent/app/http/controllers/api/v1/health"
	"homerent/app/http/controllers/api/v1/notification"
	"homerent/app/http/controllers/api/v1/payment"
	"homerent/app/http/middlewares"
	"homerent/app/policies"
	"homerent/pkg/config"
	"homerent/pkg/events"
	"homerent/pkg/jwt"
	"homerent/pkg/notify"
	svc "homerent/pkg/payment"
	"homerent/pkg/queue"
)

// Dependencies 路由依赖的服务，Queue / Hub 可为空
type Dependencies struct {
	DB       *gorm.DB
	JWT      *jwt.JWT
	Payments *svc.Service
	Notify   *notify.Service
	Queue    *queue.QueueService
	Hub      *events.Hub
}

// RegisterAPIRoutes 注册所有 API 路由
func RegisterAPIRoutes(r *gin.Engine, deps Dependencies) {
	hc := health.NewHealthController(deps.Queue)
	r.GET("/health", hc.Show)

	v1 := r.Group("/v1")
	v1.Use(
		middlewares.SecurityHeaders(),
		middlewares.Cors(),
		middlewares.LimitIP(config.GetString("app.api_rate_limit", "3000-H")),
		middlewares.Authenticate(deps.JWT),
	)

	checkoutLimit := config.GetString("app.checkout_rate_limit", "30-M")

	pc := payment.NewPaymentsController(deps.Payments, policies.NewPaymentPolicy(deps.DB), deps.Hub)
	paymentsGroup := v1.Group("/payments")
	{
		paymentsGroup.POST("", middlewares.OwnerOnly(), pc.Store)
		// 房东触发的全量对账与重复清理
		paymentsGroup.POST("/sync", middlewares.OwnerOnly(), pc.SyncAll)
		paymentsGroup.POST("/cleanup", middlewares.OwnerOnly(), pc.Cleanup)
		paymentsGroup.GET("/stream", pc.Stream)

		paymentsGroup.GET("/:id", middlewares.AuthRequired(), pc.Show)
		paymentsGroup.POST("/:id/checkout", middlewares.AuthRequired(), middlewares.LimitPerRoute(checkoutLimit), pc.Checkout)
		paymentsGroup.POST("/:id/verify", middlewares.AuthRequired(), middlewares.LimitPerRoute(checkoutLimit), pc.Verify)
		paymentsGroup.POST("/:id/sync", middlewares.AuthRequired(), pc.Sync)
		paymentsGroup.POST("/:id/retry", middlewares.AuthRequired(), pc.Retry)
	}

	v1.GET("/tenants/:id/payments", pc.TenantPayments)

	nc := notification.NewNotificationsController(deps.Notify, deps.Queue)
	notificationsGroup := v1.Group("/notifications")
	{
		notificationsGroup.GET("", nc.Index)
		notificationsGroup.POST("/read", middlewares.AuthRequired(), nc.MarkAllRead)
		notificationsGroup.POST("/:id/read", middlewares.AuthRequired(), nc.MarkRead)
	}

	v1.POST("/owners/:id/reminders", middlewares.OwnerOnly(), nc.Remind)
}
