package routes

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/joshua-takyi/courtpay/internal/container"
	"github.com/joshua-takyi/courtpay/internal/handlers"
	"github.com/joshua-takyi/courtpay/internal/metrics"
	"github.com/joshua-takyi/courtpay/internal/middleware"
)

// SetupRoutes configures all routes with the dependency container
func SetupRoutes(container *container.Container) *gin.Engine {
	// Set Gin mode for production
	gin.SetMode(gin.ReleaseMode)

	metrics.Register()

	r := gin.New()
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	// Add middleware
	r.Use(middleware.RequestID())
	r.Use(middleware.StructuredLogger(container.Logger))
	r.Use(middleware.ErrorHandler(container.Logger))
	r.Use(gin.Recovery())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API version 1
	v1 := r.Group("/api/v1")
	{
		// Health check
		v1.GET("/health", func(c *gin.Context) {
			c.JSON(200, gin.H{
				"status":  "OK",
				"service": "courtpay-api",
			})
		})

		// The processor delivers notifications via GET (query params) or
		// POST (body), depending on its configuration; one handler serves
		// both.
		v1.POST("/payments/webhook", handlers.PaymentWebhookHandler(container.PaymentService))
		v1.GET("/payments/webhook", handlers.PaymentWebhookHandler(container.PaymentService))

		v1.POST("/payments/checkout", handlers.CreateCheckoutHandler(container.PaymentService))
		v1.POST("/payments/manual", handlers.CreateManualPaymentHandler(container.PaymentService))

		v1.GET("/facilities/:id", handlers.GetFacilityHandler(container.FacilityService))
		v1.GET("/facilities/:id/occupancy", handlers.SlotOccupancyHandler(container.FacilityService))
	}

	reviewer := v1.Group("/")
	reviewer.Use(middleware.ReviewerAuth(container.Config.ReviewerSecret, container.Logger))
	{
		reviewer.POST("/payments/manual/:id/approve", handlers.ApproveManualPaymentHandler(container.PaymentService))
		reviewer.POST("/payments/manual/:id/reject", handlers.RejectManualPaymentHandler(container.PaymentService))
		reviewer.GET("/reconciliations", handlers.ListReconciliationsHandler(container.PaymentService))
		reviewer.GET("/settlements/:facility_id/:date", handlers.GetDailySettlementHandler(container.SettlementService))
		reviewer.PUT("/facilities/:id", handlers.UpsertFacilityHandler(container.FacilityService))
	}

	return r
}
