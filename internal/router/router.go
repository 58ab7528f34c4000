// internal/router/router.go
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/NxtWaveTools/nxt-subscription-sub000/internal/config"
	"github.com/NxtWaveTools/nxt-subscription-sub000/internal/handlers"
	"github.com/NxtWaveTools/nxt-subscription-sub000/internal/middleware"
	"github.com/NxtWaveTools/nxt-subscription-sub000/internal/models"
	"github.com/NxtWaveTools/nxt-subscription-sub000/internal/services"
	"github.com/NxtWaveTools/nxt-subscription-sub000/internal/utils"
)

func Initialize(db *gorm.DB, cfg *config.Config) *gin.Engine {
	// Initialize services
	authorizationService := services.NewAuthorizationService(db)
	notificationService := services.NewNotificationService(db, cfg)
	storageService, err := services.NewStorageService(cfg)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize storage service")
	}

	authService := services.NewAuthService(db, cfg)
	subscriptionService := services.NewSubscriptionService(db, authorizationService, notificationService)
	cycleService := services.NewPaymentCycleService(db, authorizationService, storageService, notificationService)
	referenceService := services.NewReferenceService(db, authorizationService)
	adminService := services.NewAdminService(db, authorizationService)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	subscriptionHandler := handlers.NewSubscriptionHandler(subscriptionService)
	cycleHandler := handlers.NewPaymentCycleHandler(cycleService, storageService)
	referenceHandler := handlers.NewReferenceHandler(referenceService)
	adminHandler := handlers.NewAdminHandler(adminService)

	// Set JWT secret
	utils.SetJWTSecret(cfg.JWT.SecretKey)

	// Initialize Gin router
	r := gin.New()

	// Global middleware
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS())
	r.Use(middleware.GeneralRateLimit())
	r.Use(middleware.AuditLogMiddleware(db))

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"version": "1.0.0",
		})
	})

	// API v1 routes
	v1 := r.Group("/v1")
	{
		// Authentication routes
		auth := v1.Group("/auth")
		auth.Use(middleware.AuthRateLimit())
		{
			auth.POST("/login", authHandler.Login)
			auth.POST("/refresh", authHandler.RefreshToken)
			auth.GET("/me", middleware.AuthRequired(), authHandler.GetProfile)
		}

		// Everything past this point needs a valid token. Role checks
		// beyond the route gates live in the services.
		protected := v1.Group("")
		protected.Use(middleware.AuthRequired())

		// Subscription routes
		subscriptions := protected.Group("/subscriptions")
		{
			subscriptions.POST("", subscriptionHandler.Create)
			subscriptions.GET("", subscriptionHandler.List)
			subscriptions.GET("/:id", subscriptionHandler.Get)
			subscriptions.PUT("/:id", subscriptionHandler.Update)
			subscriptions.PUT("/:id/approve", subscriptionHandler.Approve)
			subscriptions.PUT("/:id/reject", subscriptionHandler.Reject)
			subscriptions.PUT("/:id/cancel", subscriptionHandler.Cancel)
			subscriptions.DELETE("/:id", subscriptionHandler.Delete)
			subscriptions.GET("/:id/approvals", subscriptionHandler.GetApprovalHistory)
			subscriptions.PUT("/bulk/accounting-status", subscriptionHandler.BulkUpdateAccountingStatus)
		}

		// Payment cycle routes
		cycles := protected.Group("/payment-cycles")
		{
			cycles.POST("", cycleHandler.Create)
			cycles.GET("", cycleHandler.List)
			cycles.GET("/:id", cycleHandler.Get)
			cycles.PUT("/:id/payment", cycleHandler.RecordPayment)
			cycles.PUT("/:id/approve", cycleHandler.ApproveRenewal)
			cycles.PUT("/:id/reject", cycleHandler.RejectRenewal)
			cycles.POST("/:id/invoice", middleware.UploadRateLimit(), cycleHandler.UploadInvoice)
			cycles.PUT("/:id/invoice/:fileId", cycleHandler.LinkInvoice)
			cycles.GET("/:id/invoice-url", cycleHandler.GetInvoiceURL)
			cycles.PUT("/:id/complete", cycleHandler.Complete)
			cycles.PUT("/:id/cancel", cycleHandler.Cancel)
		}

		// Reference data routes. Reads are open to all roles; writes are
		// re-checked in the service against the capability matrix.
		registerReference := func(path string, entity services.ReferenceEntity) *gin.RouterGroup {
			group := protected.Group(path)
			group.GET("", referenceHandler.List(entity))
			group.PUT("/bulk-toggle", referenceHandler.BulkToggle(entity))
			group.PUT("/:id", referenceHandler.Update(entity))
			group.DELETE("/:id", referenceHandler.Delete(entity))
			return group
		}

		departments := registerReference("/departments", services.EntityDepartment)
		departments.POST("", referenceHandler.CreateDepartment)

		locations := registerReference("/locations", services.EntityLocation)
		locations.POST("", referenceHandler.CreateLocation)

		vendors := registerReference("/vendors", services.EntityVendor)
		vendors.POST("", referenceHandler.CreateVendor)

		products := registerReference("/products", services.EntityProduct)
		products.POST("", referenceHandler.CreateProduct)

		// Admin routes
		admin := protected.Group("/admin")
		admin.Use(middleware.AdminRequired())
		{
			admin.GET("/dashboard", adminHandler.GetDashboard)
			admin.POST("/users", adminHandler.CreateUser)
			admin.GET("/users", adminHandler.ListUsers)
			admin.PUT("/users/:id/status", adminHandler.UpdateUserStatus)
			admin.PUT("/users/:id/departments", adminHandler.AssignDepartments)
			admin.GET("/audit-logs", adminHandler.ListAuditLogs)
		}

		// Finance dashboard shares the stats endpoint
		protected.GET("/dashboard", middleware.RoleRequired(models.RoleAdmin, models.RoleFinance), adminHandler.GetDashboard)
	}

	// Static file serving (for development)
	if cfg.Environment == "development" {
		r.Static("/uploads", "./uploads")
	}

	return r
}
