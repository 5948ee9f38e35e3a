// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	"rxpos/internal/core/idempotency"
	"rxpos/internal/domain/audit"
	"rxpos/internal/domain/cart"
	"rxpos/internal/domain/checkout"
	"rxpos/internal/domain/paymentmethod"
	"rxpos/internal/domain/reports"
	"rxpos/internal/domain/transaction"
	"rxpos/internal/infrastructure/http/v1/handlers"
	"rxpos/internal/infrastructure/http/v1/middleware"
	"rxpos/pkg/logger"
	"rxpos/pkg/metrics"
)

// RoleManager may read reports and run administrative transaction actions.
const RoleManager = "manager"

// RouterConfig holds router dependencies.
type RouterConfig struct {
	// Logger for request logging
	Logger *logger.Logger

	// JWTValidator for token validation
	JWTValidator middleware.JWTValidator

	Carts          *cart.Service
	Checkout       *checkout.Service
	Transactions   *transaction.Service
	Reports        *reports.Service
	PaymentMethods *paymentmethod.Service

	// History serves transaction audit trails; optional
	History audit.Reader

	// Idempotency enables X-Idempotency-Key handling when non-nil
	Idempotency idempotency.Store

	// Metrics records per-route counters when non-nil
	Metrics *metrics.ServerMetrics

	// HealthChecks are pinged by /health/ready
	HealthChecks map[string]handlers.Pinger

	Version string
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	if cfg.Logger != nil {
		router.Use(middleware.Logger(cfg.Logger))
	}
	if cfg.Metrics != nil {
		router.Use(middleware.Metrics(cfg.Metrics))
	}
	router.Use(middleware.ErrorHandler())

	healthHandler := handlers.NewHealthHandler(cfg.Version, cfg.HealthChecks)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
	}
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	v1 := router.Group("/api/v1")
	protected := v1.Group("")
	protected.Use(middleware.Auth(cfg.JWTValidator))
	if cfg.Idempotency != nil {
		protected.Use(middleware.Idempotency(cfg.Idempotency))
	}

	base := handlers.NewBaseHandler()

	Mount(protected, "/carts", handlers.NewCartHandler(base, cfg.Carts))

	checkoutHandler := handlers.NewCheckoutHandler(base, cfg.Checkout)
	protected.POST("/checkout", checkoutHandler.Checkout)

	txHandler := handlers.NewTransactionHandler(base, cfg.Transactions, cfg.Checkout, cfg.History)
	txGroup := protected.Group("/transactions")
	{
		txGroup.GET("", txHandler.List)
		txGroup.GET("/:id", txHandler.Get)
		txGroup.GET("/:id/history", txHandler.History)
		txGroup.POST("/:id/refund", txHandler.Refund)
		txGroup.PUT("/:id/delivery", txHandler.UpdateDelivery)
		txGroup.PUT("/:id/delivery-status", txHandler.UpdateDeliveryStatus)
		txGroup.POST("/:id/hold", txHandler.Hold)
		txGroup.POST("/:id/cancel", middleware.RequireRole(RoleManager), txHandler.Cancel)
	}

	Mount(protected, "/payment-methods", handlers.NewPaymentMethodHandler(base, cfg.PaymentMethods))

	reportHandler := handlers.NewReportsHandler(base, cfg.Reports)
	reportsGroup := protected.Group("/reports", middleware.RequireRole(RoleManager))
	{
		reportsGroup.GET("/sales", reportHandler.Sales)
		reportsGroup.GET("/top-products", reportHandler.TopProducts)
	}

	return router
}
