// api/routes/router.go
package routes

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	_ "tripenjoy/docs"
	"tripenjoy/internal/bookings"
	"tripenjoy/internal/catalog"
	"tripenjoy/internal/jobs"
	"tripenjoy/internal/notifications"
	"tripenjoy/internal/payments"
	"tripenjoy/internal/shared/config"
	"tripenjoy/internal/shared/database"
	"tripenjoy/internal/shared/middleware"
	"tripenjoy/internal/shared/uow"
	"tripenjoy/internal/vouchers"
	"tripenjoy/pkg/cache"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Router holds all route dependencies
type Router struct {
	config *config.Config
	db     *database.DB

	vouchers    vouchers.Service
	bookings    bookings.Service
	coordinator payments.Coordinator
	gateways    payments.Gateways
}

// NewRouter wires repositories and services. The publisher receives every
// lifecycle notification.
func NewRouter(cfg *config.Config, db *database.DB, publisher notifications.Publisher) (*Router, error) {
	gateways, err := BuildGateways(cfg)
	if err != nil {
		return nil, err
	}

	pg := db.PostgreSQL
	tx := uow.NewManager(pg)

	var cacheService cache.Service
	if db.Redis != nil {
		cacheService = cache.NewService(db.Redis)
	}
	catalogRepo := catalog.NewRepository(pg, cacheService, cfg.Redis.CatalogTTL)

	policy := vouchers.RetainOnCancel
	if cfg.Voucher.ReleaseOnCancel {
		policy = vouchers.ReleaseOnCancel
	}
	voucherService := vouchers.NewService(vouchers.NewRepository(pg), catalogRepo, tx, policy)

	bookingRepo := bookings.NewRepository(pg)
	bookingService := bookings.NewService(bookingRepo, catalogRepo, voucherService, tx, publisher)

	coordinator := payments.NewCoordinator(payments.NewRepository(pg), bookingRepo, gateways, tx, publisher, cfg.Payment)

	// Inject the refund hook used when a paid booking is cancelled
	bookingService.SetPaymentRefunder(coordinator)

	return &Router{
		config:      cfg,
		db:          db,
		vouchers:    voucherService,
		bookings:    bookingService,
		coordinator: coordinator,
		gateways:    gateways,
	}, nil
}

// BuildGateways creates the gateways listed in PAYMENT_METHODS.
func BuildGateways(cfg *config.Config) (payments.Gateways, error) {
	var enabled []payments.Gateway
	for _, name := range cfg.Payment.EnabledMethods {
		method, err := payments.ParseMethod(name)
		if err != nil {
			return nil, fmt.Errorf("PAYMENT_METHODS: %w", err)
		}
		switch method {
		case payments.MethodVNPay:
			enabled = append(enabled, payments.NewVNPayGateway(cfg.VNPay, nil))
		case payments.MethodSandbox:
			enabled = append(enabled, payments.NewSandboxGateway(cfg.Payment.SandboxSecret, cfg.Payment.SandboxEndpoint))
		}
	}
	return payments.NewGateways(enabled...), nil
}

// Sweeper exposes the maintenance operations run by the scheduler.
func (r *Router) Sweeper() jobs.Sweeper {
	return jobs.Sweeper{
		ExpireVouchers:        r.vouchers.ExpireOverdue,
		FailStalePayments:     r.coordinator.FailStalePayments,
		CompleteFinishedStays: r.bookings.CompleteFinishedStays,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes(engine *gin.Engine) {
	r.setupHealthRoutes(engine)

	engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	paymentController := payments.NewController(r.coordinator)
	if gw, ok := r.gateways[payments.MethodSandbox].(*payments.SandboxGateway); ok {
		paymentController.EnableSandboxCheckout(gw)
	}

	auth := middleware.JWTAuthWithConfig(r.config)
	api := engine.Group(r.config.GetAPIBasePath())
	{
		vouchers.SetupVoucherRoutes(api, vouchers.NewController(r.vouchers), auth)
		bookings.SetupBookingRoutes(api, bookings.NewController(r.bookings), auth)
		payments.SetupPaymentRoutes(api, paymentController, auth)
	}
}

// setupHealthRoutes sets up health check and system status routes
func (r *Router) setupHealthRoutes(engine *gin.Engine) {
	engine.GET("/health", func(c *gin.Context) {
		if err := r.db.HealthCheck(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":    "unhealthy",
				"error":     err.Error(),
				"timestamp": time.Now(),
				"service":   "tripenjoy-backend",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now(),
			"service":   "tripenjoy-backend",
			"redis":     r.db.Redis != nil,
		})
	})

	engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
			"version": r.config.APIVersion,
		})
	})

	engine.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":            "operational",
			"api_version":       r.config.APIVersion,
			"payment_methods":   strings.Join(r.config.Payment.EnabledMethods, ","),
			"voucher_on_cancel": voucherPolicyName(r.config),
			"timestamp":         time.Now(),
		})
	})
}

func voucherPolicyName(cfg *config.Config) string {
	if cfg.Voucher.ReleaseOnCancel {
		return string(vouchers.ReleaseOnCancel)
	}
	return string(vouchers.RetainOnCancel)
}
