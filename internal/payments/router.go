package payments

import (
	"tripenjoy/internal/shared/actor"
	"tripenjoy/internal/shared/middleware"

	"github.com/gin-gonic/gin"
)

// SetupPaymentRoutes configures payment routes. Gateway callbacks are public
// and authenticated by their signature.
func SetupPaymentRoutes(rg *gin.RouterGroup, controller *Controller, auth gin.HandlerFunc) {
	payments := rg.Group("/payments")

	payments.GET("/callback/:method", controller.GatewayReturn)
	payments.GET("/ipn/:method", controller.GatewayIPN)
	payments.GET("/sandbox/checkout", controller.SandboxCheckout)

	protected := payments.Group("")
	protected.Use(auth)
	{
		protected.POST("", middleware.RequireRoles(actor.RoleUser, actor.RoleAdmin), controller.InitiatePayment)
		protected.GET("/:id", controller.GetPayment)
		protected.POST("/:id/refund", middleware.RequireRoles(actor.RoleAdmin), controller.RefundPayment)
	}
}

// Route definitions for reference:
//
// POST   /api/v1/payments                  - Initiate a payment for a Pending booking
// Request body: { "booking_id": "...", "method": "VNPAY", "return_url": "https://..." }
// GET    /api/v1/payments/:id              - Get a payment (payer or admin)
// POST   /api/v1/payments/:id/refund       - Refund a successful payment (admin)
// GET    /api/v1/payments/callback/:method - Browser return from the gateway
// GET    /api/v1/payments/ipn/:method      - Gateway IPN, answers { "RspCode": "00", "Message": "..." }
// GET    /api/v1/payments/sandbox/checkout - Sandbox payer page, redirects to the callback
